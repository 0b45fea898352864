package model

const PlanStarter = "starter"

// swagger:model Organization
type Organization struct {
	UUIDBase
	Name     string `gorm:"size:255;not null" json:"name"`
	OwnerID  string `gorm:"type:varchar(36);index" json:"ownerUid"`
	PlanTier string `gorm:"size:50;not null;default:'starter'" json:"planTier"`
}

func (Organization) TableName() string {
	return "orgs"
}
