package model

import "gorm.io/datatypes"

type UserRole string

const (
	RoleOwner   UserRole = "owner"
	RoleAdmin   UserRole = "admin"
	RoleLearner UserRole = "learner"
)

// swagger:model User
type User struct {
	UUIDBase
	Email       string                        `gorm:"size:191;uniqueIndex;not null" json:"email"`
	DisplayName string                        `gorm:"size:100;not null" json:"displayName"`
	OrgID       *string                       `gorm:"type:varchar(36);index" json:"orgId"`
	Roles       datatypes.JSONSlice[UserRole] `gorm:"not null" json:"roles"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) HasRole(role UserRole) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// OrganizationID 返回用户所属组织，未加入组织时为空串
func (u *User) OrganizationID() string {
	if u.OrgID == nil {
		return ""
	}
	return *u.OrgID
}
