package model

import "time"

// swagger:model Badge
type Badge struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	CourseID       string    `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	AwardedAt      time.Time `json:"awardedAt"`
	CertificateURL *string   `gorm:"size:512" json:"certificateUrl,omitempty"`
}

func (Badge) TableName() string {
	return "badges"
}

func CompletionBadgeName(courseTitle string) string {
	return courseTitle + " Completion"
}
