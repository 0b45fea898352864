package model

import "time"

// Attempt 一次作答记录，只追加不修改
// swagger:model Attempt
type Attempt struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string    `gorm:"type:varchar(36);index:idx_attempt_user_course;not null" json:"userId"`
	CourseID      string    `gorm:"type:varchar(36);index:idx_attempt_user_course;not null" json:"courseId"`
	ModuleID      string    `gorm:"type:varchar(36);not null" json:"moduleId"`
	QuestionID    string    `gorm:"type:varchar(36);index;not null" json:"questionId"`
	SelectedIndex int       `gorm:"not null" json:"selectedIndex"`
	IsCorrect     bool      `gorm:"not null" json:"isCorrect"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Attempt) TableName() string {
	return "attempts"
}
