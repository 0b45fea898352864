package model

import (
	"time"

	"gorm.io/datatypes"
)

type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
)

// Progress 学习进度游标，只允许向前移动
type Progress struct {
	CurrentModuleIndex int `json:"moduleIndex"`
}

// swagger:model Enrollment
type Enrollment struct {
	ID          string                       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrgID       string                       `gorm:"type:varchar(36);index;not null" json:"orgId"`
	CourseID    string                       `gorm:"type:varchar(36);uniqueIndex:idx_enrollment_user_course;not null" json:"courseId"`
	UserID      string                       `gorm:"type:varchar(36);uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	Status      EnrollmentStatus             `gorm:"size:20;not null;default:'in_progress'" json:"status"`
	Progress    datatypes.JSONType[Progress] `json:"progress"`
	StartedAt   time.Time                    `json:"startedAt"`
	CompletedAt *time.Time                   `json:"completedAt,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (e *Enrollment) CurrentModuleIndex() int {
	return e.Progress.Data().CurrentModuleIndex
}

func (e *Enrollment) SetCurrentModuleIndex(idx int) {
	e.Progress = datatypes.NewJSONType(Progress{CurrentModuleIndex: idx})
}

func (e *Enrollment) IsCompleted() bool {
	return e.Status == EnrollmentCompleted
}
