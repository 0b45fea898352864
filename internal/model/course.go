package model

import (
	"time"

	"gorm.io/datatypes"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
)

const (
	MinPassScore     = 50
	MaxPassScore     = 100
	DefaultPassScore = 80
)

// swagger:model Course
type Course struct {
	UUIDBase
	OrgID       string       `gorm:"type:varchar(36);index;not null" json:"orgId"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Status      CourseStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	PassScore   int          `gorm:"not null;default:80" json:"passScore"`
	EstMinutes  *int         `json:"estMins,omitempty"`
	CreatedBy   string       `gorm:"type:varchar(36);not null" json:"createdBy"`
	PublishedAt *time.Time   `json:"publishedAt,omitempty"`

	Modules []Module `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Module 课程内的一个有序单元，Index 在课程内唯一且连续
// swagger:model Module
type Module struct {
	UUIDBase
	CourseID           string                      `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Index              int                         `gorm:"column:sort_index;not null" json:"index"`
	Title              string                      `gorm:"size:255;not null" json:"title"`
	ContentHTML        string                      `gorm:"type:text;not null" json:"contentHtml"`
	LearningObjectives datatypes.JSONSlice[string] `gorm:"not null" json:"learningObjectives"`

	Questions []Question `gorm:"foreignKey:ModuleID" json:"questions,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

// swagger:model Question
type Question struct {
	UUIDBase
	ModuleID      string                      `gorm:"type:varchar(36);index;not null" json:"moduleId"`
	Index         int                         `gorm:"column:sort_index;not null" json:"index"`
	StemHTML      string                      `gorm:"type:text;not null" json:"stemHtml"`
	Options       datatypes.JSONSlice[string] `gorm:"not null" json:"options"`
	CorrectIndex  int                         `gorm:"not null" json:"correctIndex"`
	RationaleHTML string                      `gorm:"type:text;not null" json:"rationaleHtml"`
}

func (Question) TableName() string {
	return "questions"
}
