package repository

import (
	"microcourse_backend/internal/model"

	"gorm.io/gorm"
)

// AttemptRepository 只提供追加与查询，不提供更新和删除
type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = model.GenerateUUID()
	}
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByUserAndCourse(userID, courseID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("created_at asc").
		Find(&attempts).Error
	return attempts, err
}
