package repository

import (
	"microcourse_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) Create(badge *model.Badge) error {
	if badge.ID == "" {
		badge.ID = model.GenerateUUID()
	}
	if badge.AwardedAt.IsZero() {
		badge.AwardedAt = time.Now()
	}
	return r.DB.Create(badge).Error
}

func (r *BadgeRepository) FindByUser(userID string) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.Where("user_id = ?", userID).Order("awarded_at desc").Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) FindByUserAndCourse(userID, courseID string) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) FindByCourse(courseID string) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.Where("course_id = ?", courseID).Find(&badges).Error
	return badges, err
}
