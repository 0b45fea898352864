package repository

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(enrollment *model.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = model.GenerateUUID()
	}
	if err := r.DB.Create(enrollment).Error; err != nil {
		if isDuplicate(err) {
			return util.ErrEnrollmentExists
		}
		return err
	}
	return nil
}

func (r *EnrollmentRepository) FindByID(id string) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := r.DB.Where("id = ?", id).First(&e).Error; err != nil {
		return nil, notFound(err, util.ErrEnrollmentNotFound)
	}
	return &e, nil
}

func (r *EnrollmentRepository) FindByUserAndCourse(userID, courseID string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		return nil, notFound(err, util.ErrEnrollmentNotFound)
	}
	return &e, nil
}

func (r *EnrollmentRepository) FindByUser(userID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Where("user_id = ?", userID).Order("started_at desc").Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) FindByCourse(courseID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Where("course_id = ?", courseID).Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) Update(enrollment *model.Enrollment) error {
	return r.DB.Save(enrollment).Error
}
