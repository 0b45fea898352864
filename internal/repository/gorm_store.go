package repository

import (
	"errors"

	"gorm.io/gorm"
)

func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:         NewUserRepository(db),
		Organizations: NewOrganizationRepository(db),
		Courses:       NewCourseRepository(db),
		Modules:       NewModuleRepository(db),
		Questions:     NewQuestionRepository(db),
		Enrollments:   NewEnrollmentRepository(db),
		Attempts:      NewAttemptRepository(db),
		Badges:        NewBadgeRepository(db),
		Uploads:       NewUploadRepository(db),
	}
}

// notFound 将 gorm.ErrRecordNotFound 翻译为领域错误
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
