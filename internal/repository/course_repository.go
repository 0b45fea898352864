package repository

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) CreateWithContent(course *model.Course) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(course).Error; err != nil {
			return err
		}

		for i := range course.Modules {
			module := &course.Modules[i]
			module.CourseID = course.ID
			if err := tx.Omit(clause.Associations).Create(module).Error; err != nil {
				return err
			}

			if len(module.Questions) == 0 {
				continue
			}
			for j := range module.Questions {
				module.Questions[j].ModuleID = module.ID
			}
			if err := tx.Create(&module.Questions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CourseRepository) FindByID(id string) (*model.Course, error) {
	var course model.Course
	if err := r.DB.Where("id = ?", id).First(&course).Error; err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	return &course, nil
}

func (r *CourseRepository) FindByOrg(orgID string) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("org_id = ?", orgID).Order("created_at desc").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Omit(clause.Associations).Save(course).Error
}

func (r *CourseRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&model.Course{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return util.ErrCourseNotFound
		}

		moduleIDs := tx.Model(&model.Module{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("module_id IN (?)", moduleIDs).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Where("course_id = ?", id).Delete(&model.Module{}).Error
	})
}
