package repository

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) Create(module *model.Module) error {
	return r.DB.Omit(clause.Associations).Create(module).Error
}

func (r *ModuleRepository) FindByID(id string) (*model.Module, error) {
	var module model.Module
	if err := r.DB.Where("id = ?", id).First(&module).Error; err != nil {
		return nil, notFound(err, util.ErrModuleNotFound)
	}
	return &module, nil
}

func (r *ModuleRepository) FindByCourse(courseID string) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.Where("course_id = ?", courseID).Order("sort_index asc").Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) Update(module *model.Module) error {
	return r.DB.Omit(clause.Associations).Save(module).Error
}

func (r *ModuleRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var module model.Module
		if err := tx.Where("id = ?", id).First(&module).Error; err != nil {
			return notFound(err, util.ErrModuleNotFound)
		}

		if err := tx.Where("module_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&module).Error; err != nil {
			return err
		}

		// 保持 Index 连续
		return tx.Model(&model.Module{}).
			Where("course_id = ? AND sort_index > ?", module.CourseID, module.Index).
			Update("sort_index", gorm.Expr("sort_index - 1")).Error
	})
}

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) FindByID(id string) (*model.Question, error) {
	var question model.Question
	if err := r.DB.Where("id = ?", id).First(&question).Error; err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}
	return &question, nil
}

func (r *QuestionRepository) FindByModule(moduleID string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("module_id = ?", moduleID).Order("sort_index asc").Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) Update(question *model.Question) error {
	return r.DB.Save(question).Error
}

func (r *QuestionRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var question model.Question
		if err := tx.Where("id = ?", id).First(&question).Error; err != nil {
			return notFound(err, util.ErrQuestionNotFound)
		}
		if err := tx.Delete(&question).Error; err != nil {
			return err
		}
		return tx.Model(&model.Question{}).
			Where("module_id = ? AND sort_index > ?", question.ModuleID, question.Index).
			Update("sort_index", gorm.Expr("sort_index - 1")).Error
	})
}

func (r *QuestionRepository) ReplaceForModule(moduleID string, questions []model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("module_id = ?", moduleID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			questions[i].ModuleID = moduleID
		}
		return tx.Create(&questions).Error
	})
}
