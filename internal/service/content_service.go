package service

import (
	"context"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
	"microcourse_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
)

type ModuleInput struct {
	Title              string
	ContentHTML        string
	LearningObjectives []string
}

type ModuleUpdate struct {
	Title              *string
	ContentHTML        *string
	LearningObjectives []string
}

type QuestionUpdate struct {
	StemHTML      *string
	Options       []string
	CorrectIndex  *int
	RationaleHTML *string
}

// ContentService 课程内模块与题目的维护
type ContentService struct {
	Store     *repository.Store
	Generator CourseGenerator
}

func NewContentService(store *repository.Store, generator CourseGenerator) *ContentService {
	return &ContentService{Store: store, Generator: generator}
}

func (s *ContentService) courseForModule(actor Actor, module *model.Module) (*model.Course, error) {
	course, err := s.Store.Courses.FindByID(module.CourseID)
	if err != nil {
		return nil, err
	}
	if !actor.canManageCourse(course) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

func (s *ContentService) manageableModule(actor Actor, moduleID string) (*model.Module, *model.Course, error) {
	module, err := s.Store.Modules.FindByID(moduleID)
	if err != nil {
		return nil, nil, err
	}
	course, err := s.courseForModule(actor, module)
	if err != nil {
		return nil, nil, err
	}
	return module, course, nil
}

// CreateModule 追加到课程末尾
func (s *ContentService) CreateModule(actor Actor, courseID string, in ModuleInput) (*model.Module, error) {
	course, err := s.Store.Courses.FindByID(courseID)
	if err != nil {
		return nil, err
	}
	if !actor.canManageCourse(course) {
		return nil, util.ErrPermissionDenied
	}

	verr := &util.ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "title is required")
	}
	if len(in.LearningObjectives) == 0 {
		verr.Add("learningObjectives", "at least one learning objective is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	existing, err := s.Store.Modules.FindByCourse(courseID)
	if err != nil {
		return nil, err
	}
	module := &model.Module{
		CourseID:           courseID,
		Index:              len(existing),
		Title:              strings.TrimSpace(in.Title),
		ContentHTML:        in.ContentHTML,
		LearningObjectives: in.LearningObjectives,
	}
	if err := s.Store.Modules.Create(module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *ContentService) UpdateModule(actor Actor, moduleID string, upd ModuleUpdate) (*model.Module, error) {
	module, _, err := s.manageableModule(actor, moduleID)
	if err != nil {
		return nil, err
	}

	verr := &util.ValidationError{}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			verr.Add("title", "title must not be empty")
		}
		module.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.ContentHTML != nil {
		module.ContentHTML = *upd.ContentHTML
	}
	if upd.LearningObjectives != nil {
		if len(upd.LearningObjectives) == 0 {
			verr.Add("learningObjectives", "at least one learning objective is required")
		}
		module.LearningObjectives = upd.LearningObjectives
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if err := s.Store.Modules.Update(module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *ContentService) DeleteModule(actor Actor, moduleID string) error {
	module, _, err := s.manageableModule(actor, moduleID)
	if err != nil {
		return err
	}
	if err := s.Store.Modules.Delete(moduleID); err != nil {
		return err
	}
	return s.shiftCursors(module.CourseID, module.Index)
}

// shiftCursors 删除 deletedIndex 处的模块后，让进行中报名的游标跟随重排后的下标。
// 游标越过末尾说明剩余模块都已通过，直接完成报名。
func (s *ContentService) shiftCursors(courseID string, deletedIndex int) error {
	modules, err := s.Store.Modules.FindByCourse(courseID)
	if err != nil {
		return err
	}
	enrollments, err := s.Store.Enrollments.FindByCourse(courseID)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range enrollments {
		e := &enrollments[i]
		if e.IsCompleted() {
			continue
		}
		cursor := e.CurrentModuleIndex()
		changed := false
		if cursor > deletedIndex {
			cursor--
			e.SetCurrentModuleIndex(cursor)
			changed = true
		}
		if len(modules) > 0 && cursor >= len(modules) {
			e.SetCurrentModuleIndex(len(modules) - 1)
			e.Status = model.EnrollmentCompleted
			e.CompletedAt = &now
			changed = true
		}
		if !changed {
			continue
		}
		if err := s.Store.Enrollments.Update(e); err != nil {
			logger.Log.Error("Failed to shift enrollment cursor", zap.String("enrollment_id", e.ID), zap.Error(err))
			return err
		}
	}
	return nil
}

// ImproveModule 让生成器按反馈重写模块内容和学习目标
func (s *ContentService) ImproveModule(ctx context.Context, actor Actor, moduleID, feedback string) (*model.Module, error) {
	module, _, err := s.manageableModule(actor, moduleID)
	if err != nil {
		return nil, err
	}

	improved, err := s.Generator.ImproveModule(ctx, module.ContentHTML, strings.TrimSpace(feedback))
	if err != nil {
		return nil, err
	}
	module.ContentHTML = improved.ContentHTML
	module.LearningObjectives = improved.LearningObjectives

	if err := s.Store.Modules.Update(module); err != nil {
		return nil, err
	}
	logger.Log.Info("Module content improved", zap.String("module_id", module.ID))
	return module, nil
}

// RegenerateQuiz 替换模块全部题目，Index 从 0 重新编号
func (s *ContentService) RegenerateQuiz(ctx context.Context, actor Actor, moduleID, difficulty string) ([]model.Question, error) {
	module, _, err := s.manageableModule(actor, moduleID)
	if err != nil {
		return nil, err
	}
	if difficulty == "" {
		difficulty = DifficultyIntermediate
	}

	drafts, err := s.Generator.RegenerateQuiz(ctx, module.ContentHTML, difficulty)
	if err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(drafts))
	for i, d := range drafts {
		correct, err := d.answer()
		if err == nil {
			err = validateQuestionShape(d.Options, correct)
		}
		if err != nil {
			return nil, &GenerationError{Op: "regenerate quiz", Err: err}
		}
		questions = append(questions, model.Question{
			UUIDBase:      model.UUIDBase{ID: model.GenerateUUID()},
			ModuleID:      module.ID,
			Index:         i,
			StemHTML:      d.StemHTML,
			Options:       d.Options,
			CorrectIndex:  correct,
			RationaleHTML: d.RationaleHTML,
		})
	}

	if err := s.Store.Questions.ReplaceForModule(module.ID, questions); err != nil {
		return nil, err
	}
	logger.Log.Info("Module quiz regenerated", zap.String("module_id", module.ID), zap.Int("questions", len(questions)))
	return questions, nil
}

func (s *ContentService) manageableQuestion(actor Actor, questionID string) (*model.Question, error) {
	question, err := s.Store.Questions.FindByID(questionID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.manageableModule(actor, question.ModuleID); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *ContentService) UpdateQuestion(actor Actor, questionID string, upd QuestionUpdate) (*model.Question, error) {
	question, err := s.manageableQuestion(actor, questionID)
	if err != nil {
		return nil, err
	}

	if upd.StemHTML != nil {
		question.StemHTML = *upd.StemHTML
	}
	if upd.Options != nil {
		question.Options = upd.Options
	}
	if upd.CorrectIndex != nil {
		question.CorrectIndex = *upd.CorrectIndex
	}
	if upd.RationaleHTML != nil {
		question.RationaleHTML = *upd.RationaleHTML
	}
	if strings.TrimSpace(question.StemHTML) == "" {
		return nil, util.NewValidationError("stemHtml", "stem must not be empty")
	}
	if err := validateQuestionShape(question.Options, question.CorrectIndex); err != nil {
		return nil, util.NewValidationError("options", err.Error())
	}

	if err := s.Store.Questions.Update(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *ContentService) DeleteQuestion(actor Actor, questionID string) error {
	if _, err := s.manageableQuestion(actor, questionID); err != nil {
		return err
	}
	return s.Store.Questions.Delete(questionID)
}
