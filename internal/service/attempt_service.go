package service

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
	"strings"
)

type RecordAttemptInput struct {
	CourseID      string
	ModuleID      string
	QuestionID    string
	SelectedIndex int
	IsCorrect     bool
}

// AttemptService 作答记录只追加；不校验题目是否对学习者可见
type AttemptService struct {
	Repo repository.AttemptStore
}

func NewAttemptService(repo repository.AttemptStore) *AttemptService {
	return &AttemptService{Repo: repo}
}

func (s *AttemptService) Record(actor Actor, in RecordAttemptInput) (*model.Attempt, error) {
	verr := &util.ValidationError{}
	if strings.TrimSpace(in.CourseID) == "" {
		verr.Add("courseId", "courseId is required")
	}
	if strings.TrimSpace(in.ModuleID) == "" {
		verr.Add("moduleId", "moduleId is required")
	}
	if strings.TrimSpace(in.QuestionID) == "" {
		verr.Add("questionId", "questionId is required")
	}
	if in.SelectedIndex < 0 {
		verr.Add("selectedIndex", "selectedIndex must not be negative")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	attempt := &model.Attempt{
		UserID:        actor.UserID,
		CourseID:      in.CourseID,
		ModuleID:      in.ModuleID,
		QuestionID:    in.QuestionID,
		SelectedIndex: in.SelectedIndex,
		IsCorrect:     in.IsCorrect,
	}
	if err := s.Repo.Create(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// RecordAttempt 供测验状态机使用
func (s *AttemptService) RecordAttempt(attempt *model.Attempt) error {
	return s.Repo.Create(attempt)
}

func (s *AttemptService) ListForCourse(actor Actor, courseID string) ([]model.Attempt, error) {
	attempts, err := s.Repo.FindByUserAndCourse(actor.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}
