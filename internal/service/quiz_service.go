package service

import (
	"context"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
	"microcourse_backend/pkg/logger"
	"microcourse_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// QuestionView 当前题目；提交前不暴露正确答案
type QuestionView struct {
	ID            string   `json:"id"`
	Index         int      `json:"index"`
	StemHTML      string   `json:"stemHtml"`
	Options       []string `json:"options"`
	Selected      *int     `json:"selected"`
	Submitted     bool     `json:"submitted"`
	CorrectIndex  *int     `json:"correctIndex,omitempty"`
	IsCorrect     *bool    `json:"isCorrect,omitempty"`
	RationaleHTML string   `json:"rationaleHtml,omitempty"`
}

type QuizView struct {
	CourseID             string        `json:"courseId"`
	ModuleID             string        `json:"moduleId"`
	ModuleIndex          int           `json:"moduleIndex"`
	IsFinalModule        bool          `json:"isFinalModule"`
	Phase                QuizPhase     `json:"phase"`
	PassScore            int           `json:"passScore"`
	TotalQuestions       int           `json:"totalQuestions"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	CorrectCount         int           `json:"correctCount"`
	Question             *QuestionView `json:"question,omitempty"`
	ScorePercent         *int          `json:"scorePercent,omitempty"`
	Passed               *bool         `json:"passed,omitempty"`
	Module               *model.Module `json:"module,omitempty"`
}

type QuizCompletion struct {
	Passed       bool              `json:"passed"`
	ScorePercent int               `json:"scorePercent"`
	Enrollment   *model.Enrollment `json:"enrollment,omitempty"`
}

func NewQuizView(s *QuizSession) *QuizView {
	v := &QuizView{
		CourseID:             s.CourseID,
		ModuleID:             s.ModuleID,
		ModuleIndex:          s.ModuleIndex,
		IsFinalModule:        s.IsFinalModule,
		Phase:                s.Phase,
		PassScore:            s.PassScore,
		TotalQuestions:       len(s.Questions),
		CurrentQuestionIndex: s.Current,
		CorrectCount:         s.CorrectCount,
	}

	switch s.Phase {
	case PhaseQuiz:
		q := s.Questions[s.Current]
		st := s.States[s.Current]
		qv := &QuestionView{
			ID:        q.ID,
			Index:     s.Current,
			StemHTML:  q.StemHTML,
			Options:   q.Options,
			Selected:  st.Selected,
			Submitted: st.Submitted,
		}
		if s.ShowFeedback && st.Submitted {
			correct := q.CorrectIndex
			isCorrect := st.Selected != nil && *st.Selected == q.CorrectIndex
			qv.CorrectIndex = &correct
			qv.IsCorrect = &isCorrect
			qv.RationaleHTML = q.RationaleHTML
		}
		v.Question = qv
	case PhaseResults:
		score, passed := s.ScorePercent, s.Passed
		v.ScorePercent = &score
		v.Passed = &passed
	}
	return v
}

// QuizService 把测验状态机暴露为按请求推进的服务端会话
type QuizService struct {
	Store       *repository.Store
	Sessions    QuizSessionStore
	Enrollments *EnrollmentService
	Attempts    AttemptRecorder
	Badges      BadgeAwarder
}

func NewQuizService(store *repository.Store, sessions QuizSessionStore, enrollments *EnrollmentService, attempts AttemptRecorder, badges BadgeAwarder) *QuizService {
	return &QuizService{
		Store:       store,
		Sessions:    sessions,
		Enrollments: enrollments,
		Attempts:    attempts,
		Badges:      badges,
	}
}

// Open 打开模块内容页并开始新的会话；锁定的模块返回 ErrModuleLocked
func (s *QuizService) Open(ctx context.Context, actor Actor, moduleID string) (*QuizView, error) {
	module, err := s.Store.Modules.FindByID(moduleID)
	if err != nil {
		return nil, err
	}
	course, err := s.Store.Courses.FindByID(module.CourseID)
	if err != nil {
		return nil, err
	}
	if !actor.canAccessCourse(course) {
		return nil, util.ErrPermissionDenied
	}

	enrollment, err := s.Enrollments.FindEnrollment(actor.UserID, course.ID)
	if err != nil {
		return nil, err
	}
	if !ModuleUnlocked(enrollment, module.Index) {
		return nil, util.ErrModuleLocked
	}

	modules, err := s.Store.Modules.FindByCourse(course.ID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Store.Questions.FindByModule(module.ID)
	if err != nil {
		return nil, err
	}

	session := NewQuizSession(actor.UserID, course, module, questions, len(modules))
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	view := NewQuizView(session)
	view.Module = module
	return view, nil
}

// apply 读取会话、执行一次状态转换并保存
func (s *QuizService) apply(ctx context.Context, actor Actor, moduleID string, step func(*QuizSession) error) (*QuizView, error) {
	session, err := s.Sessions.Get(ctx, actor.UserID, moduleID)
	if err != nil {
		return nil, err
	}
	if err := step(session); err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return NewQuizView(session), nil
}

// State 返回当前会话状态，不做任何转换
func (s *QuizService) State(ctx context.Context, actor Actor, moduleID string) (*QuizView, error) {
	session, err := s.Sessions.Get(ctx, actor.UserID, moduleID)
	if err != nil {
		return nil, err
	}
	return NewQuizView(session), nil
}

func (s *QuizService) Start(ctx context.Context, actor Actor, moduleID string) (*QuizView, error) {
	return s.apply(ctx, actor, moduleID, func(q *QuizSession) error {
		if err := q.Start(s.Badges); err != nil {
			return err
		}
		if q.Phase == PhaseResults {
			recordQuizResult(q)
		}
		return nil
	})
}

func (s *QuizService) Select(ctx context.Context, actor Actor, moduleID string, option int) (*QuizView, error) {
	return s.apply(ctx, actor, moduleID, func(q *QuizSession) error {
		return q.Select(option)
	})
}

func (s *QuizService) Submit(ctx context.Context, actor Actor, moduleID string) (*QuizView, error) {
	return s.apply(ctx, actor, moduleID, func(q *QuizSession) error {
		_, err := q.Submit(s.Attempts)
		return err
	})
}

func (s *QuizService) Next(ctx context.Context, actor Actor, moduleID string) (*QuizView, error) {
	return s.apply(ctx, actor, moduleID, func(q *QuizSession) error {
		if err := q.Next(s.Badges); err != nil {
			return err
		}
		if q.Phase == PhaseResults {
			recordQuizResult(q)
		}
		return nil
	})
}

func (s *QuizService) Previous(ctx context.Context, actor Actor, moduleID string) (*QuizView, error) {
	return s.apply(ctx, actor, moduleID, func(q *QuizSession) error {
		return q.Previous()
	})
}

func (s *QuizService) Retry(ctx context.Context, actor Actor, moduleID string) (*QuizView, error) {
	return s.apply(ctx, actor, moduleID, func(q *QuizSession) error {
		return q.Retry()
	})
}

// Complete 结束会话；通过时推进报名进度
func (s *QuizService) Complete(ctx context.Context, actor Actor, moduleID string) (*QuizCompletion, error) {
	session, err := s.Sessions.Get(ctx, actor.UserID, moduleID)
	if err != nil {
		return nil, err
	}
	passed, err := session.Complete()
	if err != nil {
		return nil, err
	}

	result := &QuizCompletion{Passed: passed, ScorePercent: session.ScorePercent}
	if passed {
		enrollment, err := s.Enrollments.AdvanceAfterPass(actor.UserID, session.CourseID, session.ModuleIndex)
		if err != nil {
			return nil, err
		}
		result.Enrollment = enrollment
	}

	if err := s.Sessions.Delete(ctx, actor.UserID, moduleID); err != nil {
		logger.Log.Warn("Failed to delete quiz session", zap.String("module_id", moduleID), zap.Error(err))
	}
	return result, nil
}

func recordQuizResult(q *QuizSession) {
	result := "failed"
	if q.Passed {
		result = "passed"
	}
	monitoring.QuizResultCounter.WithLabelValues(result).Inc()
	logger.Log.Info("Module quiz finished",
		zap.String("user_id", q.UserID),
		zap.String("module_id", q.ModuleID),
		zap.Int("score", q.ScorePercent),
		zap.Bool("passed", q.Passed))
}
