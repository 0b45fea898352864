package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"microcourse_backend/internal/config"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/repository/memstore"
)

var sopText = strings.Repeat("Step: wash hands for twenty seconds before handling food. ", 4)

type fakeGenerator struct {
	draft       *CourseDraft
	err         error
	improvement *ModuleImprovement
	quiz        []QuestionDraft
	calls       int
	lastParams  GenerateParams
}

func (g *fakeGenerator) GenerateCourse(ctx context.Context, params GenerateParams) (*CourseDraft, error) {
	g.calls++
	g.lastParams = params
	if g.err != nil {
		return nil, g.err
	}
	return g.draft, nil
}

func (g *fakeGenerator) ImproveModule(ctx context.Context, contentHTML, feedback string) (*ModuleImprovement, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.improvement, nil
}

func (g *fakeGenerator) RegenerateQuiz(ctx context.Context, contentHTML, difficulty string) ([]QuestionDraft, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.quiz, nil
}

// sampleDraft 每道题的正确答案都是下标 1
func sampleDraft(modules, questions int) *CourseDraft {
	draft := &CourseDraft{Title: "Kitchen Hygiene", EstimatedMinutes: 12}
	for i := 0; i < modules; i++ {
		md := ModuleDraft{
			Title:              fmt.Sprintf("Module %d", i+1),
			ContentHTML:        fmt.Sprintf("<p>content %d</p>", i+1),
			LearningObjectives: []string{"Know the rule"},
		}
		for j := 0; j < questions; j++ {
			md.Questions = append(md.Questions, QuestionDraft{
				StemHTML:      fmt.Sprintf("<p>m%d q%d?</p>", i, j),
				Options:       []string{"A", "B", "C", "D"},
				CorrectIndex:  intPtr(1),
				RationaleHTML: "<p>B is right</p>",
			})
		}
		draft.Modules = append(draft.Modules, md)
	}
	return draft
}

type fixture struct {
	store     *repository.Store
	gen       *fakeGenerator
	courses   *CourseService
	content   *ContentService
	enroll    *EnrollmentService
	attempts  *AttemptService
	badges    *BadgeService
	quiz      *QuizService
	analytics *AnalyticsService

	manager  Actor
	learner  Actor
	outsider Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	gen := &fakeGenerator{draft: sampleDraft(3, 2)}

	f := &fixture{
		store:    store,
		gen:      gen,
		courses:  NewCourseService(store, gen, nil, config.CourseConfig{DefaultPassScore: 80}),
		content:  NewContentService(store, gen),
		enroll:   NewEnrollmentService(store),
		attempts: NewAttemptService(store.Attempts),
		badges:   NewBadgeService(store.Badges, false),

		manager:  Actor{UserID: "owner-1", OrgID: "org-1", Roles: []model.UserRole{model.RoleOwner, model.RoleAdmin}},
		learner:  Actor{UserID: "learner-1", OrgID: "org-1", Roles: []model.UserRole{model.RoleLearner}},
		outsider: Actor{UserID: "learner-2", OrgID: "org-2", Roles: []model.UserRole{model.RoleLearner}},
	}
	f.quiz = NewQuizService(store, NewMemoryQuizSessionStore(0), f.enroll, f.attempts, f.badges)
	f.analytics = NewAnalyticsService(store)
	return f
}

func (f *fixture) createCourse(t *testing.T, modules, questions int) *model.Course {
	t.Helper()
	course, err := f.courses.AssembleCourse(sampleDraft(modules, questions), f.manager.OrgID, f.manager.UserID, 80)
	if err != nil {
		t.Fatalf("AssembleCourse: %v", err)
	}
	return course
}

// runQuiz 打开模块并依次作答，返回结果页视图
func (f *fixture) runQuiz(t *testing.T, actor Actor, moduleID string, answers []int) *QuizView {
	t.Helper()
	ctx := context.Background()
	if _, err := f.quiz.Open(ctx, actor, moduleID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	view, err := f.quiz.Start(ctx, actor, moduleID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i, a := range answers {
		if _, err := f.quiz.Select(ctx, actor, moduleID, a); err != nil {
			t.Fatalf("Select q%d: %v", i, err)
		}
		if _, err := f.quiz.Submit(ctx, actor, moduleID); err != nil {
			t.Fatalf("Submit q%d: %v", i, err)
		}
		if view, err = f.quiz.Next(ctx, actor, moduleID); err != nil {
			t.Fatalf("Next q%d: %v", i, err)
		}
	}
	if view.Phase != PhaseResults {
		t.Fatalf("expected results phase, got %s", view.Phase)
	}
	return view
}

func intPtr(i int) *int { return &i }

func allCorrect(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
