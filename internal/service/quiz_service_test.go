package service

import (
	"context"
	"errors"
	"testing"

	"microcourse_backend/internal/util"
)

func TestQuizFlowCompletesCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.createCourse(t, 2, 2)
	m0, m1 := course.Modules[0].ID, course.Modules[1].ID

	if _, _, err := f.enroll.Enroll(f.learner, course.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := f.quiz.Open(ctx, f.learner, m1); !errors.Is(err, util.ErrModuleLocked) {
		t.Fatalf("second module before passing first: want ErrModuleLocked, got %v", err)
	}

	view := f.runQuiz(t, f.learner, m0, allCorrect(2))
	if view.ScorePercent == nil || *view.ScorePercent != 100 || view.Passed == nil || !*view.Passed {
		t.Fatalf("module 0 results: %+v", view)
	}
	done, err := f.quiz.Complete(ctx, f.learner, m0)
	if err != nil {
		t.Fatalf("Complete m0: %v", err)
	}
	if done.Enrollment == nil || done.Enrollment.CurrentModuleIndex() != 1 {
		t.Fatalf("cursor should move to module 1: %+v", done.Enrollment)
	}
	if _, err := f.quiz.State(ctx, f.learner, m0); !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("session should be cleared after complete, got %v", err)
	}

	f.runQuiz(t, f.learner, m1, allCorrect(2))
	done, err = f.quiz.Complete(ctx, f.learner, m1)
	if err != nil {
		t.Fatalf("Complete m1: %v", err)
	}
	if !done.Enrollment.IsCompleted() {
		t.Fatalf("course should be completed")
	}

	badges, _ := f.badges.MyBadges(f.learner)
	if len(badges) != 1 || badges[0].Name != "Kitchen Hygiene Completion" || badges[0].CourseID != course.ID {
		t.Fatalf("expected exactly one completion badge, got %+v", badges)
	}

	attempts, _ := f.attempts.ListForCourse(f.learner, course.ID)
	if len(attempts) != 4 {
		t.Fatalf("attempts: want=4 got=%d", len(attempts))
	}
}

func TestFailedQuizDoesNotAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.createCourse(t, 2, 2)
	m0 := course.Modules[0].ID
	_, _, _ = f.enroll.Enroll(f.learner, course.ID)

	f.runQuiz(t, f.learner, m0, []int{1, 0})
	if _, err := f.quiz.Retry(ctx, f.learner, m0); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	view, err := f.quiz.State(ctx, f.learner, m0)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if view.Phase != PhaseQuiz || view.CurrentQuestionIndex != 0 || view.CorrectCount != 0 {
		t.Fatalf("retry should restart the quiz: %+v", view)
	}

	if _, err := f.quiz.Complete(ctx, f.learner, m0); !errors.Is(err, util.ErrInvalidTransition) {
		t.Fatalf("complete mid-quiz: want ErrInvalidTransition, got %v", err)
	}

	f.runQuiz(t, f.learner, m0, []int{0, 0})
	done, err := f.quiz.Complete(ctx, f.learner, m0)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Passed || done.Enrollment != nil {
		t.Fatalf("failed run must not advance: %+v", done)
	}

	e, _ := f.enroll.FindEnrollment(f.learner.UserID, course.ID)
	if e.CurrentModuleIndex() != 0 {
		t.Fatalf("cursor: want=0 got=%d", e.CurrentModuleIndex())
	}
}

func TestRepassingEarlierModuleKeepsCursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.createCourse(t, 3, 1)
	m0 := course.Modules[0].ID
	_, _, _ = f.enroll.Enroll(f.learner, course.ID)

	f.runQuiz(t, f.learner, m0, allCorrect(1))
	_, _ = f.quiz.Complete(ctx, f.learner, m0)

	f.runQuiz(t, f.learner, m0, allCorrect(1))
	done, err := f.quiz.Complete(ctx, f.learner, m0)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Enrollment.CurrentModuleIndex() != 1 {
		t.Fatalf("cursor must not move on a re-pass: got %d", done.Enrollment.CurrentModuleIndex())
	}
}

func TestUnenrolledLearnerPreviewsFirstModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.createCourse(t, 2, 1)

	view, err := f.quiz.Open(ctx, f.learner, course.Modules[0].ID)
	if err != nil {
		t.Fatalf("Open first module: %v", err)
	}
	if view.Phase != PhaseContent || view.Module == nil || view.IsFinalModule {
		t.Fatalf("unexpected content view: %+v", view)
	}
	if _, err := f.quiz.Open(ctx, f.learner, course.Modules[1].ID); !errors.Is(err, util.ErrModuleLocked) {
		t.Fatalf("second module: want ErrModuleLocked, got %v", err)
	}

	f.runQuiz(t, f.learner, course.Modules[0].ID, allCorrect(1))
	done, err := f.quiz.Complete(ctx, f.learner, course.Modules[0].ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !done.Passed || done.Enrollment != nil {
		t.Fatalf("preview pass should not create progress: %+v", done)
	}
}

func TestQuizRejectsOtherOrganizations(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t, 1, 1)

	if _, err := f.quiz.Open(context.Background(), f.outsider, course.Modules[0].ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}
	if _, err := f.quiz.Start(context.Background(), f.learner, course.Modules[0].ID); !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("start without open: want ErrQuizSessionNotFound, got %v", err)
	}
}
