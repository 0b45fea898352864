package service

import (
	"context"
	"errors"
	"testing"

	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"
)

func TestCreateAndDeleteModuleKeepsIndexesContiguous(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t, 2, 1)

	added, err := f.content.CreateModule(f.manager, course.ID, ModuleInput{
		Title:              "Cleanup",
		ContentHTML:        "<p>wipe down</p>",
		LearningObjectives: []string{"Clean the station"},
	})
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	if added.Index != 2 {
		t.Fatalf("new module should be appended: index=%d", added.Index)
	}

	if err := f.content.DeleteModule(f.manager, course.Modules[0].ID); err != nil {
		t.Fatalf("DeleteModule: %v", err)
	}
	modules, _ := f.store.Modules.FindByCourse(course.ID)
	if len(modules) != 2 {
		t.Fatalf("modules: want=2 got=%d", len(modules))
	}
	for i, m := range modules {
		if m.Index != i {
			t.Fatalf("module %d has index %d after delete", i, m.Index)
		}
	}
	if modules[1].ID != added.ID {
		t.Fatalf("appended module should now be last")
	}

	if _, err := f.content.CreateModule(f.learner, course.ID, ModuleInput{Title: "x", LearningObjectives: []string{"y"}}); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("learner: want ErrPermissionDenied, got %v", err)
	}
	var verr *util.ValidationError
	if _, err := f.content.CreateModule(f.manager, course.ID, ModuleInput{Title: " "}); !errors.As(err, &verr) {
		t.Fatalf("blank module: want ValidationError, got %v", err)
	}
}

func TestImproveModule(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t, 1, 1)
	f.gen.improvement = &ModuleImprovement{
		ContentHTML:        "<p>clearer</p>",
		LearningObjectives: []string{"One", "Two"},
	}

	module, err := f.content.ImproveModule(context.Background(), f.manager, course.Modules[0].ID, "make it clearer")
	if err != nil {
		t.Fatalf("ImproveModule: %v", err)
	}
	stored, _ := f.store.Modules.FindByID(module.ID)
	if stored.ContentHTML != "<p>clearer</p>" || len(stored.LearningObjectives) != 2 {
		t.Fatalf("module not updated: %+v", stored)
	}

	f.gen.err = &GenerationError{Op: "improve module", Err: errors.New("bad json")}
	if _, err := f.content.ImproveModule(context.Background(), f.manager, course.Modules[0].ID, ""); !errors.Is(err, util.ErrGenerationFailed) {
		t.Fatalf("want ErrGenerationFailed, got %v", err)
	}
	stored, _ = f.store.Modules.FindByID(module.ID)
	if stored.ContentHTML != "<p>clearer</p>" {
		t.Fatalf("failed improvement must not touch the module")
	}
}

func TestRegenerateQuizReplacesQuestions(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t, 1, 3)
	moduleID := course.Modules[0].ID
	f.gen.quiz = []QuestionDraft{
		{StemHTML: "<p>new 1</p>", Options: []string{"A", "B"}, CorrectIndex: intPtr(0)},
		{StemHTML: "<p>new 2</p>", Options: []string{"A", "B", "C"}, CorrectIndex: intPtr(2)},
	}

	questions, err := f.content.RegenerateQuiz(context.Background(), f.manager, moduleID, "")
	if err != nil {
		t.Fatalf("RegenerateQuiz: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("questions: want=2 got=%d", len(questions))
	}
	stored, _ := f.store.Questions.FindByModule(moduleID)
	if len(stored) != 2 || stored[0].StemHTML != "<p>new 1</p>" || stored[1].Index != 1 {
		t.Fatalf("questions not replaced: %+v", stored)
	}

	f.gen.quiz = []QuestionDraft{{StemHTML: "<p>broken</p>", Options: []string{"A", "B"}, CorrectIndex: intPtr(5)}}
	if _, err := f.content.RegenerateQuiz(context.Background(), f.manager, moduleID, ""); !errors.Is(err, util.ErrGenerationFailed) {
		t.Fatalf("want ErrGenerationFailed, got %v", err)
	}
	stored, _ = f.store.Questions.FindByModule(moduleID)
	if len(stored) != 2 {
		t.Fatalf("rejected quiz must leave existing questions, got %d", len(stored))
	}
}

func TestUpdateAndDeleteQuestion(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t, 1, 3)
	questions := course.Modules[0].Questions

	correct := 3
	if _, err := f.content.UpdateQuestion(f.manager, questions[0].ID, QuestionUpdate{CorrectIndex: &correct}); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	outOfRange := 4
	var verr *util.ValidationError
	if _, err := f.content.UpdateQuestion(f.manager, questions[0].ID, QuestionUpdate{CorrectIndex: &outOfRange}); !errors.As(err, &verr) {
		t.Fatalf("out of range: want ValidationError, got %v", err)
	}
	stored, _ := f.store.Questions.FindByID(questions[0].ID)
	if stored.CorrectIndex != 3 {
		t.Fatalf("rejected update leaked: %d", stored.CorrectIndex)
	}

	if err := f.content.DeleteQuestion(f.manager, questions[0].ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	remaining, _ := f.store.Questions.FindByModule(course.Modules[0].ID)
	if len(remaining) != 2 || remaining[0].Index != 0 || remaining[1].Index != 1 {
		t.Fatalf("questions not reindexed: %+v", remaining)
	}

	if err := f.content.DeleteQuestion(f.learner, remaining[0].ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("learner: want ErrPermissionDenied, got %v", err)
	}
}

func TestDeleteModuleKeepsEnrollmentReachable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.createCourse(t, 3, 1)
	_, _, _ = f.enroll.Enroll(f.learner, course.ID)

	for _, m := range course.Modules[:2] {
		f.runQuiz(t, f.learner, m.ID, allCorrect(1))
		if _, err := f.quiz.Complete(ctx, f.learner, m.ID); err != nil {
			t.Fatalf("Complete %s: %v", m.ID, err)
		}
	}

	if err := f.content.DeleteModule(f.manager, course.Modules[0].ID); err != nil {
		t.Fatalf("DeleteModule: %v", err)
	}
	e, _ := f.store.Enrollments.FindByUserAndCourse(f.learner.UserID, course.ID)
	if e.CurrentModuleIndex() != 1 {
		t.Fatalf("cursor should follow the reindexed module: got %d", e.CurrentModuleIndex())
	}

	last := course.Modules[2].ID
	f.runQuiz(t, f.learner, last, allCorrect(1))
	done, err := f.quiz.Complete(ctx, f.learner, last)
	if err != nil {
		t.Fatalf("Complete last: %v", err)
	}
	if done.Enrollment == nil || done.Enrollment.Status != model.EnrollmentCompleted || done.Enrollment.CompletedAt == nil {
		t.Fatalf("passing the final module should complete the enrollment: %+v", done.Enrollment)
	}
}

func TestDeleteRemainingModuleCompletesEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.createCourse(t, 2, 1)
	_, _, _ = f.enroll.Enroll(f.learner, course.ID)

	f.runQuiz(t, f.learner, course.Modules[0].ID, allCorrect(1))
	if _, err := f.quiz.Complete(ctx, f.learner, course.Modules[0].ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if err := f.content.DeleteModule(f.manager, course.Modules[1].ID); err != nil {
		t.Fatalf("DeleteModule: %v", err)
	}
	e, _ := f.store.Enrollments.FindByUserAndCourse(f.learner.UserID, course.ID)
	if e.Status != model.EnrollmentCompleted || e.CurrentModuleIndex() != 0 {
		t.Fatalf("all remaining modules passed, want completed at 0: %s/%d", e.Status, e.CurrentModuleIndex())
	}
}
