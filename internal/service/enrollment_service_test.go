package service

import (
	"errors"
	"testing"
	"time"

	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"
)

func enrollmentAt(idx int) *model.Enrollment {
	e := &model.Enrollment{Status: model.EnrollmentInProgress}
	e.SetCurrentModuleIndex(idx)
	return e
}

func TestAdvance(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		cursor     int
		passed     int
		modules    int
		changed    bool
		wantCursor int
		wantStatus model.EnrollmentStatus
	}{
		{name: "current module advances", cursor: 0, passed: 0, modules: 3, changed: true, wantCursor: 1, wantStatus: model.EnrollmentInProgress},
		{name: "earlier module is a no-op", cursor: 2, passed: 0, modules: 3, changed: false, wantCursor: 2, wantStatus: model.EnrollmentInProgress},
		{name: "later module is a no-op", cursor: 0, passed: 2, modules: 3, changed: false, wantCursor: 0, wantStatus: model.EnrollmentInProgress},
		{name: "last module completes", cursor: 2, passed: 2, modules: 3, changed: true, wantCursor: 2, wantStatus: model.EnrollmentCompleted},
		{name: "cursor past shrunken course", cursor: 2, passed: 1, modules: 2, changed: true, wantCursor: 2, wantStatus: model.EnrollmentCompleted},
		{name: "last module ahead of cursor", cursor: 0, passed: 1, modules: 2, changed: false, wantCursor: 0, wantStatus: model.EnrollmentInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := enrollmentAt(tt.cursor)
			if got := Advance(e, tt.passed, tt.modules, now); got != tt.changed {
				t.Fatalf("changed: want=%t got=%t", tt.changed, got)
			}
			if e.CurrentModuleIndex() != tt.wantCursor || e.Status != tt.wantStatus {
				t.Fatalf("state: want=%d/%s got=%d/%s", tt.wantCursor, tt.wantStatus, e.CurrentModuleIndex(), e.Status)
			}
			if tt.wantStatus == model.EnrollmentCompleted && (e.CompletedAt == nil || !e.CompletedAt.Equal(now)) {
				t.Fatalf("completedAt not set")
			}
		})
	}

	done := enrollmentAt(2)
	Advance(done, 2, 3, now)
	if Advance(done, 2, 3, now.Add(time.Hour)) {
		t.Fatalf("completed enrollment must not change")
	}
	if !done.CompletedAt.Equal(now) {
		t.Fatalf("completedAt must not move")
	}
}

func TestModuleUnlocked(t *testing.T) {
	completed := enrollmentAt(1)
	completed.Status = model.EnrollmentCompleted

	tests := []struct {
		name  string
		e     *model.Enrollment
		index int
		want  bool
	}{
		{name: "not enrolled first module", e: nil, index: 0, want: true},
		{name: "not enrolled second module", e: nil, index: 1, want: false},
		{name: "cursor module", e: enrollmentAt(1), index: 1, want: true},
		{name: "passed module", e: enrollmentAt(1), index: 0, want: true},
		{name: "ahead of cursor", e: enrollmentAt(1), index: 2, want: false},
		{name: "completed course", e: completed, index: 4, want: true},
		{name: "negative index", e: enrollmentAt(1), index: -1, want: false},
	}
	for _, tt := range tests {
		if got := ModuleUnlocked(tt.e, tt.index); got != tt.want {
			t.Fatalf("%s: want=%t got=%t", tt.name, tt.want, got)
		}
	}
}

func TestEnrollIsIdempotent(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t, 2, 1)

	first, created, err := f.enroll.Enroll(f.learner, course.ID)
	if err != nil || !created {
		t.Fatalf("first enroll: created=%t err=%v", created, err)
	}
	if first.CurrentModuleIndex() != 0 || first.Status != model.EnrollmentInProgress {
		t.Fatalf("fresh enrollment should start at module 0: %+v", first)
	}

	second, created, err := f.enroll.Enroll(f.learner, course.ID)
	if err != nil || created {
		t.Fatalf("second enroll: created=%t err=%v", created, err)
	}
	if second.ID != first.ID {
		t.Fatalf("second enroll returned a different record")
	}

	all, _ := f.store.Enrollments.FindByCourse(course.ID)
	if len(all) != 1 {
		t.Fatalf("enrollments: want=1 got=%d", len(all))
	}

	if _, _, err := f.enroll.Enroll(f.outsider, course.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("outsider: want ErrPermissionDenied, got %v", err)
	}
	if _, _, err := f.enroll.Enroll(f.learner, "missing"); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("missing course: want ErrCourseNotFound, got %v", err)
	}
}

func TestAdvanceAfterPassPersists(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t, 2, 1)

	e, err := f.enroll.AdvanceAfterPass(f.learner.UserID, course.ID, 0)
	if err != nil || e != nil {
		t.Fatalf("not enrolled should be a no-op: e=%v err=%v", e, err)
	}

	if _, _, err := f.enroll.Enroll(f.learner, course.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := f.enroll.AdvanceAfterPass(f.learner.UserID, course.ID, 0); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := f.enroll.AdvanceAfterPass(f.learner.UserID, course.ID, 0); err != nil {
		t.Fatalf("repeat advance: %v", err)
	}

	stored, _ := f.store.Enrollments.FindByUserAndCourse(f.learner.UserID, course.ID)
	if stored.CurrentModuleIndex() != 1 {
		t.Fatalf("cursor: want=1 got=%d", stored.CurrentModuleIndex())
	}

	if _, err := f.enroll.AdvanceAfterPass(f.learner.UserID, course.ID, 1); err != nil {
		t.Fatalf("final advance: %v", err)
	}
	stored, _ = f.store.Enrollments.FindByUserAndCourse(f.learner.UserID, course.ID)
	if !stored.IsCompleted() || stored.CompletedAt == nil {
		t.Fatalf("enrollment should be completed: %+v", stored)
	}
}

func TestCourseProgress(t *testing.T) {
	f := newFixture(t)
	course := f.createCourse(t, 3, 1)

	progress, err := f.enroll.CourseProgress(f.learner, course.ID)
	if err != nil {
		t.Fatalf("CourseProgress: %v", err)
	}
	if progress.Enrolled || !progress.Modules[0].Unlocked || progress.Modules[1].Unlocked {
		t.Fatalf("unenrolled progress: %+v", progress)
	}

	_, _, _ = f.enroll.Enroll(f.learner, course.ID)
	_, _ = f.enroll.AdvanceAfterPass(f.learner.UserID, course.ID, 0)

	progress, _ = f.enroll.CourseProgress(f.learner, course.ID)
	want := []struct{ unlocked, completed bool }{{true, true}, {true, false}, {false, false}}
	for i, w := range want {
		m := progress.Modules[i]
		if m.Unlocked != w.unlocked || m.Completed != w.completed {
			t.Fatalf("module %d: want=%+v got unlocked=%t completed=%t", i, w, m.Unlocked, m.Completed)
		}
	}

	mine, err := f.enroll.MyEnrollments(f.learner)
	if err != nil || len(mine) != 1 || mine[0].Course == nil || mine[0].Course.ID != course.ID {
		t.Fatalf("MyEnrollments: %+v err=%v", mine, err)
	}
}
