package service

import (
	"errors"
	"testing"
	"time"

	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository/memstore"
	"microcourse_backend/internal/util"
)

func TestBadgeDeduplication(t *testing.T) {
	tests := []struct {
		name        string
		deduplicate bool
		wantBadges  int
	}{
		{name: "repeat awards kept", deduplicate: false, wantBadges: 2},
		{name: "repeat awards collapsed", deduplicate: true, wantBadges: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			svc := NewBadgeService(store.Badges, tt.deduplicate)

			first, created, err := svc.Award("user-1", "course-1", "Safety Completion")
			if err != nil || !created {
				t.Fatalf("first award: created=%t err=%v", created, err)
			}
			second, created, err := svc.Award("user-1", "course-1", "Safety Completion")
			if err != nil {
				t.Fatalf("second award: %v", err)
			}
			if created == tt.deduplicate {
				t.Fatalf("second award created=%t with deduplicate=%t", created, tt.deduplicate)
			}
			if tt.deduplicate && second.ID != first.ID {
				t.Fatalf("deduplicated award should return the existing badge")
			}

			badges, _ := svc.MyBadges(Actor{UserID: "user-1"})
			if len(badges) != tt.wantBadges {
				t.Fatalf("badges: want=%d got=%d", tt.wantBadges, len(badges))
			}
		})
	}
}

func TestBadgeValidation(t *testing.T) {
	svc := NewBadgeService(memstore.New().Badges, false)
	var verr *util.ValidationError
	if _, _, err := svc.Award("user-1", "", "x"); !errors.As(err, &verr) {
		t.Fatalf("missing course: want ValidationError, got %v", err)
	}
	if _, _, err := svc.Award("user-1", "course-1", "  "); !errors.As(err, &verr) {
		t.Fatalf("blank name: want ValidationError, got %v", err)
	}
}

func TestAttemptsAreAppendOnly(t *testing.T) {
	svc := NewAttemptService(memstore.New().Attempts)
	actor := Actor{UserID: "user-1", OrgID: "org-1"}

	for i, correct := range []bool{false, true, true} {
		if _, err := svc.Record(actor, RecordAttemptInput{
			CourseID:      "course-1",
			ModuleID:      "module-1",
			QuestionID:    "q-1",
			SelectedIndex: i,
			IsCorrect:     correct,
		}); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	attempts, err := svc.ListForCourse(actor, "course-1")
	if err != nil {
		t.Fatalf("ListForCourse: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("attempts: want=3 got=%d", len(attempts))
	}
	for i, a := range attempts {
		if a.SelectedIndex != i || a.UserID != "user-1" {
			t.Fatalf("attempt %d out of order or misattributed: %+v", i, a)
		}
	}

	var verr *util.ValidationError
	if _, err := svc.Record(actor, RecordAttemptInput{CourseID: "course-1", SelectedIndex: -1}); !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected moduleId, questionId and selectedIndex errors, got %v", verr.Fields)
	}

	others, _ := svc.ListForCourse(Actor{UserID: "user-2"}, "course-1")
	if len(others) != 0 {
		t.Fatalf("attempts leaked across users")
	}
}

func TestAnalyticsOverview(t *testing.T) {
	f := newFixture(t)
	published := f.createCourse(t, 1, 1)
	f.createCourse(t, 1, 1)

	status := model.CoursePublished
	if _, err := f.courses.UpdateCourse(f.manager, published.ID, CourseUpdate{Status: &status}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	finish := start.Add(30 * time.Minute)
	for _, e := range []*model.Enrollment{
		{OrgID: "org-1", CourseID: published.ID, UserID: "learner-1", Status: model.EnrollmentCompleted, StartedAt: start, CompletedAt: &finish},
		{OrgID: "org-1", CourseID: published.ID, UserID: "learner-2", Status: model.EnrollmentInProgress, StartedAt: start},
	} {
		if err := f.store.Enrollments.Create(e); err != nil {
			t.Fatalf("seed enrollment: %v", err)
		}
	}
	if _, _, err := f.badges.Award("learner-1", published.ID, "Kitchen Hygiene Completion"); err != nil {
		t.Fatalf("seed badge: %v", err)
	}

	overview, err := f.analytics.Overview(f.manager)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	want := AnalyticsOverview{
		TotalCourses:         2,
		ActiveCourses:        1,
		ActiveLearners:       2,
		CompletionRate:       50,
		CertificatesIssued:   1,
		AvgCompletionMinutes: 30,
	}
	if *overview != want {
		t.Fatalf("overview: want=%+v got=%+v", want, *overview)
	}

	if _, err := f.analytics.Overview(f.learner); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("learner: want ErrPermissionDenied, got %v", err)
	}
}
