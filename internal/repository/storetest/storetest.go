// Package storetest 是 repository.Store 实现共用的行为测试
package storetest

import (
	"errors"
	"testing"
	"time"

	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
)

// Run 对 newStore 返回的每个新 Store 执行全部用例
func Run(t *testing.T, newStore func(t *testing.T) *repository.Store) {
	t.Run("CourseContentIsOrdered", func(t *testing.T) { testCourseContentIsOrdered(t, newStore(t)) })
	t.Run("CourseDeleteCascades", func(t *testing.T) { testCourseDeleteCascades(t, newStore(t)) })
	t.Run("ModuleDeleteReindexes", func(t *testing.T) { testModuleDeleteReindexes(t, newStore(t)) })
	t.Run("QuestionDeleteReindexes", func(t *testing.T) { testQuestionDeleteReindexes(t, newStore(t)) })
	t.Run("ReplaceQuestions", func(t *testing.T) { testReplaceQuestions(t, newStore(t)) })
	t.Run("EnrollmentUnique", func(t *testing.T) { testEnrollmentUnique(t, newStore(t)) })
	t.Run("EnrollmentProgressPersists", func(t *testing.T) { testEnrollmentProgressPersists(t, newStore(t)) })
	t.Run("UserEmailUnique", func(t *testing.T) { testUserEmailUnique(t, newStore(t)) })
	t.Run("AttemptsAndBadges", func(t *testing.T) { testAttemptsAndBadges(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("UploadLifecycle", func(t *testing.T) { testUploadLifecycle(t, newStore(t)) })
}

// SampleCourse 返回一个含 modules 个模块、每模块 questions 道题的草稿课程
func SampleCourse(orgID string, modules, questions int) *model.Course {
	course := &model.Course{
		OrgID:     orgID,
		Title:     "Forklift Safety",
		Status:    model.CourseDraft,
		PassScore: model.DefaultPassScore,
		CreatedBy: "author-1",
	}
	for i := 0; i < modules; i++ {
		m := model.Module{
			Index:              i,
			Title:              "Module " + string(rune('A'+i)),
			ContentHTML:        "<p>content</p>",
			LearningObjectives: []string{"objective"},
		}
		for j := 0; j < questions; j++ {
			m.Questions = append(m.Questions, model.Question{
				Index:         j,
				StemHTML:      "<p>stem " + string(rune('a'+j)) + "</p>",
				Options:       []string{"A", "B", "C", "D"},
				CorrectIndex:  j % 4,
				RationaleHTML: "<p>because</p>",
			})
		}
		course.Modules = append(course.Modules, m)
	}
	return course
}

func mustCreateCourse(t *testing.T, s *repository.Store, modules, questions int) *model.Course {
	t.Helper()
	course := SampleCourse("org-1", modules, questions)
	if err := s.Courses.CreateWithContent(course); err != nil {
		t.Fatalf("CreateWithContent: %v", err)
	}
	if course.ID == "" {
		t.Fatalf("course ID was not assigned")
	}
	return course
}

func testCourseContentIsOrdered(t *testing.T, s *repository.Store) {
	course := mustCreateCourse(t, s, 3, 2)

	got, err := s.Courses.FindByID(course.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Title != course.Title || got.Status != model.CourseDraft || got.PassScore != 80 {
		t.Fatalf("unexpected course %+v", got)
	}

	modules, err := s.Modules.FindByCourse(course.ID)
	if err != nil {
		t.Fatalf("FindByCourse: %v", err)
	}
	if len(modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(modules))
	}
	for i, m := range modules {
		if m.Index != i {
			t.Fatalf("module %d has index %d", i, m.Index)
		}
		if m.CourseID != course.ID {
			t.Fatalf("module %d has course %q", i, m.CourseID)
		}
		questions, err := s.Questions.FindByModule(m.ID)
		if err != nil {
			t.Fatalf("FindByModule: %v", err)
		}
		if len(questions) != 2 {
			t.Fatalf("expected 2 questions in module %d, got %d", i, len(questions))
		}
		for j, q := range questions {
			if q.Index != j || q.ModuleID != m.ID {
				t.Fatalf("question %d/%d out of place: %+v", i, j, q)
			}
			if len(q.Options) != 4 {
				t.Fatalf("options not persisted: %v", q.Options)
			}
		}
	}

	courses, err := s.Courses.FindByOrg("org-1")
	if err != nil || len(courses) != 1 {
		t.Fatalf("FindByOrg = %d courses, err %v", len(courses), err)
	}
	if other, _ := s.Courses.FindByOrg("org-2"); len(other) != 0 {
		t.Fatalf("courses leaked across orgs")
	}
}

func testCourseDeleteCascades(t *testing.T, s *repository.Store) {
	course := mustCreateCourse(t, s, 2, 2)
	moduleID := course.Modules[0].ID
	questionID := course.Modules[0].Questions[0].ID

	if err := s.Courses.Delete(course.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Courses.FindByID(course.ID); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
	if _, err := s.Modules.FindByID(moduleID); !errors.Is(err, util.ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
	if _, err := s.Questions.FindByID(questionID); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if err := s.Courses.Delete(course.ID); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("second delete should report not found, got %v", err)
	}
}

func testModuleDeleteReindexes(t *testing.T, s *repository.Store) {
	course := mustCreateCourse(t, s, 4, 1)
	removed := course.Modules[1]

	if err := s.Modules.Delete(removed.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	modules, _ := s.Modules.FindByCourse(course.ID)
	if len(modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(modules))
	}
	wantIDs := []string{course.Modules[0].ID, course.Modules[2].ID, course.Modules[3].ID}
	for i, m := range modules {
		if m.Index != i || m.ID != wantIDs[i] {
			t.Fatalf("position %d: got %s@%d, want %s@%d", i, m.ID, m.Index, wantIDs[i], i)
		}
	}
	if qs, _ := s.Questions.FindByModule(removed.ID); len(qs) != 0 {
		t.Fatalf("questions of deleted module survived")
	}
}

func testQuestionDeleteReindexes(t *testing.T, s *repository.Store) {
	course := mustCreateCourse(t, s, 1, 3)
	module := course.Modules[0]

	if err := s.Questions.Delete(module.Questions[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	questions, _ := s.Questions.FindByModule(module.ID)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if q.Index != i {
			t.Fatalf("question %d has index %d", i, q.Index)
		}
	}
	if questions[0].ID != module.Questions[1].ID {
		t.Fatalf("order not preserved after delete")
	}
}

func testReplaceQuestions(t *testing.T, s *repository.Store) {
	course := mustCreateCourse(t, s, 1, 3)
	moduleID := course.Modules[0].ID

	replacement := []model.Question{
		{Index: 0, StemHTML: "<p>new</p>", Options: []string{"yes", "no"}, CorrectIndex: 1, RationaleHTML: "<p>r</p>"},
	}
	if err := s.Questions.ReplaceForModule(moduleID, replacement); err != nil {
		t.Fatalf("ReplaceForModule: %v", err)
	}
	questions, _ := s.Questions.FindByModule(moduleID)
	if len(questions) != 1 || questions[0].StemHTML != "<p>new</p>" || questions[0].CorrectIndex != 1 {
		t.Fatalf("unexpected questions after replace: %+v", questions)
	}
}

func testEnrollmentUnique(t *testing.T, s *repository.Store) {
	first := &model.Enrollment{OrgID: "org-1", CourseID: "course-1", UserID: "user-1", Status: model.EnrollmentInProgress, StartedAt: time.Now()}
	if err := s.Enrollments.Create(first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &model.Enrollment{OrgID: "org-1", CourseID: "course-1", UserID: "user-1", Status: model.EnrollmentInProgress, StartedAt: time.Now()}
	if err := s.Enrollments.Create(dup); !errors.Is(err, util.ErrEnrollmentExists) {
		t.Fatalf("expected ErrEnrollmentExists, got %v", err)
	}
	other := &model.Enrollment{OrgID: "org-1", CourseID: "course-2", UserID: "user-1", Status: model.EnrollmentInProgress, StartedAt: time.Now()}
	if err := s.Enrollments.Create(other); err != nil {
		t.Fatalf("Create for another course: %v", err)
	}
	mine, _ := s.Enrollments.FindByUser("user-1")
	if len(mine) != 2 {
		t.Fatalf("expected 2 enrollments, got %d", len(mine))
	}
	byCourse, _ := s.Enrollments.FindByCourse("course-1")
	if len(byCourse) != 1 {
		t.Fatalf("expected 1 enrollment for course-1, got %d", len(byCourse))
	}
}

func testEnrollmentProgressPersists(t *testing.T, s *repository.Store) {
	e := &model.Enrollment{OrgID: "org-1", CourseID: "course-1", UserID: "user-1", Status: model.EnrollmentInProgress, StartedAt: time.Now()}
	e.SetCurrentModuleIndex(0)
	if err := s.Enrollments.Create(e); err != nil {
		t.Fatalf("Create: %v", err)
	}

	e.SetCurrentModuleIndex(2)
	done := time.Now()
	e.Status = model.EnrollmentCompleted
	e.CompletedAt = &done
	if err := s.Enrollments.Update(e); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Enrollments.FindByUserAndCourse("user-1", "course-1")
	if err != nil {
		t.Fatalf("FindByUserAndCourse: %v", err)
	}
	if got.CurrentModuleIndex() != 2 || !got.IsCompleted() || got.CompletedAt == nil {
		t.Fatalf("progress not persisted: %+v", got)
	}
	if _, err := s.Enrollments.FindByID(e.ID); err != nil {
		t.Fatalf("FindByID: %v", err)
	}
}

func testUserEmailUnique(t *testing.T, s *repository.Store) {
	orgID := "org-1"
	u := &model.User{Email: "a@example.com", DisplayName: "a", OrgID: &orgID, Roles: []model.UserRole{model.RoleOwner}}
	if err := s.Users.Create(u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Users.FindByEmail("a@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if got.ID != u.ID || !got.HasRole(model.RoleOwner) || got.OrganizationID() != orgID {
		t.Fatalf("unexpected user %+v", got)
	}
	dup := &model.User{Email: "a@example.com", DisplayName: "b", Roles: []model.UserRole{model.RoleLearner}}
	if err := s.Users.Create(dup); !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("expected ErrEmailRegistered, got %v", err)
	}

	org := &model.Organization{Name: "Acme", OwnerID: u.ID}
	if err := s.Organizations.Create(org); err != nil {
		t.Fatalf("Create org: %v", err)
	}
	gotOrg, err := s.Organizations.FindByID(org.ID)
	if err != nil || gotOrg.PlanTier != model.PlanStarter {
		t.Fatalf("unexpected org %+v, err %v", gotOrg, err)
	}
}

func testAttemptsAndBadges(t *testing.T, s *repository.Store) {
	for i := 0; i < 3; i++ {
		a := &model.Attempt{UserID: "user-1", CourseID: "course-1", ModuleID: "m", QuestionID: "q", SelectedIndex: i, IsCorrect: i == 0}
		if err := s.Attempts.Create(a); err != nil {
			t.Fatalf("Create attempt: %v", err)
		}
	}
	_ = s.Attempts.Create(&model.Attempt{UserID: "user-2", CourseID: "course-1", ModuleID: "m", QuestionID: "q"})

	attempts, _ := s.Attempts.FindByUserAndCourse("user-1", "course-1")
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}

	for i := 0; i < 2; i++ {
		b := &model.Badge{UserID: "user-1", CourseID: "course-1", Name: model.CompletionBadgeName("Forklift Safety")}
		if err := s.Badges.Create(b); err != nil {
			t.Fatalf("Create badge: %v", err)
		}
	}
	badges, _ := s.Badges.FindByUserAndCourse("user-1", "course-1")
	if len(badges) != 2 {
		t.Fatalf("badge store must not de-duplicate, got %d", len(badges))
	}
	if badges[0].Name != "Forklift Safety Completion" {
		t.Fatalf("unexpected badge name %q", badges[0].Name)
	}
	if mine, _ := s.Badges.FindByUser("user-1"); len(mine) != 2 {
		t.Fatalf("expected 2 badges for user, got %d", len(mine))
	}
	if byCourse, _ := s.Badges.FindByCourse("course-1"); len(byCourse) != 2 {
		t.Fatalf("expected 2 badges for course, got %d", len(byCourse))
	}
}

func testNotFound(t *testing.T, s *repository.Store) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"user", second(s.Users.FindByID("missing")), util.ErrUserNotFound},
		{"org", second(s.Organizations.FindByID("missing")), util.ErrOrgNotFound},
		{"course", second(s.Courses.FindByID("missing")), util.ErrCourseNotFound},
		{"module", second(s.Modules.FindByID("missing")), util.ErrModuleNotFound},
		{"question", second(s.Questions.FindByID("missing")), util.ErrQuestionNotFound},
		{"enrollment", second(s.Enrollments.FindByUserAndCourse("u", "c")), util.ErrEnrollmentNotFound},
		{"upload", second(s.Uploads.FindByID("missing")), util.ErrUploadNotFound},
		{"module delete", s.Modules.Delete("missing"), util.ErrModuleNotFound},
		{"question delete", s.Questions.Delete("missing"), util.ErrQuestionNotFound},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, tc.err, tc.want)
		}
	}
}

func second(_ any, err error) error {
	return err
}

func testUploadLifecycle(t *testing.T, s *repository.Store) {
	up := &model.Upload{OrgID: "org-1", Source: model.UploadSourcePaste, Content: "raw sop text"}
	if err := s.Uploads.Create(up); err != nil {
		t.Fatalf("Create: %v", err)
	}
	msg := "generation failed"
	up.Error = &msg
	if err := s.Uploads.Update(up); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Uploads.FindByID(up.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Processed || got.Error == nil || *got.Error != msg {
		t.Fatalf("unexpected upload %+v", got)
	}
}
