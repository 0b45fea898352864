package service

import (
	"errors"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
	"microcourse_backend/pkg/logger"
	"microcourse_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
)

// ModuleUnlocked 未报名(e == nil)时只开放第 0 个模块；课程完成后全部开放
func ModuleUnlocked(e *model.Enrollment, moduleIndex int) bool {
	if moduleIndex < 0 {
		return false
	}
	if e == nil {
		return moduleIndex == 0
	}
	if e.IsCompleted() {
		return true
	}
	return moduleIndex <= e.CurrentModuleIndex()
}

func ModuleCompleted(e *model.Enrollment, moduleIndex int) bool {
	if e == nil || moduleIndex < 0 {
		return false
	}
	if e.IsCompleted() {
		return true
	}
	return moduleIndex < e.CurrentModuleIndex()
}

// Advance 在通过 passedIndex 模块后推进游标，返回是否有变化。
// 只有通过的正是当前游标所在模块时才推进，游标永不后退；
// 通过最后一个模块时，只要游标不落后于它就完成报名。
func Advance(e *model.Enrollment, passedIndex, moduleCount int, now time.Time) bool {
	if e.IsCompleted() {
		return false
	}
	cursor := e.CurrentModuleIndex()
	if passedIndex >= moduleCount-1 && cursor >= passedIndex {
		e.Status = model.EnrollmentCompleted
		e.CompletedAt = &now
		return true
	}
	if passedIndex != cursor {
		return false
	}
	e.SetCurrentModuleIndex(passedIndex + 1)
	return true
}

type EnrollmentWithCourse struct {
	model.Enrollment
	Course *model.Course `json:"course"`
}

type ModuleProgress struct {
	ModuleID  string `json:"moduleId"`
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Unlocked  bool   `json:"unlocked"`
	Completed bool   `json:"completed"`
}

type CourseProgress struct {
	CourseID   string            `json:"courseId"`
	Enrolled   bool              `json:"enrolled"`
	Enrollment *model.Enrollment `json:"enrollment,omitempty"`
	Modules    []ModuleProgress  `json:"modules"`
}

type EnrollmentService struct {
	Store *repository.Store
	now   func() time.Time
}

func NewEnrollmentService(store *repository.Store) *EnrollmentService {
	return &EnrollmentService{Store: store, now: time.Now}
}

// Enroll 幂等：已报名时原样返回已有记录，created 为 false
func (s *EnrollmentService) Enroll(actor Actor, courseID string) (enrollment *model.Enrollment, created bool, err error) {
	if actor.OrgID == "" {
		return nil, false, util.ErrNoOrganization
	}
	course, err := s.Store.Courses.FindByID(courseID)
	if err != nil {
		return nil, false, err
	}
	if !actor.canAccessCourse(course) {
		return nil, false, util.ErrPermissionDenied
	}

	existing, err := s.FindEnrollment(actor.UserID, courseID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	e := &model.Enrollment{
		OrgID:     actor.OrgID,
		CourseID:  courseID,
		UserID:    actor.UserID,
		Status:    model.EnrollmentInProgress,
		StartedAt: s.now(),
	}
	e.SetCurrentModuleIndex(0)

	if err := s.Store.Enrollments.Create(e); err != nil {
		if errors.Is(err, util.ErrEnrollmentExists) {
			// 并发报名时另一请求先写入
			existing, ferr := s.Store.Enrollments.FindByUserAndCourse(actor.UserID, courseID)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	monitoring.EnrollmentsCreated.Inc()
	logger.Log.Info("Learner enrolled", zap.String("user_id", actor.UserID), zap.String("course_id", courseID))
	return e, true, nil
}

// FindEnrollment 未报名时返回 (nil, nil)
func (s *EnrollmentService) FindEnrollment(userID, courseID string) (*model.Enrollment, error) {
	e, err := s.Store.Enrollments.FindByUserAndCourse(userID, courseID)
	if errors.Is(err, util.ErrEnrollmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// AdvanceAfterPass 学习者通过 passedIndex 模块后推进并持久化
func (s *EnrollmentService) AdvanceAfterPass(userID, courseID string, passedIndex int) (*model.Enrollment, error) {
	e, err := s.FindEnrollment(userID, courseID)
	if err != nil || e == nil {
		return nil, err
	}
	modules, err := s.Store.Modules.FindByCourse(courseID)
	if err != nil {
		return nil, err
	}

	if !Advance(e, passedIndex, len(modules), s.now()) {
		return e, nil
	}
	if err := s.Store.Enrollments.Update(e); err != nil {
		return nil, err
	}

	if e.IsCompleted() {
		logger.Log.Info("Course completed", zap.String("user_id", userID), zap.String("course_id", courseID))
	}
	return e, nil
}

func (s *EnrollmentService) MyEnrollments(actor Actor) ([]EnrollmentWithCourse, error) {
	enrollments, err := s.Store.Enrollments.FindByUser(actor.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]EnrollmentWithCourse, 0, len(enrollments))
	for _, e := range enrollments {
		course, err := s.Store.Courses.FindByID(e.CourseID)
		if err != nil && !errors.Is(err, util.ErrCourseNotFound) {
			return nil, err
		}
		out = append(out, EnrollmentWithCourse{Enrollment: e, Course: course})
	}
	return out, nil
}

func (s *EnrollmentService) CourseProgress(actor Actor, courseID string) (*CourseProgress, error) {
	course, err := s.Store.Courses.FindByID(courseID)
	if err != nil {
		return nil, err
	}
	if !actor.canAccessCourse(course) {
		return nil, util.ErrPermissionDenied
	}

	e, err := s.FindEnrollment(actor.UserID, courseID)
	if err != nil {
		return nil, err
	}
	modules, err := s.Store.Modules.FindByCourse(courseID)
	if err != nil {
		return nil, err
	}

	progress := &CourseProgress{
		CourseID:   courseID,
		Enrolled:   e != nil,
		Enrollment: e,
		Modules:    make([]ModuleProgress, 0, len(modules)),
	}
	for _, m := range modules {
		progress.Modules = append(progress.Modules, ModuleProgress{
			ModuleID:  m.ID,
			Index:     m.Index,
			Title:     m.Title,
			Unlocked:  ModuleUnlocked(e, m.Index),
			Completed: ModuleCompleted(e, m.Index),
		})
	}
	return progress, nil
}
