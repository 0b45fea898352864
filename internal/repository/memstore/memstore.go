// Package memstore 提供 repository 各存储接口的内存实现，
// 用于 database.driver=memory 的本地运行以及服务层测试。
package memstore

import (
	"sort"
	"sync"
	"time"

	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
)

type db struct {
	mu          sync.RWMutex
	users       map[string]model.User
	orgs        map[string]model.Organization
	courses     map[string]model.Course
	modules     map[string]model.Module
	questions   map[string]model.Question
	enrollments map[string]model.Enrollment
	attempts    []model.Attempt
	badges      []model.Badge
	uploads     map[string]model.Upload
}

// New 返回一组共享同一份内存数据的存储
func New() *repository.Store {
	d := &db{
		users:       make(map[string]model.User),
		orgs:        make(map[string]model.Organization),
		courses:     make(map[string]model.Course),
		modules:     make(map[string]model.Module),
		questions:   make(map[string]model.Question),
		enrollments: make(map[string]model.Enrollment),
		uploads:     make(map[string]model.Upload),
	}
	return &repository.Store{
		Users:         &userStore{d},
		Organizations: &orgStore{d},
		Courses:       &courseStore{d},
		Modules:       &moduleStore{d},
		Questions:     &questionStore{d},
		Enrollments:   &enrollmentStore{d},
		Attempts:      &attemptStore{d},
		Badges:        &badgeStore{d},
		Uploads:       &uploadStore{d},
	}
}

func ensureID(id *string) {
	if *id == "" {
		*id = model.GenerateUUID()
	}
}

func ensureTime(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneUser(u model.User) model.User {
	if u.Roles != nil {
		roles := make([]model.UserRole, len(u.Roles))
		copy(roles, u.Roles)
		u.Roles = roles
	}
	if u.OrgID != nil {
		id := *u.OrgID
		u.OrgID = &id
	}
	return u
}

func cloneCourse(c model.Course) model.Course {
	c.Modules = nil
	if c.EstMinutes != nil {
		m := *c.EstMinutes
		c.EstMinutes = &m
	}
	if c.PublishedAt != nil {
		t := *c.PublishedAt
		c.PublishedAt = &t
	}
	return c
}

func cloneModule(m model.Module) model.Module {
	m.Questions = nil
	m.LearningObjectives = cloneStrings(m.LearningObjectives)
	return m
}

func cloneQuestion(q model.Question) model.Question {
	q.Options = cloneStrings(q.Options)
	return q
}

func cloneEnrollment(e model.Enrollment) model.Enrollment {
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		e.CompletedAt = &t
	}
	return e
}

type userStore struct{ d *db }

func (s *userStore) Create(user *model.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, u := range s.d.users {
		if u.Email == user.Email {
			return util.ErrEmailRegistered
		}
	}
	ensureID(&user.ID)
	ensureTime(&user.CreatedAt)
	s.d.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *userStore) FindByID(id string) (*model.User, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	u, ok := s.d.users[id]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *userStore) FindByEmail(email string) (*model.User, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, u := range s.d.users {
		if u.Email == email {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, util.ErrUserNotFound
}

func (s *userStore) Update(user *model.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.users[user.ID]; !ok {
		return util.ErrUserNotFound
	}
	s.d.users[user.ID] = cloneUser(*user)
	return nil
}

type orgStore struct{ d *db }

func (s *orgStore) Create(org *model.Organization) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	ensureID(&org.ID)
	ensureTime(&org.CreatedAt)
	if org.PlanTier == "" {
		org.PlanTier = model.PlanStarter
	}
	s.d.orgs[org.ID] = *org
	return nil
}

func (s *orgStore) FindByID(id string) (*model.Organization, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	o, ok := s.d.orgs[id]
	if !ok {
		return nil, util.ErrOrgNotFound
	}
	return &o, nil
}

func (s *orgStore) Update(org *model.Organization) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.orgs[org.ID]; !ok {
		return util.ErrOrgNotFound
	}
	s.d.orgs[org.ID] = *org
	return nil
}

type courseStore struct{ d *db }

// CreateWithContent 持锁一次性写入，读者看不到部分写入的课程
func (s *courseStore) CreateWithContent(course *model.Course) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	ensureID(&course.ID)
	ensureTime(&course.CreatedAt)
	for i := range course.Modules {
		m := &course.Modules[i]
		ensureID(&m.ID)
		ensureTime(&m.CreatedAt)
		m.CourseID = course.ID
		for j := range m.Questions {
			q := &m.Questions[j]
			ensureID(&q.ID)
			ensureTime(&q.CreatedAt)
			q.ModuleID = m.ID
		}
	}

	s.d.courses[course.ID] = cloneCourse(*course)
	for _, m := range course.Modules {
		s.d.modules[m.ID] = cloneModule(m)
		for _, q := range m.Questions {
			s.d.questions[q.ID] = cloneQuestion(q)
		}
	}
	return nil
}

func (s *courseStore) FindByID(id string) (*model.Course, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	c, ok := s.d.courses[id]
	if !ok {
		return nil, util.ErrCourseNotFound
	}
	c = cloneCourse(c)
	return &c, nil
}

func (s *courseStore) FindByOrg(orgID string) ([]model.Course, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []model.Course
	for _, c := range s.d.courses {
		if c.OrgID == orgID {
			out = append(out, cloneCourse(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *courseStore) Update(course *model.Course) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.courses[course.ID]; !ok {
		return util.ErrCourseNotFound
	}
	s.d.courses[course.ID] = cloneCourse(*course)
	return nil
}

func (s *courseStore) Delete(id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.courses[id]; !ok {
		return util.ErrCourseNotFound
	}
	delete(s.d.courses, id)
	for mid, m := range s.d.modules {
		if m.CourseID != id {
			continue
		}
		s.d.deleteQuestionsLocked(mid)
		delete(s.d.modules, mid)
	}
	return nil
}

func (d *db) deleteQuestionsLocked(moduleID string) {
	for qid, q := range d.questions {
		if q.ModuleID == moduleID {
			delete(d.questions, qid)
		}
	}
}

type moduleStore struct{ d *db }

func (s *moduleStore) Create(module *model.Module) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	ensureID(&module.ID)
	ensureTime(&module.CreatedAt)
	s.d.modules[module.ID] = cloneModule(*module)
	return nil
}

func (s *moduleStore) FindByID(id string) (*model.Module, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	m, ok := s.d.modules[id]
	if !ok {
		return nil, util.ErrModuleNotFound
	}
	m = cloneModule(m)
	return &m, nil
}

func (s *moduleStore) FindByCourse(courseID string) ([]model.Module, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []model.Module
	for _, m := range s.d.modules {
		if m.CourseID == courseID {
			out = append(out, cloneModule(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *moduleStore) Update(module *model.Module) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.modules[module.ID]; !ok {
		return util.ErrModuleNotFound
	}
	s.d.modules[module.ID] = cloneModule(*module)
	return nil
}

func (s *moduleStore) Delete(id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	target, ok := s.d.modules[id]
	if !ok {
		return util.ErrModuleNotFound
	}
	s.d.deleteQuestionsLocked(id)
	delete(s.d.modules, id)
	for mid, m := range s.d.modules {
		if m.CourseID == target.CourseID && m.Index > target.Index {
			m.Index--
			s.d.modules[mid] = m
		}
	}
	return nil
}

type questionStore struct{ d *db }

func (s *questionStore) Create(question *model.Question) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	ensureID(&question.ID)
	ensureTime(&question.CreatedAt)
	s.d.questions[question.ID] = cloneQuestion(*question)
	return nil
}

func (s *questionStore) FindByID(id string) (*model.Question, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	q, ok := s.d.questions[id]
	if !ok {
		return nil, util.ErrQuestionNotFound
	}
	q = cloneQuestion(q)
	return &q, nil
}

func (s *questionStore) FindByModule(moduleID string) ([]model.Question, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []model.Question
	for _, q := range s.d.questions {
		if q.ModuleID == moduleID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *questionStore) Update(question *model.Question) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.questions[question.ID]; !ok {
		return util.ErrQuestionNotFound
	}
	s.d.questions[question.ID] = cloneQuestion(*question)
	return nil
}

func (s *questionStore) Delete(id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	target, ok := s.d.questions[id]
	if !ok {
		return util.ErrQuestionNotFound
	}
	delete(s.d.questions, id)
	for qid, q := range s.d.questions {
		if q.ModuleID == target.ModuleID && q.Index > target.Index {
			q.Index--
			s.d.questions[qid] = q
		}
	}
	return nil
}

func (s *questionStore) ReplaceForModule(moduleID string, questions []model.Question) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.deleteQuestionsLocked(moduleID)
	for i := range questions {
		q := &questions[i]
		ensureID(&q.ID)
		ensureTime(&q.CreatedAt)
		q.ModuleID = moduleID
		s.d.questions[q.ID] = cloneQuestion(*q)
	}
	return nil
}

type enrollmentStore struct{ d *db }

func (s *enrollmentStore) Create(enrollment *model.Enrollment) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, e := range s.d.enrollments {
		if e.UserID == enrollment.UserID && e.CourseID == enrollment.CourseID {
			return util.ErrEnrollmentExists
		}
	}
	ensureID(&enrollment.ID)
	s.d.enrollments[enrollment.ID] = cloneEnrollment(*enrollment)
	return nil
}

func (s *enrollmentStore) FindByID(id string) (*model.Enrollment, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	e, ok := s.d.enrollments[id]
	if !ok {
		return nil, util.ErrEnrollmentNotFound
	}
	e = cloneEnrollment(e)
	return &e, nil
}

func (s *enrollmentStore) FindByUserAndCourse(userID, courseID string) (*model.Enrollment, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, e := range s.d.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			e = cloneEnrollment(e)
			return &e, nil
		}
	}
	return nil, util.ErrEnrollmentNotFound
}

func (s *enrollmentStore) filter(match func(model.Enrollment) bool) []model.Enrollment {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []model.Enrollment
	for _, e := range s.d.enrollments {
		if match(e) {
			out = append(out, cloneEnrollment(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (s *enrollmentStore) FindByUser(userID string) ([]model.Enrollment, error) {
	return s.filter(func(e model.Enrollment) bool { return e.UserID == userID }), nil
}

func (s *enrollmentStore) FindByCourse(courseID string) ([]model.Enrollment, error) {
	return s.filter(func(e model.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (s *enrollmentStore) Update(enrollment *model.Enrollment) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.enrollments[enrollment.ID]; !ok {
		return util.ErrEnrollmentNotFound
	}
	s.d.enrollments[enrollment.ID] = cloneEnrollment(*enrollment)
	return nil
}

type attemptStore struct{ d *db }

func (s *attemptStore) Create(attempt *model.Attempt) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	ensureID(&attempt.ID)
	ensureTime(&attempt.CreatedAt)
	s.d.attempts = append(s.d.attempts, *attempt)
	return nil
}

func (s *attemptStore) FindByUserAndCourse(userID, courseID string) ([]model.Attempt, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []model.Attempt
	for _, a := range s.d.attempts {
		if a.UserID == userID && a.CourseID == courseID {
			out = append(out, a)
		}
	}
	return out, nil
}

type badgeStore struct{ d *db }

func (s *badgeStore) Create(badge *model.Badge) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	ensureID(&badge.ID)
	ensureTime(&badge.AwardedAt)
	s.d.badges = append(s.d.badges, *badge)
	return nil
}

func (s *badgeStore) filter(match func(model.Badge) bool) []model.Badge {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []model.Badge
	for _, b := range s.d.badges {
		if match(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s *badgeStore) FindByUser(userID string) ([]model.Badge, error) {
	out := s.filter(func(b model.Badge) bool { return b.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].AwardedAt.After(out[j].AwardedAt) })
	return out, nil
}

func (s *badgeStore) FindByUserAndCourse(userID, courseID string) ([]model.Badge, error) {
	return s.filter(func(b model.Badge) bool { return b.UserID == userID && b.CourseID == courseID }), nil
}

func (s *badgeStore) FindByCourse(courseID string) ([]model.Badge, error) {
	return s.filter(func(b model.Badge) bool { return b.CourseID == courseID }), nil
}

type uploadStore struct{ d *db }

func (s *uploadStore) Create(upload *model.Upload) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	ensureID(&upload.ID)
	ensureTime(&upload.CreatedAt)
	s.d.uploads[upload.ID] = *upload
	return nil
}

func (s *uploadStore) FindByID(id string) (*model.Upload, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	u, ok := s.d.uploads[id]
	if !ok {
		return nil, util.ErrUploadNotFound
	}
	return &u, nil
}

func (s *uploadStore) Update(upload *model.Upload) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.uploads[upload.ID]; !ok {
		return util.ErrUploadNotFound
	}
	s.d.uploads[upload.ID] = *upload
	return nil
}
