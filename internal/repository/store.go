package repository

import "microcourse_backend/internal/model"

// UserStore 等接口即领域存储契约，gorm 与内存实现均满足
type UserStore interface {
	Create(user *model.User) error
	FindByID(id string) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	Update(user *model.User) error
}

type OrganizationStore interface {
	Create(org *model.Organization) error
	FindByID(id string) (*model.Organization, error)
	Update(org *model.Organization) error
}

type CourseStore interface {
	// CreateWithContent 在一个事务中写入课程及其全部模块和题目
	CreateWithContent(course *model.Course) error
	FindByID(id string) (*model.Course, error)
	FindByOrg(orgID string) ([]model.Course, error)
	Update(course *model.Course) error
	// Delete 同时删除课程下的模块和题目
	Delete(id string) error
}

type ModuleStore interface {
	Create(module *model.Module) error
	FindByID(id string) (*model.Module, error)
	// FindByCourse 按 Index 升序返回
	FindByCourse(courseID string) ([]model.Module, error)
	Update(module *model.Module) error
	// Delete 删除模块及其题目，并重排剩余模块的 Index
	Delete(id string) error
}

type QuestionStore interface {
	Create(question *model.Question) error
	FindByID(id string) (*model.Question, error)
	// FindByModule 按 Index 升序返回
	FindByModule(moduleID string) ([]model.Question, error)
	Update(question *model.Question) error
	// Delete 删除题目并重排剩余题目的 Index
	Delete(id string) error
	// ReplaceForModule 原子地替换模块的全部题目
	ReplaceForModule(moduleID string, questions []model.Question) error
}

type EnrollmentStore interface {
	// Create 同一 (user, course) 已存在时返回 util.ErrEnrollmentExists
	Create(enrollment *model.Enrollment) error
	FindByID(id string) (*model.Enrollment, error)
	FindByUserAndCourse(userID, courseID string) (*model.Enrollment, error)
	FindByUser(userID string) ([]model.Enrollment, error)
	FindByCourse(courseID string) ([]model.Enrollment, error)
	Update(enrollment *model.Enrollment) error
}

type AttemptStore interface {
	Create(attempt *model.Attempt) error
	FindByUserAndCourse(userID, courseID string) ([]model.Attempt, error)
}

type BadgeStore interface {
	Create(badge *model.Badge) error
	FindByUser(userID string) ([]model.Badge, error)
	FindByUserAndCourse(userID, courseID string) ([]model.Badge, error)
	FindByCourse(courseID string) ([]model.Badge, error)
}

type UploadStore interface {
	Create(upload *model.Upload) error
	FindByID(id string) (*model.Upload, error)
	Update(upload *model.Upload) error
}

// Store 汇总全部集合，由 app 注入到 service
type Store struct {
	Users         UserStore
	Organizations OrganizationStore
	Courses       CourseStore
	Modules       ModuleStore
	Questions     QuestionStore
	Enrollments   EnrollmentStore
	Attempts      AttemptStore
	Badges        BadgeStore
	Uploads       UploadStore
}
