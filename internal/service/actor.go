package service

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/util"
)

// Actor 发起请求的已认证用户
type Actor struct {
	UserID string
	OrgID  string
	Roles  []model.UserRole
}

func ActorFromClaims(claims *util.Claims) Actor {
	return Actor{UserID: claims.UserID, OrgID: claims.OrgID, Roles: claims.Roles}
}

func (a Actor) IsManager() bool {
	return util.HasAnyRole(a.Roles, util.CourseManagers...)
}

// canAccessCourse admin 只是组织内角色，不能跨组织访问
func (a Actor) canAccessCourse(course *model.Course) bool {
	return a.OrgID != "" && course.OrgID == a.OrgID
}

// canManageCourse 修改课程需要 owner/admin 角色且可访问该课程
func (a Actor) canManageCourse(course *model.Course) bool {
	return a.IsManager() && a.canAccessCourse(course)
}
