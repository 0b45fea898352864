package util

import "microcourse_backend/internal/model"

// HasAnyRole 授权策略：用户拥有 required 中任一角色即放行
func HasAnyRole(userRoles []model.UserRole, required ...model.UserRole) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range userRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CourseManagers 可以生成和修改课程的角色
var CourseManagers = []model.UserRole{model.RoleOwner, model.RoleAdmin}
