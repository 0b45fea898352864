package util

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrOrgNotFound         = errors.New("organization not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrModuleNotFound      = errors.New("module not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrUploadNotFound      = errors.New("upload not found")
	ErrEnrollmentExists    = errors.New("enrollment already exists")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNoOrganization      = errors.New("no organization associated with user")
	ErrModuleLocked        = errors.New("module is locked")
	ErrInvalidTransition   = errors.New("invalid quiz transition")
	ErrQuizSessionNotFound = errors.New("quiz session not found")
	ErrGenerationFailed    = errors.New("course generation failed")
)

// ValidationError 输入校验失败，在产生任何副作用之前返回
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrUserNotFound,
		ErrOrgNotFound,
		ErrCourseNotFound,
		ErrModuleNotFound,
		ErrQuestionNotFound,
		ErrEnrollmentNotFound,
		ErrUploadNotFound,
		ErrQuizSessionNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
