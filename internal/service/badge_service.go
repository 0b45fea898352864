package service

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
	"microcourse_backend/pkg/logger"
	"microcourse_backend/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
)

// BadgeService 颁发徽章。Deduplicate 为 false 时每次调用都新建记录
type BadgeService struct {
	Repo        repository.BadgeStore
	Deduplicate bool
	now         func() time.Time
}

func NewBadgeService(repo repository.BadgeStore, deduplicate bool) *BadgeService {
	return &BadgeService{Repo: repo, Deduplicate: deduplicate, now: time.Now}
}

// Award 返回颁发（或去重时已存在）的徽章，created 表示是否新建
func (s *BadgeService) Award(userID, courseID, name string) (badge *model.Badge, created bool, err error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, false, util.NewValidationError("courseId", "courseId is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, false, util.NewValidationError("name", "name is required")
	}

	if s.Deduplicate {
		existing, err := s.Repo.FindByUserAndCourse(userID, courseID)
		if err != nil {
			return nil, false, err
		}
		if len(existing) > 0 {
			return &existing[0], false, nil
		}
	}

	badge = &model.Badge{
		UserID:    userID,
		CourseID:  courseID,
		Name:      name,
		AwardedAt: s.now(),
	}
	if err := s.Repo.Create(badge); err != nil {
		return nil, false, err
	}

	monitoring.BadgesAwarded.Inc()
	logger.Log.Info("Badge awarded",
		zap.String("user_id", userID),
		zap.String("course_id", courseID),
		zap.String("name", name))
	return badge, true, nil
}

// AwardCompletion 通过课程最后一个模块时调用
func (s *BadgeService) AwardCompletion(userID, courseID, courseTitle string) error {
	_, _, err := s.Award(userID, courseID, model.CompletionBadgeName(courseTitle))
	return err
}

func (s *BadgeService) MyBadges(actor Actor) ([]model.Badge, error) {
	badges, err := s.Repo.FindByUser(actor.UserID)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []model.Badge{}
	}
	return badges, nil
}
