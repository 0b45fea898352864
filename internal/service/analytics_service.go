package service

import (
	"math"
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/repository"
	"microcourse_backend/internal/util"
)

type AnalyticsOverview struct {
	TotalCourses         int     `json:"totalCourses"`
	ActiveCourses        int     `json:"activeCourses"`
	ActiveLearners       int     `json:"activeLearners"`
	CompletionRate       int     `json:"completionRate"`
	CertificatesIssued   int     `json:"certificatesIssued"`
	AvgCompletionMinutes float64 `json:"avgCompletionTime"`
}

type AnalyticsService struct {
	Store *repository.Store
}

func NewAnalyticsService(store *repository.Store) *AnalyticsService {
	return &AnalyticsService{Store: store}
}

// Overview 汇总组织内全部课程的报名、完成和证书数据
func (s *AnalyticsService) Overview(actor Actor) (*AnalyticsOverview, error) {
	if !actor.IsManager() {
		return nil, util.ErrPermissionDenied
	}
	if actor.OrgID == "" {
		return nil, util.ErrNoOrganization
	}

	courses, err := s.Store.Courses.FindByOrg(actor.OrgID)
	if err != nil {
		return nil, err
	}

	out := &AnalyticsOverview{TotalCourses: len(courses)}
	learners := make(map[string]struct{})
	var total, completed int
	var completionMinutes float64

	for _, c := range courses {
		if c.Status == model.CoursePublished {
			out.ActiveCourses++
		}

		enrollments, err := s.Store.Enrollments.FindByCourse(c.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range enrollments {
			learners[e.UserID] = struct{}{}
			total++
			if e.IsCompleted() && e.CompletedAt != nil {
				completed++
				completionMinutes += e.CompletedAt.Sub(e.StartedAt).Minutes()
			}
		}

		badges, err := s.Store.Badges.FindByCourse(c.ID)
		if err != nil {
			return nil, err
		}
		out.CertificatesIssued += len(badges)
	}

	out.ActiveLearners = len(learners)
	if total > 0 {
		out.CompletionRate = int(math.Round(100 * float64(completed) / float64(total)))
	}
	if completed > 0 {
		out.AvgCompletionMinutes = math.Round(completionMinutes/float64(completed)*10) / 10
	}
	return out, nil
}
