package controller

import (
	"microcourse_backend/internal/service"
	"microcourse_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LearningController 报名、作答记录与徽章
type LearningController struct {
	EnrollmentService *service.EnrollmentService
	AttemptService    *service.AttemptService
	BadgeService      *service.BadgeService
}

func NewLearningController(enrollments *service.EnrollmentService, attempts *service.AttemptService, badges *service.BadgeService) *LearningController {
	return &LearningController{
		EnrollmentService: enrollments,
		AttemptService:    attempts,
		BadgeService:      badges,
	}
}

type EnrollRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// RecordAttemptRequest 原始作答记录
// swagger:model RecordAttemptRequest
type RecordAttemptRequest struct {
	CourseID      string `json:"courseId" binding:"required"`
	ModuleID      string `json:"moduleId" binding:"required"`
	QuestionID    string `json:"questionId" binding:"required"`
	SelectedIndex *int   `json:"selectedIndex" binding:"required,min=0"`
	IsCorrect     bool   `json:"isCorrect"`
}

type AwardBadgeRequest struct {
	CourseID string `json:"courseId" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// Enroll godoc
// @Summary 报名课程（幂等）
// @Tags 学习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body EnrollRequest true "课程"
// @Success 200 {object} util.Response{data=model.Enrollment} "已报名，返回原记录"
// @Success 201 {object} util.Response{data=model.Enrollment} "新建报名"
// @Router /api/enrollments [post]
func (c *LearningController) Enroll(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req EnrollRequest
	if !bindJSON(ctx, &req) {
		return
	}

	enrollment, created, err := c.EnrollmentService.Enroll(actor, req.CourseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if created {
		util.Created(ctx, enrollment)
		return
	}
	util.Success(ctx, enrollment)
}

// MyEnrollments godoc
// @Summary 我的报名（附课程信息）
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.EnrollmentWithCourse}
// @Router /api/enrollments/my [get]
func (c *LearningController) MyEnrollments(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	enrollments, err := c.EnrollmentService.MyEnrollments(actor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, enrollments)
}

// RecordAttempt godoc
// @Summary 记录一次作答
// @Tags 学习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body RecordAttemptRequest true "作答"
// @Success 201 {object} util.Response{data=model.Attempt}
// @Router /api/attempts [post]
func (c *LearningController) RecordAttempt(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req RecordAttemptRequest
	if !bindJSON(ctx, &req) {
		return
	}

	attempt, err := c.AttemptService.Record(actor, service.RecordAttemptInput{
		CourseID:      req.CourseID,
		ModuleID:      req.ModuleID,
		QuestionID:    req.QuestionID,
		SelectedIndex: *req.SelectedIndex,
		IsCorrect:     req.IsCorrect,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// ListAttempts godoc
// @Summary 我在某课程的作答记录
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Attempt}
// @Router /api/attempts/{courseId} [get]
func (c *LearningController) ListAttempts(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	attempts, err := c.AttemptService.ListForCourse(actor, ctx.Param("courseId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// AwardBadge godoc
// @Summary 颁发徽章
// @Tags 学习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body AwardBadgeRequest true "徽章"
// @Success 201 {object} util.Response{data=model.Badge}
// @Router /api/badges [post]
func (c *LearningController) AwardBadge(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req AwardBadgeRequest
	if !bindJSON(ctx, &req) {
		return
	}

	badge, created, err := c.BadgeService.Award(actor.UserID, req.CourseID, req.Name)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ctx.JSON(status, util.Response{Code: status, Message: "success", Data: badge})
}

// MyBadges godoc
// @Summary 我的徽章
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /api/badges/my [get]
func (c *LearningController) MyBadges(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	badges, err := c.BadgeService.MyBadges(actor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}
