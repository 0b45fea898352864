package controller

import (
	"microcourse_backend/internal/service"
	"microcourse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// Overview godoc
// @Summary 组织学习数据概览
// @Tags 分析
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.AnalyticsOverview}
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/analytics/overview [get]
func (c *AnalyticsController) Overview(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	overview, err := c.AnalyticsService.Overview(actor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}
