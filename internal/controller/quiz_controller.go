package controller

import (
	"context"
	"microcourse_backend/internal/service"
	"microcourse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuizController 服务端测验会话，每个请求推进一次状态
type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

type SelectOptionRequest struct {
	Option *int `json:"option" binding:"required,min=0"`
}

type quizStep func(ctx context.Context, actor service.Actor, moduleID string) (*service.QuizView, error)

func (c *QuizController) run(ctx *gin.Context, step quizStep) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	view, err := step(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Open godoc
// @Summary 打开模块（内容页），开始新的测验会话
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 403 {object} util.Response "模块未解锁"
// @Router /api/modules/{id} [get]
func (c *QuizController) Open(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Open)
}

// State godoc
// @Summary 当前测验会话状态
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/modules/{id}/quiz [get]
func (c *QuizController) State(ctx *gin.Context) {
	c.run(ctx, c.QuizService.State)
}

// Start godoc
// @Summary 开始测验
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 409 {object} util.Response "非法状态转换"
// @Router /api/modules/{id}/quiz/start [post]
func (c *QuizController) Start(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Start)
}

// Select godoc
// @Summary 选择选项
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Param body body SelectOptionRequest true "选项下标"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Router /api/modules/{id}/quiz/select [post]
func (c *QuizController) Select(ctx *gin.Context) {
	var req SelectOptionRequest
	if !bindJSON(ctx, &req) {
		return
	}
	c.run(ctx, func(rctx context.Context, actor service.Actor, moduleID string) (*service.QuizView, error) {
		return c.QuizService.Select(rctx, actor, moduleID, *req.Option)
	})
}

// Submit godoc
// @Summary 提交当前题目
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Router /api/modules/{id}/quiz/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Submit)
}

// Next godoc
// @Summary 下一题；最后一题之后进入结果页
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Router /api/modules/{id}/quiz/next [post]
func (c *QuizController) Next(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Next)
}

// Previous godoc
// @Summary 上一题
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Router /api/modules/{id}/quiz/previous [post]
func (c *QuizController) Previous(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Previous)
}

// Retry godoc
// @Summary 未通过时重新测验
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Router /api/modules/{id}/quiz/retry [post]
func (c *QuizController) Retry(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Retry)
}

// Complete godoc
// @Summary 结束测验，通过时推进学习进度
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=service.QuizCompletion}
// @Router /api/modules/{id}/quiz/complete [post]
func (c *QuizController) Complete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	result, err := c.QuizService.Complete(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
