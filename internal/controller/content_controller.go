package controller

import (
	"microcourse_backend/internal/service"
	"microcourse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// CreateModuleRequest 追加模块
// swagger:model CreateModuleRequest
type CreateModuleRequest struct {
	Title              string   `json:"title" binding:"required"`
	ContentHTML        string   `json:"contentHtml"`
	LearningObjectives []string `json:"learningObjectives" binding:"required,min=1"`
}

// UpdateModuleRequest 部分更新模块
// swagger:model UpdateModuleRequest
type UpdateModuleRequest struct {
	Title              *string  `json:"title"`
	ContentHTML        *string  `json:"contentHtml"`
	LearningObjectives []string `json:"learningObjectives"`
}

type ImproveModuleRequest struct {
	Feedback string `json:"feedback"`
}

type RegenerateQuizRequest struct {
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced"`
}

// UpdateQuestionRequest 部分更新题目
// swagger:model UpdateQuestionRequest
type UpdateQuestionRequest struct {
	StemHTML      *string  `json:"stemHtml"`
	Options       []string `json:"options"`
	CorrectIndex  *int     `json:"correctIndex"`
	RationaleHTML *string  `json:"rationaleHtml"`
}

// CreateModule godoc
// @Summary 在课程末尾新增模块
// @Tags 模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param body body CreateModuleRequest true "模块内容"
// @Success 201 {object} util.Response{data=model.Module}
// @Router /api/courses/{id}/modules [post]
func (c *ContentController) CreateModule(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req CreateModuleRequest
	if !bindJSON(ctx, &req) {
		return
	}

	module, err := c.ContentService.CreateModule(actor, ctx.Param("id"), service.ModuleInput{
		Title:              req.Title,
		ContentHTML:        req.ContentHTML,
		LearningObjectives: req.LearningObjectives,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// UpdateModule godoc
// @Summary 更新模块
// @Tags 模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Param body body UpdateModuleRequest true "更新内容"
// @Success 200 {object} util.Response{data=model.Module}
// @Router /api/modules/{id} [patch]
func (c *ContentController) UpdateModule(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req UpdateModuleRequest
	if !bindJSON(ctx, &req) {
		return
	}

	module, err := c.ContentService.UpdateModule(actor, ctx.Param("id"), service.ModuleUpdate{
		Title:              req.Title,
		ContentHTML:        req.ContentHTML,
		LearningObjectives: req.LearningObjectives,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// DeleteModule godoc
// @Summary 删除模块，其余模块重新编号
// @Tags 模块
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/modules/{id} [delete]
func (c *ContentController) DeleteModule(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.ContentService.DeleteModule(actor, ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// ImproveModule godoc
// @Summary AI 改写模块内容
// @Tags 模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Param body body ImproveModuleRequest false "改进意见"
// @Success 200 {object} util.Response{data=model.Module}
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/modules/{id}/improve [post]
func (c *ContentController) ImproveModule(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req ImproveModuleRequest
	if ctx.Request.ContentLength > 0 && !bindJSON(ctx, &req) {
		return
	}

	module, err := c.ContentService.ImproveModule(ctx.Request.Context(), actor, ctx.Param("id"), req.Feedback)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// RegenerateQuiz godoc
// @Summary AI 重新生成模块测验
// @Tags 模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Param body body RegenerateQuizRequest false "难度"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/modules/{id}/regenerate-quiz [post]
func (c *ContentController) RegenerateQuiz(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req RegenerateQuizRequest
	if ctx.Request.ContentLength > 0 && !bindJSON(ctx, &req) {
		return
	}

	questions, err := c.ContentService.RegenerateQuiz(ctx.Request.Context(), actor, ctx.Param("id"), req.Difficulty)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// UpdateQuestion godoc
// @Summary 更新题目
// @Tags 题目
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "题目ID"
// @Param body body UpdateQuestionRequest true "更新内容"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/questions/{id} [patch]
func (c *ContentController) UpdateQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req UpdateQuestionRequest
	if !bindJSON(ctx, &req) {
		return
	}

	question, err := c.ContentService.UpdateQuestion(actor, ctx.Param("id"), service.QuestionUpdate{
		StemHTML:      req.StemHTML,
		Options:       req.Options,
		CorrectIndex:  req.CorrectIndex,
		RationaleHTML: req.RationaleHTML,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// DeleteQuestion godoc
// @Summary 删除题目，其余题目重新编号
// @Tags 题目
// @Security ApiKeyAuth
// @Param id path string true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/questions/{id} [delete]
func (c *ContentController) DeleteQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.ContentService.DeleteQuestion(actor, ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
