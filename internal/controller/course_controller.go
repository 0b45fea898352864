package controller

import (
	"microcourse_backend/internal/model"
	"microcourse_backend/internal/service"
	"microcourse_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService     *service.CourseService
	EnrollmentService *service.EnrollmentService
}

func NewCourseController(courseService *service.CourseService, enrollmentService *service.EnrollmentService) *CourseController {
	return &CourseController{
		CourseService:     courseService,
		EnrollmentService: enrollmentService,
	}
}

// GenerateCourseRequest 从 SOP 文本生成课程
// swagger:model GenerateCourseRequest
type GenerateCourseRequest struct {
	Title       string `json:"title" form:"title"`
	Content     string `json:"content" form:"content"`
	ModuleCount string `json:"moduleCount" form:"moduleCount"`
	Difficulty  string `json:"difficulty" form:"difficulty"`
	PassScore   *int   `json:"passScore" form:"passScore"`
}

// UpdateCourseRequest 部分更新
// swagger:model UpdateCourseRequest
type UpdateCourseRequest struct {
	Title     *string `json:"title"`
	Status    *string `json:"status"`
	PassScore *int    `json:"passScore"`
}

// Generate godoc
// @Summary 从 SOP 生成课程
// @Description 支持 JSON 正文或 multipart 表单（file 字段）
// @Tags 课程
// @Accept json,mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param body body GenerateCourseRequest false "生成参数"
// @Param file formData file false "SOP 文件"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "权限不足"
// @Failure 502 {object} util.Response "生成失败"
// @Router /api/courses/generate [post]
func (c *CourseController) Generate(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req GenerateCourseRequest
	in := service.GenerateCourseInput{}

	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		if err := ctx.ShouldBind(&req); err != nil {
			respondBindError(ctx, err)
			return
		}
		file, err := ctx.FormFile("file")
		if err == nil {
			if !util.HasAllowedExtension(file.Filename, util.AllowedSOPExtensions) {
				util.ValidationFailed(ctx, util.NewValidationError("file", "unsupported file type"))
				return
			}
			src, err := file.Open()
			if err != nil {
				util.BadRequest(ctx, "Failed to read file")
				return
			}
			defer src.Close()

			data, err := util.ReadLimited(src, util.MaxSOPFileSize)
			if err != nil {
				util.ValidationFailed(ctx, util.NewValidationError("file", err.Error()))
				return
			}
			if _, err := util.ValidateMimeType(data, []string{util.MimeText}); err != nil {
				util.ValidationFailed(ctx, util.NewValidationError("file", err.Error()))
				return
			}
			in.FileName = file.Filename
			in.FileData = data
			if strings.TrimSpace(req.Content) == "" {
				req.Content = string(data)
			}
		}
	} else if !bindJSON(ctx, &req) {
		return
	}

	in.Title = req.Title
	in.Content = req.Content
	in.ModuleCount = req.ModuleCount
	in.Difficulty = req.Difficulty
	in.PassScore = req.PassScore

	course, err := c.CourseService.Generate(ctx.Request.Context(), actor, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// List godoc
// @Summary 组织内课程列表
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) List(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courses, err := c.CourseService.ListCourses(actor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// Get godoc
// @Summary 课程详情（含模块与题目）
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) Get(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	course, err := c.CourseService.GetCourse(actor, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// Update godoc
// @Summary 更新课程（标题、发布状态、及格分）
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param body body UpdateCourseRequest true "更新内容"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/courses/{id} [patch]
func (c *CourseController) Update(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req UpdateCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	upd := service.CourseUpdate{Title: req.Title, PassScore: req.PassScore}
	if req.Status != nil {
		status := model.CourseStatus(*req.Status)
		upd.Status = &status
	}

	course, err := c.CourseService.UpdateCourse(actor, ctx.Param("id"), upd)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// Delete godoc
// @Summary 删除课程及其模块和题目
// @Tags 课程
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.CourseService.DeleteCourse(actor, ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// Progress godoc
// @Summary 当前用户在课程中的进度与模块解锁状态
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Router /api/courses/{id}/progress [get]
func (c *CourseController) Progress(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	progress, err := c.EnrollmentService.CourseProgress(actor, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
