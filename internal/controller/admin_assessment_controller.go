package controller

import (
	"fmt"
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminAssessmentController struct {
	Questions *service.QuestionService
	Templates *service.TemplateService
	Storage   *service.StorageService
}

func NewAdminAssessmentController(questions *service.QuestionService, templates *service.TemplateService, storage *service.StorageService) *AdminAssessmentController {
	return &AdminAssessmentController{
		Questions: questions,
		Templates: templates,
		Storage:   storage,
	}
}

// CreateQuestion godoc
// @Summary 新建题目
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuestionRequest true "题目定义"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "题型非法、正确选项数不为1或缺少判分规则"
// @Router /api/admin/assessments/questions [post]
func (c *AdminAssessmentController) CreateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Questions.CreateQuestion(req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, q)
}

// GetQuestion godoc
// @Summary 查看题目（含答案与判分规则）
// @Tags 测评管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/admin/assessments/questions/{id} [get]
func (c *AdminAssessmentController) GetQuestion(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	q, err := c.Questions.GetQuestion(uint(id))
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, q)
}

// ListQuestions godoc
// @Summary 题库分页列表
// @Tags 测评管理
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param type query string false "题型过滤"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/assessments/questions [get]
func (c *AdminAssessmentController) ListQuestions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	questionType := ctx.Query("type")

	qs, total, err := c.Questions.ListQuestions(page, limit, questionType)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  qs,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// UpdateQuestion godoc
// @Summary 更新题目（选项与判分规则整体替换）
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Param body body service.QuestionRequest true "题目定义"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/admin/assessments/questions/{id} [put]
func (c *AdminAssessmentController) UpdateQuestion(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Questions.UpdateQuestion(uint(id), req)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, q)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 测评管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/assessments/questions/{id} [delete]
func (c *AdminAssessmentController) DeleteQuestion(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	if err := c.Questions.DeleteQuestion(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": true})
}

// UploadQuestionImage godoc
// @Summary 上传题目配图
// @Tags 测评管理
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param image formData file true "图片文件"
// @Success 200 {object} util.Response{data=map[string]string}
// @Router /api/admin/assessments/questions/image [post]
func (c *AdminAssessmentController) UploadQuestionImage(ctx *gin.Context) {
	file, err := ctx.FormFile("image")
	if err != nil {
		util.BadRequest(ctx, "image file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	filename := fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(file.Filename))
	url, err := c.Storage.UploadQuestionImage(ctx.Request.Context(), filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": url})
}

// CreateTemplate godoc
// @Summary 新建测评模板
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.TemplateRequest true "模板定义"
// @Success 201 {object} util.Response{data=model.AssessmentTemplate}
// @Router /api/admin/assessments/templates [post]
func (c *AdminAssessmentController) CreateTemplate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.TemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	t, err := c.Templates.CreateTemplate(user.UserID, req)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Created(ctx, t)
}

// GetTemplate godoc
// @Summary 查看模板及题目关联
// @Tags 测评管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "模板ID"
// @Success 200 {object} util.Response{data=model.AssessmentTemplate}
// @Router /api/admin/assessments/templates/{id} [get]
func (c *AdminAssessmentController) GetTemplate(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid template id")
		return
	}

	t, err := c.Templates.GetTemplate(uint(id))
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, t)
}

// ListTemplates godoc
// @Summary 模板分页列表（含未公开）
// @Tags 测评管理
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/assessments/templates [get]
func (c *AdminAssessmentController) ListTemplates(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	templates, total, err := c.Templates.ListTemplates(page, limit, false)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  templates,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// UpdateTemplate godoc
// @Summary 更新模板（题目关联整体替换并清缓存）
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "模板ID"
// @Param body body service.TemplateRequest true "模板定义"
// @Success 200 {object} util.Response{data=model.AssessmentTemplate}
// @Router /api/admin/assessments/templates/{id} [put]
func (c *AdminAssessmentController) UpdateTemplate(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid template id")
		return
	}

	var req service.TemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	t, err := c.Templates.UpdateTemplate(uint(id), req)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, t)
}

// DeleteTemplate godoc
// @Summary 删除模板
// @Tags 测评管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "模板ID"
// @Success 200 {object} util.Response
// @Router /api/admin/assessments/templates/{id} [delete]
func (c *AdminAssessmentController) DeleteTemplate(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid template id")
		return
	}

	if err := c.Templates.DeleteTemplate(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": true})
}
