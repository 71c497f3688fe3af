package controller

import (
	"errors"
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type StudentAssessmentController struct {
	Sessions *service.SessionService
}

func NewStudentAssessmentController(sessions *service.SessionService) *StudentAssessmentController {
	return &StudentAssessmentController{Sessions: sessions}
}

// respondAssessmentError 测评引擎错误到HTTP状态码的统一映射。
// NotFound 与 Forbidden 分开返回，客户端能区分"不存在"和"为什么不让访问"。
func respondAssessmentError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrTemplateNotFound),
		errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, util.ErrQuestionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrTemplateNotAvailable),
		errors.Is(err, util.ErrSessionExpired),
		errors.Is(err, util.ErrResultsHidden):
		util.Forbidden(ctx, err.Error())
	case errors.Is(err, util.ErrActiveSessionExists),
		errors.Is(err, util.ErrMaxAttemptsReached),
		errors.Is(err, util.ErrQuestionAlreadyAnswered),
		errors.Is(err, util.ErrSessionNotInProgress),
		errors.Is(err, util.ErrQuestionNotInSession),
		errors.Is(err, util.ErrSessionNotCompleted):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

type StartAssessmentRequest struct {
	TemplateID uint `json:"templateId" binding:"required"`
}

// StartAssessment godoc
// @Summary 开始一次测评
// @Tags 学生测评
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body StartAssessmentRequest true "模板ID"
// @Success 201 {object} util.Response{data=service.StartSessionResult}
// @Failure 400 {object} util.Response "存在进行中会话或已达次数上限"
// @Failure 403 {object} util.Response "模板未启用或未公开"
// @Router /api/student/assessments/start [post]
func (c *StudentAssessmentController) StartAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req StartAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Sessions.Start(req.TemplateID, user.UserID)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Created(ctx, result)
}

// GetSession godoc
// @Summary 查询会话状态与剩余时间
// @Tags 学生测评
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "会话令牌"
// @Success 200 {object} util.Response{data=service.SessionStatusResult}
// @Failure 403 {object} util.Response "会话已过期"
// @Router /api/student/assessments/session/{token} [get]
func (c *StudentAssessmentController) GetSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Sessions.GetSession(ctx.Param("token"), user.UserID)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// GetSessionQuestion godoc
// @Summary 获取会话内单题（脱敏）及已有作答
// @Tags 学生测评
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "会话令牌"
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response{data=service.SessionQuestionResult}
// @Router /api/student/assessments/session/{token}/question/{questionId} [get]
func (c *StudentAssessmentController) GetSessionQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	questionID, err := strconv.Atoi(ctx.Param("questionId"))
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	result, err := c.Sessions.GetSessionQuestion(ctx.Param("token"), user.UserID, uint(questionID))
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// SubmitResponse godoc
// @Summary 提交单题作答
// @Tags 学生测评
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SubmitResponseRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.SubmitResponseResult}
// @Failure 400 {object} util.Response "答案形态非法、时间为负或该题已作答"
// @Router /api/student/assessments/response [post]
func (c *StudentAssessmentController) SubmitResponse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	// 选项ID与文本答案必须二选一
	hasOption := req.SelectedOptionID != nil
	hasText := req.TextAnswer != ""
	if hasOption == hasText {
		util.BadRequest(ctx, "exactly one of selectedOptionId and textAnswer is required")
		return
	}
	if req.TimeSpentSeconds < 0 {
		util.BadRequest(ctx, "timeSpentSeconds must not be negative")
		return
	}

	result, err := c.Sessions.SubmitResponse(user.UserID, req)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// PauseSession godoc
// @Summary 暂停标注（不停表）
// @Tags 学生测评
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "会话令牌"
// @Success 200 {object} util.Response
// @Router /api/student/assessments/session/{token}/pause [put]
func (c *StudentAssessmentController) PauseSession(ctx *gin.Context) {
	c.annotateSession(ctx, true)
}

// ResumeSession godoc
// @Summary 恢复标注
// @Tags 学生测评
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "会话令牌"
// @Success 200 {object} util.Response
// @Router /api/student/assessments/session/{token}/resume [put]
func (c *StudentAssessmentController) ResumeSession(ctx *gin.Context) {
	c.annotateSession(ctx, false)
}

func (c *StudentAssessmentController) annotateSession(ctx *gin.Context, pause bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var (
		ts  interface{}
		err error
	)
	if pause {
		ts, err = c.Sessions.Pause(ctx.Param("token"), user.UserID)
	} else {
		ts, err = c.Sessions.Resume(ctx.Param("token"), user.UserID)
	}
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true, "timestamp": ts})
}

type FinishAssessmentRequest struct {
	SessionToken string `json:"sessionToken" binding:"required"`
}

// FinishAssessment godoc
// @Summary 交卷并终局评分
// @Tags 学生测评
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body FinishAssessmentRequest true "会话令牌"
// @Success 200 {object} util.Response{data=service.FinishSessionResult}
// @Router /api/student/assessments/finish [post]
func (c *StudentAssessmentController) FinishAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req FinishAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Sessions.Finish(req.SessionToken, user.UserID)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// GetHistory godoc
// @Summary 作答历史（分页，可按状态/模板过滤）
// @Tags 学生测评
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param status query string false "会话状态"
// @Param template_id query int false "模板ID"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/student/assessments/history [get]
func (c *StudentAssessmentController) GetHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	status := ctx.Query("status")
	templateID := uint(0)
	if idStr := ctx.Query("template_id"); idStr != "" {
		if id, err := strconv.Atoi(idStr); err == nil {
			templateID = uint(id)
		}
	}

	sessions, total, err := c.Sessions.History(user.UserID, page, limit, status, templateID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  sessions,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetResults godoc
// @Summary 成绩摘要
// @Tags 学生测评
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=service.ResultSummary}
// @Failure 400 {object} util.Response "会话尚未完成"
// @Failure 403 {object} util.Response "模板配置为不立即展示结果"
// @Router /api/student/assessments/results/{sessionId} [get]
func (c *StudentAssessmentController) GetResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Sessions.GetResults(ctx.Param("sessionId"), user.UserID)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// GetDetailedResults godoc
// @Summary 逐题成绩与难度分布
// @Tags 学生测评
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=service.DetailedResult}
// @Router /api/student/assessments/results/{sessionId}/detailed [get]
func (c *StudentAssessmentController) GetDetailedResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Sessions.GetDetailedResults(ctx.Param("sessionId"), user.UserID)
	if err != nil {
		respondAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// ListAvailableTemplates godoc
// @Summary 学生端可参加的测评列表
// @Tags 学生测评
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/student/assessments/templates [get]
func (c *StudentAssessmentController) ListAvailableTemplates(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	templates, total, err := c.Sessions.ListPublicTemplates(page, limit)
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
