package service

import (
	"encoding/json"
	"errors"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SessionService struct {
	Sessions  *repository.SessionRepository
	Templates *repository.TemplateRepository
	Questions *QuestionService
	Cfg       *config.Config
}

func NewSessionService(sessions *repository.SessionRepository, templates *repository.TemplateRepository, questions *QuestionService, cfg *config.Config) *SessionService {
	return &SessionService{
		Sessions:  sessions,
		Templates: templates,
		Questions: questions,
		Cfg:       cfg,
	}
}

// SanitizedOption 学生端选项视图，不携带正确性标记
type SanitizedOption struct {
	ID         uint   `json:"id"`
	OptionText string `json:"optionText"`
	OrderIndex int    `json:"orderIndex"`
}

// SanitizedQuestion 学生端题目视图，剥离答案、解析等泄题字段
type SanitizedQuestion struct {
	ID               uint              `json:"id"`
	QuestionType     string            `json:"questionType"`
	Content          string            `json:"content"`
	ImageURL         string            `json:"imageUrl,omitempty"`
	Points           int               `json:"points"`
	Difficulty       string            `json:"difficulty"`
	TimeLimitSeconds int               `json:"timeLimitSeconds,omitempty"`
	Options          []SanitizedOption `json:"options,omitempty"`
}

// sanitizeQuestion 开考/取题时统一走这里，randomizeOptions 只打乱呈现顺序，
// 存储中的选项顺序和正确性映射不动
func sanitizeQuestion(q *model.Question, randomizeOptions bool, rng *rand.Rand) SanitizedQuestion {
	sq := SanitizedQuestion{
		ID:               q.ID,
		QuestionType:     q.QuestionType,
		Content:          q.Content,
		ImageURL:         q.ImageURL,
		Points:           q.EffectivePoints(),
		Difficulty:       q.Difficulty,
		TimeLimitSeconds: q.TimeLimitSeconds,
	}
	if len(q.Options) > 0 {
		sq.Options = make([]SanitizedOption, len(q.Options))
		for i, o := range q.Options {
			sq.Options[i] = SanitizedOption{ID: o.ID, OptionText: o.OptionText, OrderIndex: o.OrderIndex}
		}
		if randomizeOptions {
			rng.Shuffle(len(sq.Options), func(i, j int) {
				sq.Options[i], sq.Options[j] = sq.Options[j], sq.Options[i]
			})
		}
	}
	return sq
}

// shuffleIDs Fisher–Yates，开考时调用一次，之后读取沿用固化顺序
func shuffleIDs(ids []uint, rng *rand.Rand) []uint {
	out := make([]uint, len(ids))
	copy(out, ids)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// canStartAttempt 开考准入检查：模板可用、无进行中会话、未达次数上限
func canStartAttempt(t *model.AssessmentTemplate, hasActive bool, attemptsUsed int) error {
	if !t.IsActive || !t.IsPublic {
		return util.ErrTemplateNotAvailable
	}
	if hasActive {
		return util.ErrActiveSessionExists
	}
	if limit := t.AttemptCap(); limit > 0 && attemptsUsed >= limit {
		return util.ErrMaxAttemptsReached
	}
	return nil
}

// computePercentage 按答对题数占总题数的比例取整
func computePercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// SessionProgress 作答进度快照
type SessionProgress struct {
	TotalQuestions    int `json:"totalQuestions"`
	AnsweredQuestions int `json:"answeredQuestions"`
	RemainingCount    int `json:"remainingCount"`
}

type StartSessionResult struct {
	SessionToken   string                    `json:"sessionToken"`
	SessionID      string                    `json:"sessionId"`
	Template       *model.AssessmentTemplate `json:"template"`
	ExpiresAt      time.Time                 `json:"expiresAt"`
	Questions      []SanitizedQuestion       `json:"questions"`
	TotalQuestions int                       `json:"totalQuestions"`
	AttemptNumber  int                       `json:"attemptNumber"`
}

// Start 开启一次作答会话。
// 尝试序号取 1+历史最大值；出题顺序在此刻固化（可选洗牌），后续读取不再变动。
func (s *SessionService) Start(templateID, userID uint) (*StartSessionResult, error) {
	template, err := s.Templates.FindByID(templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTemplateNotFound
		}
		return nil, err
	}

	// 遗留的进行中会话若已超时，这次读取顺带将其置为 expired，不阻塞新开考
	hasActive := false
	if active, err := s.Sessions.FindActiveByUserAndTemplate(userID, templateID); err == nil {
		if time.Now().After(active.ExpiresAt) {
			s.markExpired(active)
		} else {
			hasActive = true
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	attemptsUsed, err := s.Sessions.CountByUserAndTemplate(userID, templateID)
	if err != nil {
		return nil, err
	}

	if err := canStartAttempt(template, hasActive, int(attemptsUsed)); err != nil {
		return nil, err
	}

	maxAttempt, err := s.Sessions.MaxAttemptNumber(userID, templateID)
	if err != nil {
		return nil, err
	}

	links, err := s.Templates.ListLinks(templateID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, util.ErrQuestionNotFound
	}
	questionIDs := make([]uint, len(links))
	for i, l := range links {
		questionIDs[i] = l.QuestionID
	}

	questions, err := s.Questions.FetchTemplateQuestions(templateID, questionIDs)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrQuestionNotFound
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	order := make([]uint, len(questions))
	for i, q := range questions {
		order[i] = q.ID
	}
	if template.RandomizeQuestions {
		order = shuffleIDs(order, rng)
	}
	orderJSON, _ := json.Marshal(order)

	timeLimit := template.TimeLimitMinutes
	if timeLimit <= 0 {
		timeLimit = s.Cfg.Assessment.DefaultTimeLimit
	}

	now := time.Now()
	session := &model.AssessmentSession{
		SessionToken:  uuid.New().String(),
		UserID:        userID,
		TemplateID:    templateID,
		AttemptNumber: maxAttempt + 1,
		Status:        model.SessionInProgress,
		StartedAt:     now,
		ExpiresAt:     now.Add(time.Duration(timeLimit) * time.Minute),
		QuestionOrder: orderJSON,
	}
	if err := s.Sessions.Create(session); err != nil {
		return nil, err
	}

	byID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	sanitized := make([]SanitizedQuestion, 0, len(order))
	for _, id := range order {
		if q, ok := byID[id]; ok {
			sanitized = append(sanitized, sanitizeQuestion(q, template.RandomizeOptions, rng))
		}
	}

	monitoring.SessionsStarted.WithLabelValues(strconv.Itoa(int(templateID))).Inc()
	logger.Log.Info("assessment session started",
		zap.String("session_id", session.ID),
		zap.Uint("user_id", userID),
		zap.Uint("template_id", templateID),
		zap.Int("attempt_number", session.AttemptNumber))

	return &StartSessionResult{
		SessionToken:   session.SessionToken,
		SessionID:      session.ID,
		Template:       template,
		ExpiresAt:      session.ExpiresAt,
		Questions:      sanitized,
		TotalQuestions: len(sanitized),
		AttemptNumber:  session.AttemptNumber,
	}, nil
}

func (s *SessionService) markExpired(session *model.AssessmentSession) {
	session.Status = model.SessionExpired
	if err := s.Sessions.Update(session); err != nil {
		logger.Log.Error("failed to expire session", zap.String("session_id", session.ID), zap.Error(err))
	}
}

// resolveSession 按token取会话并校验归属；
// 到期的进行中会话在这次读取中惰性转为 expired 并返回过期错误
func (s *SessionService) resolveSession(token string, userID uint) (*model.AssessmentSession, error) {
	session, err := s.Sessions.FindByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		// 不泄露他人会话的存在
		return nil, util.ErrSessionNotFound
	}

	if session.Status == model.SessionInProgress && time.Now().After(session.ExpiresAt) {
		s.markExpired(session)
		return session, util.ErrSessionExpired
	}
	return session, nil
}

type SessionStatusResult struct {
	SessionID            string              `json:"sessionId"`
	Status               model.SessionStatus `json:"status"`
	AttemptNumber        int                 `json:"attemptNumber"`
	StartedAt            time.Time           `json:"startedAt"`
	ExpiresAt            time.Time           `json:"expiresAt"`
	TimeRemainingSeconds int                 `json:"timeRemainingSeconds"`
	Progress             SessionProgress     `json:"progress"`
}

func (s *SessionService) GetSession(token string, userID uint) (*SessionStatusResult, error) {
	session, err := s.resolveSession(token, userID)
	if err != nil {
		return nil, err
	}

	progress, err := s.progress(session)
	if err != nil {
		return nil, err
	}

	remaining := int(time.Until(session.ExpiresAt).Seconds())
	if remaining < 0 || session.Status != model.SessionInProgress {
		remaining = 0
	}

	return &SessionStatusResult{
		SessionID:            session.ID,
		Status:               session.Status,
		AttemptNumber:        session.AttemptNumber,
		StartedAt:            session.StartedAt,
		ExpiresAt:            session.ExpiresAt,
		TimeRemainingSeconds: remaining,
		Progress:             progress,
	}, nil
}

func (s *SessionService) progress(session *model.AssessmentSession) (SessionProgress, error) {
	total := len(session.OrderedQuestionIDs())
	answered, err := s.Sessions.CountResponses(session.ID)
	if err != nil {
		return SessionProgress{}, err
	}
	return SessionProgress{
		TotalQuestions:    total,
		AnsweredQuestions: int(answered),
		RemainingCount:    total - int(answered),
	}, nil
}

type SessionQuestionResult struct {
	Question SanitizedQuestion      `json:"question"`
	Response *model.SessionResponse `json:"response,omitempty"`
	Progress SessionProgress        `json:"progress"`
}

// GetSessionQuestion 取会话内单题：脱敏题面 + 已有作答（如有）+ 进度
func (s *SessionService) GetSessionQuestion(token string, userID uint, questionID uint) (*SessionQuestionResult, error) {
	session, err := s.resolveSession(token, userID)
	if err != nil {
		return nil, err
	}

	question, template, err := s.sessionQuestion(session, questionID)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	result := &SessionQuestionResult{
		Question: sanitizeQuestion(question, template.RandomizeOptions, rng),
	}

	if resp, err := s.Sessions.FindResponse(session.ID, questionID); err == nil {
		result.Response = resp
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress, err := s.progress(session)
	if err != nil {
		return nil, err
	}
	result.Progress = progress
	return result, nil
}

// sessionQuestion 校验题目属于该会话的模板并返回完整定义
func (s *SessionService) sessionQuestion(session *model.AssessmentSession, questionID uint) (*model.Question, *model.AssessmentTemplate, error) {
	ids := session.OrderedQuestionIDs()
	found := false
	for _, id := range ids {
		if id == questionID {
			found = true
			break
		}
	}
	if !found {
		return nil, nil, util.ErrQuestionNotInSession
	}

	template, err := s.Templates.FindByID(session.TemplateID)
	if err != nil {
		return nil, nil, err
	}

	questions, err := s.Questions.FetchTemplateQuestions(session.TemplateID, ids)
	if err != nil {
		return nil, nil, err
	}
	for i := range questions {
		if questions[i].ID == questionID {
			return &questions[i], template, nil
		}
	}
	return nil, nil, util.ErrQuestionNotFound
}

type SubmitResponseRequest struct {
	SessionToken     string `json:"sessionToken" binding:"required"`
	QuestionID       uint   `json:"questionId" binding:"required"`
	SelectedOptionID *uint  `json:"selectedOptionId"`
	TextAnswer       string `json:"textAnswer"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

type SubmitResponseResult struct {
	ResponseID      string          `json:"responseId"`
	IsCorrect       bool            `json:"isCorrect"`
	PointsEarned    int             `json:"pointsEarned"`
	Explanation     string          `json:"explanation,omitempty"`
	SessionProgress SessionProgress `json:"sessionProgress"`
}

// SubmitResponse 提交单题作答。每题只许一次，重复提交判冲突而非覆盖。
func (s *SessionService) SubmitResponse(userID uint, req SubmitResponseRequest) (*SubmitResponseResult, error) {
	session, err := s.resolveSession(req.SessionToken, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionInProgress {
		return nil, util.ErrSessionNotInProgress
	}

	if _, err := s.Sessions.FindResponse(session.ID, req.QuestionID); err == nil {
		return nil, util.ErrQuestionAlreadyAnswered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	question, _, err := s.sessionQuestion(session, req.QuestionID)
	if err != nil {
		return nil, err
	}

	eval := EvaluateAnswer(question, SubmittedAnswer{
		SelectedOptionID: req.SelectedOptionID,
		TextAnswer:       req.TextAnswer,
	})

	response := &model.SessionResponse{
		SessionID:        session.ID,
		QuestionID:       req.QuestionID,
		SelectedOptionID: req.SelectedOptionID,
		TextAnswer:       strings.TrimSpace(req.TextAnswer),
		IsCorrect:        eval.IsCorrect,
		PointsEarned:     eval.PointsEarned,
		TimeSpentSeconds: req.TimeSpentSeconds,
		AnsweredAt:       time.Now(),
	}
	if err := s.Sessions.CreateResponse(response); err != nil {
		// 唯一索引兜底并发重复提交：输掉竞争的一方观察到冲突
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, util.ErrQuestionAlreadyAnswered
		}
		return nil, err
	}

	progress, err := s.progress(session)
	if err != nil {
		return nil, err
	}

	return &SubmitResponseResult{
		ResponseID:      response.ID,
		IsCorrect:       response.IsCorrect,
		PointsEarned:    response.PointsEarned,
		Explanation:     question.Explanation,
		SessionProgress: progress,
	}, nil
}

// Pause 只做元数据标注，计时照常走，expires_at 不变
func (s *SessionService) Pause(token string, userID uint) (time.Time, error) {
	return s.annotate(token, userID, true)
}

func (s *SessionService) Resume(token string, userID uint) (time.Time, error) {
	return s.annotate(token, userID, false)
}

func (s *SessionService) annotate(token string, userID uint, pause bool) (time.Time, error) {
	session, err := s.resolveSession(token, userID)
	if err != nil {
		return time.Time{}, err
	}
	if session.Status != model.SessionInProgress {
		return time.Time{}, util.ErrSessionNotInProgress
	}

	var meta model.SessionMetadata
	if len(session.Metadata) > 0 {
		_ = json.Unmarshal(session.Metadata, &meta)
	}

	now := time.Now()
	if pause {
		meta.PausedAt = &now
		meta.PauseCount++
	} else {
		meta.ResumedAt = &now
	}
	session.Metadata, _ = json.Marshal(meta)
	if err := s.Sessions.Update(session); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

type FinishSessionResult struct {
	SessionID       string `json:"sessionId"`
	TotalQuestions  int    `json:"totalQuestions"`
	CorrectAnswers  int    `json:"correctAnswers"`
	TotalScore      int    `json:"totalScore"`
	PercentageScore int    `json:"percentageScore"`
	Passed          bool   `json:"passed"`
	CanRetake       bool   `json:"canRetake"`
}

// Finish 终局评分：统计已存作答，写回聚合字段，状态置为 completed。
// 已结束或已过期的会话拒绝再次交卷。
func (s *SessionService) Finish(token string, userID uint) (*FinishSessionResult, error) {
	session, err := s.resolveSession(token, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionInProgress {
		return nil, util.ErrSessionNotInProgress
	}

	template, err := s.Templates.FindByID(session.TemplateID)
	if err != nil {
		return nil, err
	}

	responses, err := s.Sessions.ListResponses(session.ID)
	if err != nil {
		return nil, err
	}

	totalQuestions := len(session.OrderedQuestionIDs())
	correct := 0
	totalScore := 0
	for _, r := range responses {
		if r.IsCorrect {
			correct++
		}
		totalScore += r.PointsEarned
	}

	passingPct := template.PassingPercentage
	if passingPct <= 0 {
		passingPct = s.Cfg.Assessment.DefaultPassingPct
	}

	now := time.Now()
	session.Status = model.SessionCompleted
	session.CompletedAt = &now
	session.TotalScore = totalScore
	session.PercentageScore = computePercentage(correct, totalQuestions)
	session.Passed = session.PercentageScore >= passingPct
	if err := s.Sessions.Update(session); err != nil {
		return nil, err
	}

	attemptsUsed, err := s.Sessions.CountByUserAndTemplate(userID, session.TemplateID)
	if err != nil {
		return nil, err
	}
	attemptCap := template.AttemptCap()
	canRetake := template.IsActive && template.IsPublic && template.AllowRetakes &&
		(attemptCap == 0 || int(attemptsUsed) < attemptCap)

	monitoring.SessionsFinished.WithLabelValues(
		strconv.Itoa(int(session.TemplateID)),
		strconv.FormatBool(session.Passed),
	).Inc()
	logger.Log.Info("assessment session finished",
		zap.String("session_id", session.ID),
		zap.Int("percentage_score", session.PercentageScore),
		zap.Bool("passed", session.Passed))

	return &FinishSessionResult{
		SessionID:       session.ID,
		TotalQuestions:  totalQuestions,
		CorrectAnswers:  correct,
		TotalScore:      totalScore,
		PercentageScore: session.PercentageScore,
		Passed:          session.Passed,
		CanRetake:       canRetake,
	}, nil
}

// ListPublicTemplates 学生端只看得到启用且公开的模板
func (s *SessionService) ListPublicTemplates(page, limit int) ([]model.AssessmentTemplate, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Templates.List(page, limit, true)
}

func (s *SessionService) History(userID uint, page, limit int, status string, templateID uint) ([]model.AssessmentSession, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = s.Cfg.Assessment.HistoryDefaultSize
	}
	return s.Sessions.ListByUser(userID, page, limit, status, templateID)
}
