package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type QuestionService struct {
	Repo *repository.QuestionRepository
	Cfg  *config.Config
	RDB  *redis.Client
}

func NewQuestionService(repo *repository.QuestionRepository, cfg *config.Config, rdb *redis.Client) *QuestionService {
	return &QuestionService{Repo: repo, Cfg: cfg, RDB: rdb}
}

// FetchQuestions 题库适配层。
// ids 为空：临时组卷，只取上架题，按创建时间倒序，受默认页大小限制；
// ids 非空：精确解析（不过滤上架状态），已进模板/会话的题目下架后不影响进行中的作答。
// 未知题型直接丢弃而非报错，选项和判分规则按ID列表批量挂载。
func (s *QuestionService) FetchQuestions(ids []uint) ([]model.Question, error) {
	var (
		qs  []model.Question
		err error
	)
	if len(ids) == 0 {
		qs, err = s.Repo.ListActive("", s.Cfg.Assessment.DefaultPageSize)
	} else {
		qs, err = s.Repo.FindByIDs(ids)
	}
	if err != nil {
		return nil, err
	}

	qs = dropUnknownTypes(qs)
	if len(qs) == 0 {
		return qs, nil
	}

	if err := s.attachDetails(qs); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		qs = reorderByIDs(qs, ids)
	}
	return qs, nil
}

// dropUnknownTypes 脏数据降级：归一化失败的题型静默剔除
func dropUnknownTypes(qs []model.Question) []model.Question {
	out := qs[:0]
	for _, q := range qs {
		if _, ok := q.Kind(); ok {
			out = append(out, q)
		}
	}
	return out
}

// reorderByIDs 按请求的ID顺序返回，缺失的题目跳过
func reorderByIDs(qs []model.Question, ids []uint) []model.Question {
	byID := make(map[uint]model.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	out := make([]model.Question, 0, len(qs))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

func (s *QuestionService) attachDetails(qs []model.Question) error {
	ids := make([]uint, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}

	opts, err := s.Repo.ListOptionsByQuestionIDs(ids)
	if err != nil {
		return err
	}
	optsByQuestion := make(map[uint][]model.QuestionOption)
	for _, o := range opts {
		optsByQuestion[o.QuestionID] = append(optsByQuestion[o.QuestionID], o)
	}

	specs, err := s.Repo.ListTextAnswerSpecsByQuestionIDs(ids)
	if err != nil {
		return err
	}
	specByQuestion := make(map[uint]model.TextAnswerSpec, len(specs))
	for _, sp := range specs {
		specByQuestion[sp.QuestionID] = sp
	}

	for i := range qs {
		qs[i].Options = optsByQuestion[qs[i].ID]
		if sp, ok := specByQuestion[qs[i].ID]; ok {
			spec := sp
			qs[i].TextAnswer = &spec
		}
	}
	return nil
}

// templateQuestionCache 缓存值连同当初请求的ID列表一起存储。
// 旧会话固化的 question_order 和模板当前的题目集可能不同，
// 命中时必须核对ID列表，否则旧会话的读取会让新开考拿到过期题目集。
type templateQuestionCache struct {
	RequestedIDs []uint           `json:"requestedIds"`
	Questions    []model.Question `json:"questions"`
}

func sameIDList(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FetchTemplateQuestions 解析模板题目集，走redis缓存（开考高频读路径）。
// ID列表不一致的缓存按未命中处理并被覆盖。
func (s *QuestionService) FetchTemplateQuestions(templateID uint, questionIDs []uint) ([]model.Question, error) {
	cacheKey := fmt.Sprintf("assessment:template:%d:questions", templateID)

	if s.RDB != nil {
		if cached, err := s.RDB.Get(context.Background(), cacheKey).Bytes(); err == nil {
			var entry templateQuestionCache
			if err := json.Unmarshal(cached, &entry); err == nil && sameIDList(entry.RequestedIDs, questionIDs) {
				return entry.Questions, nil
			}
		}
	}

	qs, err := s.FetchQuestions(questionIDs)
	if err != nil {
		return nil, err
	}

	if s.RDB != nil {
		entry := templateQuestionCache{RequestedIDs: questionIDs, Questions: qs}
		if data, err := json.Marshal(entry); err == nil {
			ttl := time.Duration(s.Cfg.Assessment.QuestionCacheTTL) * time.Second
			s.RDB.Set(context.Background(), cacheKey, data, ttl)
		}
	}
	return qs, nil
}

// InvalidateTemplateCache 模板或其题目变更后清缓存
func (s *QuestionService) InvalidateTemplateCache(templateID uint) {
	if s.RDB == nil {
		return
	}
	cacheKey := fmt.Sprintf("assessment:template:%d:questions", templateID)
	s.RDB.Del(context.Background(), cacheKey)
}

// invalidateReferencingTemplates 题目改动后清掉所有引用它的模板缓存，
// 避免在TTL窗口内继续按旧判分规则评分
func (s *QuestionService) invalidateReferencingTemplates(questionID uint) {
	if s.RDB == nil {
		return
	}
	ids, err := s.Repo.TemplateIDsReferencing(questionID)
	if err != nil {
		return
	}
	for _, id := range ids {
		s.InvalidateTemplateCache(id)
	}
}

// --- 管理端题库维护 ---

type QuestionOptionRequest struct {
	OptionText string `json:"optionText" binding:"required"`
	IsCorrect  bool   `json:"isCorrect"`
	OrderIndex int    `json:"orderIndex"`
}

type TextAnswerSpecRequest struct {
	CorrectAnswer    string   `json:"correctAnswer" binding:"required"`
	CaseSensitive    bool     `json:"caseSensitive"`
	ExactMatch       bool     `json:"exactMatch"`
	AlternateAnswers []string `json:"alternateAnswers"`
	Keywords         []string `json:"keywords"`
}

type QuestionRequest struct {
	QuestionType     string                  `json:"questionType" binding:"required"`
	Content          string                  `json:"content" binding:"required"`
	ImageURL         string                  `json:"imageUrl"`
	Points           int                     `json:"points"`
	Difficulty       string                  `json:"difficulty"`
	TimeLimitSeconds int                     `json:"timeLimitSeconds"`
	Explanation      string                  `json:"explanation"`
	IsActive         *bool                   `json:"isActive"`
	Options          []QuestionOptionRequest `json:"options"`
	TextAnswer       *TextAnswerSpecRequest  `json:"textAnswer"`
}

// validateQuestionRequest 选择题必须恰好一个正确选项，文本题必须带判分规则
func validateQuestionRequest(req *QuestionRequest) error {
	q := model.Question{QuestionType: req.QuestionType}
	kind, ok := q.Kind()
	if !ok {
		return fmt.Errorf("unsupported question type: %s", req.QuestionType)
	}

	switch kind {
	case model.KindChoice:
		if len(req.Options) == 0 {
			return errors.New("choice question requires a non-empty option list")
		}
		correct := 0
		for _, o := range req.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("choice question must have exactly one correct option, got %d", correct)
		}
	case model.KindText:
		if req.TextAnswer == nil {
			return errors.New("text question requires a text answer spec")
		}
	}
	return nil
}

func (s *QuestionService) CreateQuestion(req QuestionRequest) (*model.Question, error) {
	if err := validateQuestionRequest(&req); err != nil {
		return nil, err
	}

	q := &model.Question{
		QuestionType:     req.QuestionType,
		Content:          req.Content,
		ImageURL:         req.ImageURL,
		Points:           req.Points,
		Difficulty:       req.Difficulty,
		TimeLimitSeconds: req.TimeLimitSeconds,
		Explanation:      req.Explanation,
		IsActive:         true,
	}
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	if err := s.Repo.Create(q); err != nil {
		return nil, err
	}

	if err := s.saveDetails(q, &req); err != nil {
		// 明细写入失败时尽力回收题目主记录，避免残留半成品
		_ = s.Repo.Delete(q.ID)
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) saveDetails(q *model.Question, req *QuestionRequest) error {
	kind, _ := q.Kind()
	if kind == model.KindChoice {
		options := make([]model.QuestionOption, len(req.Options))
		for i, o := range req.Options {
			options[i] = model.QuestionOption{
				QuestionID: q.ID,
				OptionText: o.OptionText,
				IsCorrect:  o.IsCorrect,
				OrderIndex: o.OrderIndex,
			}
		}
		if err := s.Repo.CreateOptions(options); err != nil {
			return err
		}
		q.Options = options
		return nil
	}

	alternates, _ := json.Marshal(req.TextAnswer.AlternateAnswers)
	keywords, _ := json.Marshal(req.TextAnswer.Keywords)
	spec := &model.TextAnswerSpec{
		QuestionID:       q.ID,
		CorrectAnswer:    req.TextAnswer.CorrectAnswer,
		CaseSensitive:    req.TextAnswer.CaseSensitive,
		ExactMatch:       req.TextAnswer.ExactMatch,
		AlternateAnswers: alternates,
		Keywords:         keywords,
	}
	if err := s.Repo.CreateTextAnswerSpec(spec); err != nil {
		return err
	}
	q.TextAnswer = spec
	return nil
}

func (s *QuestionService) GetQuestion(id uint) (*model.Question, error) {
	qs, err := s.FetchQuestions([]uint{id})
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, util.ErrQuestionNotFound
	}
	return &qs[0], nil
}

func (s *QuestionService) ListQuestions(page, limit int, questionType string) ([]model.Question, int64, error) {
	if limit <= 0 || limit > s.Cfg.Assessment.DefaultPageSize {
		limit = s.Cfg.Assessment.DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	qs, total, err := s.Repo.List(page, limit, questionType)
	if err != nil {
		return nil, 0, err
	}
	if len(qs) > 0 {
		if err := s.attachDetails(qs); err != nil {
			return nil, 0, err
		}
	}
	return qs, total, nil
}

func (s *QuestionService) UpdateQuestion(id uint, req QuestionRequest) (*model.Question, error) {
	if err := validateQuestionRequest(&req); err != nil {
		return nil, err
	}

	q, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	q.QuestionType = req.QuestionType
	q.Content = req.Content
	q.ImageURL = req.ImageURL
	q.Points = req.Points
	q.Difficulty = req.Difficulty
	q.TimeLimitSeconds = req.TimeLimitSeconds
	q.Explanation = req.Explanation
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}
	if err := s.Repo.Update(q); err != nil {
		return nil, err
	}

	// 明细整体替换
	if err := s.Repo.DeleteOptionsByQuestion(q.ID); err != nil {
		return nil, err
	}
	if err := s.Repo.DeleteTextAnswerSpecByQuestion(q.ID); err != nil {
		return nil, err
	}
	if err := s.saveDetails(q, &req); err != nil {
		return nil, err
	}

	s.invalidateReferencingTemplates(q.ID)
	return q, nil
}

func (s *QuestionService) DeleteQuestion(id uint) error {
	// 先取引用关系再删，删完链接就查不到了
	s.invalidateReferencingTemplates(id)

	if err := s.Repo.DeleteOptionsByQuestion(id); err != nil {
		return err
	}
	if err := s.Repo.DeleteTextAnswerSpecByQuestion(id); err != nil {
		return err
	}
	return s.Repo.Delete(id)
}
