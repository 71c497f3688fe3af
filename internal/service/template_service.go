package service

import (
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TemplateService struct {
	Repo      *repository.TemplateRepository
	Questions *QuestionService
}

func NewTemplateService(repo *repository.TemplateRepository, questions *QuestionService) *TemplateService {
	return &TemplateService{Repo: repo, Questions: questions}
}

type TemplateRequest struct {
	Title                  string `json:"title" binding:"required"`
	Description            string `json:"description"`
	TimeLimitMinutes       int    `json:"timeLimitMinutes"`
	PassingPercentage      int    `json:"passingPercentage"`
	RandomizeQuestions     bool   `json:"randomizeQuestions"`
	RandomizeOptions       bool   `json:"randomizeOptions"`
	ShowResultsImmediately *bool  `json:"showResultsImmediately"`
	AllowRetakes           *bool  `json:"allowRetakes"`
	MaxAttempts            int    `json:"maxAttempts"`
	IsActive               *bool  `json:"isActive"`
	IsPublic               bool   `json:"isPublic"`
	QuestionIDs            []uint `json:"questionIds" binding:"required,min=1"`
}

// CreateTemplate 先建模板再建题目关联；关联失败时尽力回收模板记录。
// 没有跨表事务保证，属于已知的软肋而非承诺。
func (s *TemplateService) CreateTemplate(creatorID uint, req TemplateRequest) (*model.AssessmentTemplate, error) {
	if err := s.verifyQuestionIDs(req.QuestionIDs); err != nil {
		return nil, err
	}

	t := &model.AssessmentTemplate{
		Title:                  req.Title,
		Description:            req.Description,
		TimeLimitMinutes:       req.TimeLimitMinutes,
		PassingPercentage:      req.PassingPercentage,
		RandomizeQuestions:     req.RandomizeQuestions,
		RandomizeOptions:       req.RandomizeOptions,
		ShowResultsImmediately: true,
		AllowRetakes:           true,
		MaxAttempts:            req.MaxAttempts,
		IsActive:               true,
		IsPublic:               req.IsPublic,
		CreatorID:              creatorID,
	}
	if req.ShowResultsImmediately != nil {
		t.ShowResultsImmediately = *req.ShowResultsImmediately
	}
	if req.AllowRetakes != nil {
		t.AllowRetakes = *req.AllowRetakes
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if err := s.Repo.Create(t); err != nil {
		return nil, err
	}

	if err := s.saveLinks(t.ID, req.QuestionIDs); err != nil {
		if delErr := s.Repo.Delete(t.ID); delErr != nil {
			logger.Log.Error("failed to clean up template after link failure",
				zap.Uint("template_id", t.ID), zap.Error(delErr))
		}
		return nil, err
	}
	return t, nil
}

// verifyQuestionIDs 模板只接受题库中真实存在的题目
func (s *TemplateService) verifyQuestionIDs(ids []uint) error {
	qs, err := s.Questions.FetchQuestions(ids)
	if err != nil {
		return err
	}
	if len(qs) != len(ids) {
		return util.ErrQuestionNotFound
	}
	return nil
}

func (s *TemplateService) saveLinks(templateID uint, questionIDs []uint) error {
	links := make([]model.TemplateQuestion, len(questionIDs))
	for i, qid := range questionIDs {
		links[i] = model.TemplateQuestion{
			TemplateID: templateID,
			QuestionID: qid,
			OrderIndex: i,
		}
	}
	return s.Repo.CreateLinks(links)
}

func (s *TemplateService) GetTemplate(id uint) (*model.AssessmentTemplate, error) {
	t, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTemplateNotFound
		}
		return nil, err
	}
	links, err := s.Repo.ListLinks(id)
	if err != nil {
		return nil, err
	}
	t.Questions = links
	return t, nil
}

func (s *TemplateService) ListTemplates(page, limit int, onlyPublic bool) ([]model.AssessmentTemplate, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Repo.List(page, limit, onlyPublic)
}

func (s *TemplateService) UpdateTemplate(id uint, req TemplateRequest) (*model.AssessmentTemplate, error) {
	t, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTemplateNotFound
		}
		return nil, err
	}

	if err := s.verifyQuestionIDs(req.QuestionIDs); err != nil {
		return nil, err
	}

	t.Title = req.Title
	t.Description = req.Description
	t.TimeLimitMinutes = req.TimeLimitMinutes
	t.PassingPercentage = req.PassingPercentage
	t.RandomizeQuestions = req.RandomizeQuestions
	t.RandomizeOptions = req.RandomizeOptions
	t.MaxAttempts = req.MaxAttempts
	t.IsPublic = req.IsPublic
	if req.ShowResultsImmediately != nil {
		t.ShowResultsImmediately = *req.ShowResultsImmediately
	}
	if req.AllowRetakes != nil {
		t.AllowRetakes = *req.AllowRetakes
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if err := s.Repo.Update(t); err != nil {
		return nil, err
	}

	// 关联整体替换，进行中的会话靠固化的 question_order 不受影响
	if err := s.Repo.DeleteLinksByTemplate(t.ID); err != nil {
		return nil, err
	}
	if err := s.saveLinks(t.ID, req.QuestionIDs); err != nil {
		return nil, err
	}

	s.Questions.InvalidateTemplateCache(t.ID)
	return t, nil
}

func (s *TemplateService) DeleteTemplate(id uint) error {
	if err := s.Repo.DeleteLinksByTemplate(id); err != nil {
		return err
	}
	if err := s.Repo.Delete(id); err != nil {
		return err
	}
	s.Questions.InvalidateTemplateCache(id)
	return nil
}
