package repository

import (
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(s *model.AssessmentSession) error {
	return r.DB.Create(s).Error
}

func (r *SessionRepository) Update(s *model.AssessmentSession) error {
	return r.DB.Save(s).Error
}

func (r *SessionRepository) FindByID(id string) (*model.AssessmentSession, error) {
	var s model.AssessmentSession
	err := r.DB.Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *SessionRepository) FindByToken(token string) (*model.AssessmentSession, error) {
	var s model.AssessmentSession
	err := r.DB.Where("session_token = ?", token).First(&s).Error
	return &s, err
}

// FindActiveByUserAndTemplate 查找进行中的会话，每个(学生,模板)同时至多一个
func (r *SessionRepository) FindActiveByUserAndTemplate(userID, templateID uint) (*model.AssessmentSession, error) {
	var s model.AssessmentSession
	err := r.DB.Where("user_id = ? AND template_id = ? AND status = ?",
		userID, templateID, model.SessionInProgress).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// MaxAttemptNumber 学生在该模板下已用的最大尝试序号，无记录时为 0
func (r *SessionRepository) MaxAttemptNumber(userID, templateID uint) (int, error) {
	var maxAttempt int
	err := r.DB.Model(&model.AssessmentSession{}).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&maxAttempt).Error
	return maxAttempt, err
}

func (r *SessionRepository) CountByUserAndTemplate(userID, templateID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.AssessmentSession{}).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		Count(&count).Error
	return count, err
}

func (r *SessionRepository) ListByUser(userID uint, page, limit int, status string, templateID uint) ([]model.AssessmentSession, int64, error) {
	var ss []model.AssessmentSession
	var total int64
	query := r.DB.Model(&model.AssessmentSession{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if templateID > 0 {
		query = query.Where("template_id = ?", templateID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("started_at desc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, total, err
}

// Responses

func (r *SessionRepository) CreateResponse(resp *model.SessionResponse) error {
	return r.DB.Create(resp).Error
}

func (r *SessionRepository) FindResponse(sessionID string, questionID uint) (*model.SessionResponse, error) {
	var resp model.SessionResponse
	err := r.DB.Where("session_id = ? AND question_id = ?", sessionID, questionID).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *SessionRepository) ListResponses(sessionID string) ([]model.SessionResponse, error) {
	var resps []model.SessionResponse
	err := r.DB.Where("session_id = ?", sessionID).Order("answered_at asc").Find(&resps).Error
	return resps, err
}

func (r *SessionRepository) CountResponses(sessionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.SessionResponse{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}
