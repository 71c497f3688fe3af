package repository

import (
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	return &q, err
}

// FindByIDs 按ID精确取题，不过滤 is_active：已进入模板/会话的题目
// 即使之后被下架也必须能继续解析
func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var qs []model.Question
	err := r.DB.Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

// ListActive 临时组卷用：只取上架题目，按创建时间倒序，限定页大小
func (r *QuestionRepository) ListActive(questionType string, limit int) ([]model.Question, error) {
	var qs []model.Question
	query := r.DB.Model(&model.Question{}).Where("is_active = ?", true)
	if questionType != "" {
		query = query.Where("question_type = ?", questionType)
	}
	err := query.Order("created_at desc").Limit(limit).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) List(page, limit int, questionType string) ([]model.Question, int64, error) {
	var qs []model.Question
	var total int64
	query := r.DB.Model(&model.Question{})
	if questionType != "" {
		query = query.Where("question_type = ?", questionType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}

func (r *QuestionRepository) Update(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

// TemplateIDsReferencing 引用该题目的模板ID列表，题目写操作后用于精确清缓存
func (r *QuestionRepository) TemplateIDsReferencing(questionID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.TemplateQuestion{}).
		Where("question_id = ?", questionID).
		Distinct().
		Pluck("template_id", &ids).Error
	return ids, err
}

// Options

func (r *QuestionRepository) CreateOptions(options []model.QuestionOption) error {
	if len(options) == 0 {
		return nil
	}
	return r.DB.Create(&options).Error
}

func (r *QuestionRepository) DeleteOptionsByQuestion(questionID uint) error {
	return r.DB.Where("question_id = ?", questionID).Delete(&model.QuestionOption{}).Error
}

// ListOptionsByQuestionIDs 批量取选项，避免每题一次往返
func (r *QuestionRepository) ListOptionsByQuestionIDs(questionIDs []uint) ([]model.QuestionOption, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var opts []model.QuestionOption
	err := r.DB.Where("question_id IN ?", questionIDs).Order("order_index asc").Find(&opts).Error
	return opts, err
}

// Text answer specs

func (r *QuestionRepository) CreateTextAnswerSpec(spec *model.TextAnswerSpec) error {
	return r.DB.Create(spec).Error
}

func (r *QuestionRepository) DeleteTextAnswerSpecByQuestion(questionID uint) error {
	return r.DB.Where("question_id = ?", questionID).Delete(&model.TextAnswerSpec{}).Error
}

// ListTextAnswerSpecsByQuestionIDs 批量取判分规则
func (r *QuestionRepository) ListTextAnswerSpecsByQuestionIDs(questionIDs []uint) ([]model.TextAnswerSpec, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var specs []model.TextAnswerSpec
	err := r.DB.Where("question_id IN ?", questionIDs).Find(&specs).Error
	return specs, err
}
