package repository

import (
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
)

type TemplateRepository struct {
	DB *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{DB: db}
}

func (r *TemplateRepository) Create(t *model.AssessmentTemplate) error {
	return r.DB.Create(t).Error
}

func (r *TemplateRepository) FindByID(id uint) (*model.AssessmentTemplate, error) {
	var t model.AssessmentTemplate
	err := r.DB.First(&t, id).Error
	return &t, err
}

func (r *TemplateRepository) List(page, limit int, onlyPublic bool) ([]model.AssessmentTemplate, int64, error) {
	var ts []model.AssessmentTemplate
	var total int64
	query := r.DB.Model(&model.AssessmentTemplate{})
	if onlyPublic {
		query = query.Where("is_active = ? AND is_public = ?", true, true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&ts).Error
	return ts, total, err
}

func (r *TemplateRepository) Update(t *model.AssessmentTemplate) error {
	return r.DB.Save(t).Error
}

func (r *TemplateRepository) Delete(id uint) error {
	return r.DB.Delete(&model.AssessmentTemplate{}, id).Error
}

// Template-question links

func (r *TemplateRepository) CreateLinks(links []model.TemplateQuestion) error {
	if len(links) == 0 {
		return nil
	}
	return r.DB.Create(&links).Error
}

func (r *TemplateRepository) DeleteLinksByTemplate(templateID uint) error {
	return r.DB.Where("template_id = ?", templateID).Delete(&model.TemplateQuestion{}).Error
}

// ListLinks 返回模板的题目关联，按配置顺序排列
func (r *TemplateRepository) ListLinks(templateID uint) ([]model.TemplateQuestion, error) {
	var links []model.TemplateQuestion
	err := r.DB.Where("template_id = ?", templateID).Order("order_index asc").Find(&links).Error
	return links, err
}
