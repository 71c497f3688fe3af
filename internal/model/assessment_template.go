package model

// swagger:model AssessmentTemplate
type AssessmentTemplate struct {
	BaseModel
	Title                  string `gorm:"size:255;not null" json:"title"`
	Description            string `gorm:"type:text" json:"description"`
	TimeLimitMinutes       int    `gorm:"default:0" json:"timeLimitMinutes"`
	PassingPercentage      int    `gorm:"default:0" json:"passingPercentage"`
	RandomizeQuestions     bool   `gorm:"default:false" json:"randomizeQuestions"`
	RandomizeOptions       bool   `gorm:"default:false" json:"randomizeOptions"`
	ShowResultsImmediately bool   `gorm:"default:true" json:"showResultsImmediately"`
	AllowRetakes           bool   `gorm:"default:true" json:"allowRetakes"`
	MaxAttempts            int    `gorm:"default:0" json:"maxAttempts"` // 0 表示不限次数
	IsActive               bool   `gorm:"default:true;index" json:"isActive"`
	IsPublic               bool   `gorm:"default:false;index" json:"isPublic"`
	CreatorID              uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`

	Questions []TemplateQuestion `gorm:"-" json:"questions,omitempty"`
}

func (AssessmentTemplate) TableName() string {
	return "assessment_templates"
}

// AttemptCap 生效的最大尝试次数：禁止重考时固定为 1，0 表示不限
func (t *AssessmentTemplate) AttemptCap() int {
	if !t.AllowRetakes {
		return 1
	}
	return t.MaxAttempts
}

// TemplateQuestion 模板与题目的关联，order_index 决定默认出题顺序
type TemplateQuestion struct {
	BaseModel
	TemplateID uint `gorm:"index:idx_template_question,unique;type:bigint unsigned" json:"templateId"`
	QuestionID uint `gorm:"index:idx_template_question,unique;type:bigint unsigned" json:"questionId"`
	OrderIndex int  `gorm:"default:0" json:"orderIndex"`
}

func (TemplateQuestion) TableName() string {
	return "template_questions"
}
