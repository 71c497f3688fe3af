package model

import "encoding/json"

// 原始题型标签，评估时统一归一化为 choice / text 两类
const (
	QuestionTypeMCQ       = "mcq"
	QuestionTypeImageMCQ  = "image_mcq"
	QuestionTypeText      = "text"
	QuestionTypeImageText = "image_text"
	QuestionTypeShortText = "short_text"
	QuestionTypeFillBlank = "fill_blank"
)

// QuestionKind 语义题类：选择题 / 文本题
type QuestionKind string

const (
	KindChoice QuestionKind = "choice"
	KindText   QuestionKind = "text"
)

// swagger:model Question
type Question struct {
	BaseModel
	QuestionType     string `gorm:"size:50;not null;index" json:"questionType"` // mcq, image_mcq, text, image_text, short_text, fill_blank
	Content          string `gorm:"type:text;not null" json:"content"`          // 题干
	ImageURL         string `gorm:"size:255" json:"imageUrl,omitempty"`
	Points           int    `gorm:"default:1" json:"points"`
	Difficulty       string `gorm:"size:20;default:'medium';index" json:"difficulty"` // easy, medium, hard
	TimeLimitSeconds int    `gorm:"default:0" json:"timeLimitSeconds"`
	Explanation      string `gorm:"type:text" json:"explanation"` // 答案解析
	IsActive         bool   `gorm:"default:true;index" json:"isActive"`

	Options    []QuestionOption `gorm:"-" json:"options,omitempty"`
	TextAnswer *TextAnswerSpec  `gorm:"-" json:"textAnswer,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// Kind 将原始题型归一化为语义题类；未知题型返回 false
func (q *Question) Kind() (QuestionKind, bool) {
	switch q.QuestionType {
	case QuestionTypeMCQ, QuestionTypeImageMCQ:
		return KindChoice, true
	case QuestionTypeText, QuestionTypeImageText, QuestionTypeShortText, QuestionTypeFillBlank:
		return KindText, true
	}
	return "", false
}

// EffectivePoints 分值兜底：未设置或非正数按 1 分计
func (q *Question) EffectivePoints() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// swagger:model QuestionOption
type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned" json:"questionId"`
	OptionText string `gorm:"type:text;not null" json:"optionText"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect,omitempty"`
	OrderIndex int    `gorm:"default:0" json:"orderIndex"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// TextAnswerSpec 文本题判分规则，每题至多一条
type TextAnswerSpec struct {
	BaseModel
	QuestionID       uint            `gorm:"uniqueIndex;type:bigint unsigned" json:"questionId"`
	CorrectAnswer    string          `gorm:"type:text;not null" json:"correctAnswer"`
	CaseSensitive    bool            `gorm:"default:false" json:"caseSensitive"`
	ExactMatch       bool            `gorm:"default:false" json:"exactMatch"`
	AlternateAnswers json.RawMessage `gorm:"type:json" json:"alternateAnswers,omitempty"` // JSON: []string
	Keywords         json.RawMessage `gorm:"type:json" json:"keywords,omitempty"`         // JSON: []string
}

func (TextAnswerSpec) TableName() string {
	return "text_answer_specs"
}

// AlternateList 解析备选答案列表，解析失败按空处理
func (t *TextAnswerSpec) AlternateList() []string {
	return decodeStringList(t.AlternateAnswers)
}

// KeywordList 解析关键词列表，解析失败按空处理
func (t *TextAnswerSpec) KeywordList() []string {
	return decodeStringList(t.Keywords)
}

func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}
