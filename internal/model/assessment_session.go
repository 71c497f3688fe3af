package model

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionExpired    SessionStatus = "expired"
)

// AssessmentSession 一次学生对模板的限时作答
// swagger:model AssessmentSession
type AssessmentSession struct {
	UUIDBase
	SessionToken     string          `gorm:"size:36;uniqueIndex;not null" json:"-"` // 能力型句柄，只在创建响应中返回
	UserID           uint            `gorm:"index:idx_session_user_template;type:bigint unsigned" json:"userId"`
	TemplateID       uint            `gorm:"index:idx_session_user_template;type:bigint unsigned" json:"templateId"`
	AttemptNumber    int             `gorm:"default:1" json:"attemptNumber"`
	Status           SessionStatus   `gorm:"size:20;default:'in_progress';index" json:"status"`
	StartedAt        time.Time       `json:"startedAt"`
	ExpiresAt        time.Time       `json:"expiresAt"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	TotalScore       int             `gorm:"default:0" json:"totalScore"`
	PercentageScore  int             `gorm:"default:0" json:"percentageScore"`
	Passed           bool            `gorm:"default:false" json:"passed"`
	QuestionOrder    json.RawMessage `gorm:"type:json" json:"-"` // 开考时固化的出题顺序（题目ID数组）
	Metadata         json.RawMessage `gorm:"type:json" json:"metadata,omitempty"`
}

func (AssessmentSession) TableName() string {
	return "assessment_sessions"
}

// OrderedQuestionIDs 读取固化的出题顺序
func (s *AssessmentSession) OrderedQuestionIDs() []uint {
	if len(s.QuestionOrder) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(s.QuestionOrder, &ids); err != nil {
		return nil
	}
	return ids
}

// SessionMetadata 暂停/恢复只做元数据标注，不影响计时
type SessionMetadata struct {
	PausedAt   *time.Time `json:"pausedAt,omitempty"`
	ResumedAt  *time.Time `json:"resumedAt,omitempty"`
	PauseCount int        `json:"pauseCount"`
}

// SessionResponse 每题一行，创建后不再修改
type SessionResponse struct {
	UUIDBase
	SessionID        string    `gorm:"size:36;index:idx_response_session_question,unique;not null" json:"sessionId"`
	QuestionID       uint      `gorm:"index:idx_response_session_question,unique;type:bigint unsigned" json:"questionId"`
	SelectedOptionID *uint     `gorm:"type:bigint unsigned" json:"selectedOptionId,omitempty"`
	TextAnswer       string    `gorm:"type:text" json:"textAnswer,omitempty"`
	IsCorrect        bool      `gorm:"default:false" json:"isCorrect"`
	PointsEarned     int       `gorm:"default:0" json:"pointsEarned"`
	TimeSpentSeconds int       `gorm:"default:0" json:"timeSpentSeconds"`
	AnsweredAt       time.Time `json:"answeredAt"`
}

func (SessionResponse) TableName() string {
	return "session_responses"
}
