package service

import (
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// 结果查询：只对已完成的会话开放，且受模板 show_results_immediately 开关控制。

type ResultSummary struct {
	SessionID       string     `json:"sessionId"`
	TemplateID      uint       `json:"templateId"`
	TemplateTitle   string     `json:"templateTitle"`
	AttemptNumber   int        `json:"attemptNumber"`
	CompletedAt     *time.Time `json:"completedAt"`
	TotalQuestions  int        `json:"totalQuestions"`
	CorrectAnswers  int        `json:"correctAnswers"`
	TotalScore      int        `json:"totalScore"`
	PercentageScore int        `json:"percentageScore"`
	Passed          bool       `json:"passed"`
}

// DifficultyBreakdown 按难度统计的答题表现
type DifficultyBreakdown struct {
	Total      int `json:"total"`
	Correct    int `json:"correct"`
	Percentage int `json:"percentage"`
}

type QuestionResult struct {
	QuestionID       uint   `json:"questionId"`
	Content          string `json:"content"`
	QuestionType     string `json:"questionType"`
	Difficulty       string `json:"difficulty"`
	Answered         bool   `json:"answered"`
	SelectedOptionID *uint  `json:"selectedOptionId,omitempty"`
	TextAnswer       string `json:"textAnswer,omitempty"`
	IsCorrect        bool   `json:"isCorrect"`
	PointsEarned     int    `json:"pointsEarned"`
	Points           int    `json:"points"`
	Explanation      string `json:"explanation,omitempty"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

type DetailedResult struct {
	Summary      ResultSummary                  `json:"summary"`
	Questions    []QuestionResult               `json:"questions"`
	ByDifficulty map[string]DifficultyBreakdown `json:"byDifficulty"`
}

// resolveCompletedSession 结果查询共用的准入检查
func (s *SessionService) resolveCompletedSession(sessionID string, userID uint) (*model.AssessmentSession, *model.AssessmentTemplate, error) {
	session, err := s.Sessions.FindByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrSessionNotFound
		}
		return nil, nil, err
	}
	if session.UserID != userID {
		return nil, nil, util.ErrSessionNotFound
	}
	if session.Status != model.SessionCompleted {
		return nil, nil, util.ErrSessionNotCompleted
	}

	template, err := s.Templates.FindByID(session.TemplateID)
	if err != nil {
		return nil, nil, err
	}
	if !template.ShowResultsImmediately {
		return nil, nil, util.ErrResultsHidden
	}
	return session, template, nil
}

func (s *SessionService) GetResults(sessionID string, userID uint) (*ResultSummary, error) {
	session, template, err := s.resolveCompletedSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	responses, err := s.Sessions.ListResponses(session.ID)
	if err != nil {
		return nil, err
	}
	correct := 0
	for _, r := range responses {
		if r.IsCorrect {
			correct++
		}
	}

	return &ResultSummary{
		SessionID:       session.ID,
		TemplateID:      template.ID,
		TemplateTitle:   template.Title,
		AttemptNumber:   session.AttemptNumber,
		CompletedAt:     session.CompletedAt,
		TotalQuestions:  len(session.OrderedQuestionIDs()),
		CorrectAnswers:  correct,
		TotalScore:      session.TotalScore,
		PercentageScore: session.PercentageScore,
		Passed:          session.Passed,
	}, nil
}

// GetDetailedResults 逐题回看 + 按难度汇总
func (s *SessionService) GetDetailedResults(sessionID string, userID uint) (*DetailedResult, error) {
	session, template, err := s.resolveCompletedSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	ids := session.OrderedQuestionIDs()
	questions, err := s.Questions.FetchTemplateQuestions(session.TemplateID, ids)
	if err != nil {
		return nil, err
	}

	responses, err := s.Sessions.ListResponses(session.ID)
	if err != nil {
		return nil, err
	}
	respByQuestion := make(map[uint]*model.SessionResponse, len(responses))
	for i := range responses {
		respByQuestion[responses[i].QuestionID] = &responses[i]
	}

	results := make([]QuestionResult, 0, len(questions))
	correct := 0
	for i := range questions {
		q := &questions[i]
		qr := QuestionResult{
			QuestionID:   q.ID,
			Content:      q.Content,
			QuestionType: q.QuestionType,
			Difficulty:   q.Difficulty,
			Points:       q.EffectivePoints(),
			Explanation:  q.Explanation,
		}
		if resp, ok := respByQuestion[q.ID]; ok {
			qr.Answered = true
			qr.SelectedOptionID = resp.SelectedOptionID
			qr.TextAnswer = resp.TextAnswer
			qr.IsCorrect = resp.IsCorrect
			qr.PointsEarned = resp.PointsEarned
			qr.TimeSpentSeconds = resp.TimeSpentSeconds
			if resp.IsCorrect {
				correct++
			}
		}
		results = append(results, qr)
	}

	summary := ResultSummary{
		SessionID:       session.ID,
		TemplateID:      template.ID,
		TemplateTitle:   template.Title,
		AttemptNumber:   session.AttemptNumber,
		CompletedAt:     session.CompletedAt,
		TotalQuestions:  len(ids),
		CorrectAnswers:  correct,
		TotalScore:      session.TotalScore,
		PercentageScore: session.PercentageScore,
		Passed:          session.Passed,
	}

	return &DetailedResult{
		Summary:      summary,
		Questions:    results,
		ByDifficulty: rollupByDifficulty(results),
	}, nil
}

// rollupByDifficulty 只统计 easy/medium/hard 三档，其他难度归入 medium
func rollupByDifficulty(results []QuestionResult) map[string]DifficultyBreakdown {
	rollup := map[string]DifficultyBreakdown{
		"easy":   {},
		"medium": {},
		"hard":   {},
	}
	for _, r := range results {
		difficulty := r.Difficulty
		if _, ok := rollup[difficulty]; !ok {
			difficulty = "medium"
		}
		entry := rollup[difficulty]
		entry.Total++
		if r.IsCorrect {
			entry.Correct++
		}
		rollup[difficulty] = entry
	}
	for k, entry := range rollup {
		entry.Percentage = computePercentage(entry.Correct, entry.Total)
		rollup[k] = entry
	}
	return rollup
}
