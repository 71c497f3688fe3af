package service

import (
	"learnsphere_backend/internal/model"
	"strings"
)

// EvalResult 单题判分结果
type EvalResult struct {
	IsCorrect    bool `json:"isCorrect"`
	PointsEarned int  `json:"pointsEarned"`
}

// SubmittedAnswer 学生提交的单题答案：选项ID与文本二选一
type SubmittedAnswer struct {
	SelectedOptionID *uint
	TextAnswer       string
}

// EvaluateAnswer 纯函数判分，不做任何存储操作，同样输入必得同样输出。
// 选择题看选项的正确标记，文本题走 精确匹配 -> 包含匹配 -> 关键词多数 三级策略。
func EvaluateAnswer(q *model.Question, answer SubmittedAnswer) EvalResult {
	kind, ok := q.Kind()
	if !ok {
		return EvalResult{}
	}

	switch kind {
	case model.KindChoice:
		return evaluateChoice(q, answer.SelectedOptionID)
	case model.KindText:
		return evaluateText(q, answer.TextAnswer)
	}
	return EvalResult{}
}

// evaluateChoice 选项ID解析不到时按答错处理，不报错
func evaluateChoice(q *model.Question, optionID *uint) EvalResult {
	if optionID == nil {
		return EvalResult{}
	}
	for _, opt := range q.Options {
		if opt.ID == *optionID {
			if opt.IsCorrect {
				return EvalResult{IsCorrect: true, PointsEarned: q.EffectivePoints()}
			}
			return EvalResult{}
		}
	}
	return EvalResult{}
}

func evaluateText(q *model.Question, submitted string) EvalResult {
	spec := q.TextAnswer
	if spec == nil {
		return EvalResult{}
	}

	submitted = strings.TrimSpace(submitted)
	// 空答案永远不得分
	if submitted == "" {
		return EvalResult{}
	}

	if matchText(spec, submitted) {
		return EvalResult{IsCorrect: true, PointsEarned: q.EffectivePoints()}
	}
	return EvalResult{}
}

func matchText(spec *model.TextAnswerSpec, submitted string) bool {
	normalize := func(s string) string {
		if spec.CaseSensitive {
			return s
		}
		return strings.ToLower(s)
	}

	canonical := normalize(strings.TrimSpace(spec.CorrectAnswer))
	answer := normalize(submitted)

	// 精确匹配模式下不再考虑备选答案和关键词
	if spec.ExactMatch {
		return answer == canonical
	}

	// 包含匹配：标准答案或任一备选答案出现在提交内容中
	if canonical != "" && strings.Contains(answer, canonical) {
		return true
	}
	for _, alt := range spec.AlternateList() {
		alt = normalize(strings.TrimSpace(alt))
		if alt != "" && strings.Contains(answer, alt) {
			return true
		}
	}

	// 关键词兜底：命中数达到半数（向上取整）即算对
	keywords := spec.KeywordList()
	if len(keywords) == 0 {
		return false
	}
	matched := 0
	for _, kw := range keywords {
		kw = normalize(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(answer, kw) {
			matched++
		}
	}
	threshold := (len(keywords) + 1) / 2
	return matched >= threshold
}
