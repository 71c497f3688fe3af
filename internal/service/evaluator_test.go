package service

import (
	"encoding/json"
	"learnsphere_backend/internal/model"
	"testing"
)

func uintPtr(v uint) *uint { return &v }

func choiceQuestion(points int) *model.Question {
	q := &model.Question{
		QuestionType: model.QuestionTypeMCQ,
		Points:       points,
	}
	q.Options = []model.QuestionOption{
		{BaseModel: model.BaseModel{ID: 1}, OptionText: "A", IsCorrect: false},
		{BaseModel: model.BaseModel{ID: 2}, OptionText: "B", IsCorrect: true},
		{BaseModel: model.BaseModel{ID: 3}, OptionText: "C", IsCorrect: false},
	}
	return q
}

func textQuestion(spec *model.TextAnswerSpec, points int) *model.Question {
	return &model.Question{
		QuestionType: model.QuestionTypeShortText,
		Points:       points,
		TextAnswer:   spec,
	}
}

func jsonList(t *testing.T, items []string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal list: %v", err)
	}
	return raw
}

func TestEvaluateChoice(t *testing.T) {
	tests := []struct {
		name       string
		optionID   *uint
		wantOK     bool
		wantPoints int
	}{
		{"correct option", uintPtr(2), true, 5},
		{"wrong option", uintPtr(1), false, 0},
		{"unknown option id", uintPtr(99), false, 0},
		{"no option selected", nil, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := choiceQuestion(5)
			got := EvaluateAnswer(q, SubmittedAnswer{SelectedOptionID: tt.optionID})
			if got.IsCorrect != tt.wantOK || got.PointsEarned != tt.wantPoints {
				t.Errorf("got (%v, %d), want (%v, %d)", got.IsCorrect, got.PointsEarned, tt.wantOK, tt.wantPoints)
			}
		})
	}
}

func TestEvaluateChoiceDefaultPoints(t *testing.T) {
	q := choiceQuestion(0)
	got := EvaluateAnswer(q, SubmittedAnswer{SelectedOptionID: uintPtr(2)})
	if !got.IsCorrect || got.PointsEarned != 1 {
		t.Errorf("zero-point question should award 1 point, got (%v, %d)", got.IsCorrect, got.PointsEarned)
	}
}

func TestEvaluateTextExactAndSubstring(t *testing.T) {
	tests := []struct {
		name      string
		spec      model.TextAnswerSpec
		submitted string
		want      bool
	}{
		{
			"exact match case-insensitive by default",
			model.TextAnswerSpec{CorrectAnswer: "DEF"},
			"def",
			true,
		},
		{
			"case sensitive rejects wrong case",
			model.TextAnswerSpec{CorrectAnswer: "DEF", CaseSensitive: true},
			"def",
			false,
		},
		{
			"canonical answer contained in longer submission",
			model.TextAnswerSpec{CorrectAnswer: "pointer"},
			"a pointer stores a memory address",
			true,
		},
		{
			"exact-match mode rejects substring",
			model.TextAnswerSpec{CorrectAnswer: "pointer", ExactMatch: true},
			"a pointer stores a memory address",
			false,
		},
		{
			"exact-match mode accepts trimmed equal answer",
			model.TextAnswerSpec{CorrectAnswer: "pointer", ExactMatch: true},
			"  Pointer  ",
			true,
		},
		{
			"whitespace-only answer never correct",
			model.TextAnswerSpec{CorrectAnswer: "pointer"},
			"   ",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.spec
			q := textQuestion(&spec, 2)
			got := EvaluateAnswer(q, SubmittedAnswer{TextAnswer: tt.submitted})
			if got.IsCorrect != tt.want {
				t.Errorf("IsCorrect = %v, want %v", got.IsCorrect, tt.want)
			}
			if tt.want && got.PointsEarned != 2 {
				t.Errorf("PointsEarned = %d, want 2", got.PointsEarned)
			}
		})
	}
}

func TestEvaluateTextAlternates(t *testing.T) {
	spec := &model.TextAnswerSpec{
		CorrectAnswer:    "standard input",
		AlternateAnswers: jsonList(t, []string{"stdin", "console input"}),
	}
	q := textQuestion(spec, 1)

	if got := EvaluateAnswer(q, SubmittedAnswer{TextAnswer: "read from STDIN"}); !got.IsCorrect {
		t.Error("alternate answer should match")
	}
	if got := EvaluateAnswer(q, SubmittedAnswer{TextAnswer: "read from a file"}); got.IsCorrect {
		t.Error("unrelated answer should not match")
	}
}

func TestEvaluateTextKeywordMajority(t *testing.T) {
	// 3个关键词，阈值为2
	spec := &model.TextAnswerSpec{
		CorrectAnswer: "returns the first rows of the data frame",
		Keywords:      jsonList(t, []string{"head", "first", "rows"}),
	}
	q := textQuestion(spec, 1)

	tests := []struct {
		name      string
		submitted string
		want      bool
	}{
		{"two of three keywords", "shows the first rows", true},
		{"all keywords", "head shows the first rows", true},
		{"one keyword only", "shows the head", false},
		{"no keywords", "sorts the table", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAnswer(q, SubmittedAnswer{TextAnswer: tt.submitted})
			if got.IsCorrect != tt.want {
				t.Errorf("IsCorrect = %v, want %v", got.IsCorrect, tt.want)
			}
		})
	}
}

func TestEvaluateTextMissingSpec(t *testing.T) {
	q := textQuestion(nil, 1)
	if got := EvaluateAnswer(q, SubmittedAnswer{TextAnswer: "anything"}); got.IsCorrect {
		t.Error("question without spec should never score")
	}
}

func TestEvaluateUnknownType(t *testing.T) {
	q := &model.Question{QuestionType: "essay"}
	if got := EvaluateAnswer(q, SubmittedAnswer{TextAnswer: "anything"}); got.IsCorrect || got.PointsEarned != 0 {
		t.Errorf("unknown type should yield zero result, got %+v", got)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	q := choiceQuestion(3)
	answer := SubmittedAnswer{SelectedOptionID: uintPtr(2)}

	first := EvaluateAnswer(q, answer)
	for i := 0; i < 10; i++ {
		if got := EvaluateAnswer(q, answer); got != first {
			t.Fatalf("evaluation not deterministic: %+v != %+v", got, first)
		}
	}
}
