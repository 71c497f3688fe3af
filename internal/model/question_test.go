package model

import (
	"encoding/json"
	"testing"
)

func TestQuestionKind(t *testing.T) {
	tests := []struct {
		questionType string
		wantKind     QuestionKind
		wantOK       bool
	}{
		{QuestionTypeMCQ, KindChoice, true},
		{QuestionTypeImageMCQ, KindChoice, true},
		{QuestionTypeText, KindText, true},
		{QuestionTypeImageText, KindText, true},
		{QuestionTypeShortText, KindText, true},
		{QuestionTypeFillBlank, KindText, true},
		{"essay", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		q := Question{QuestionType: tt.questionType}
		kind, ok := q.Kind()
		if kind != tt.wantKind || ok != tt.wantOK {
			t.Errorf("Kind(%q) = (%q, %v), want (%q, %v)", tt.questionType, kind, ok, tt.wantKind, tt.wantOK)
		}
	}
}

func TestEffectivePoints(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{5, 5},
		{1, 1},
		{0, 1},
		{-3, 1},
	}

	for _, tt := range tests {
		q := Question{Points: tt.points}
		if got := q.EffectivePoints(); got != tt.want {
			t.Errorf("EffectivePoints() with %d = %d, want %d", tt.points, got, tt.want)
		}
	}
}

func TestTextAnswerSpecLists(t *testing.T) {
	raw, _ := json.Marshal([]string{"a", "b"})
	spec := TextAnswerSpec{
		AlternateAnswers: raw,
		Keywords:         json.RawMessage(`not json`),
	}

	alts := spec.AlternateList()
	if len(alts) != 2 || alts[0] != "a" || alts[1] != "b" {
		t.Errorf("AlternateList() = %v", alts)
	}

	// 解析失败按空列表处理，不报错
	if kws := spec.KeywordList(); kws != nil {
		t.Errorf("KeywordList() on malformed JSON = %v, want nil", kws)
	}

	empty := TextAnswerSpec{}
	if alts := empty.AlternateList(); alts != nil {
		t.Errorf("AlternateList() on empty = %v, want nil", alts)
	}
}
