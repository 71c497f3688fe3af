package service

import (
	"learnsphere_backend/internal/model"
	"testing"
)

func questionWithType(id uint, questionType string) model.Question {
	q := model.Question{QuestionType: questionType}
	q.ID = id
	return q
}

func TestDropUnknownTypes(t *testing.T) {
	qs := []model.Question{
		questionWithType(1, model.QuestionTypeMCQ),
		questionWithType(2, "essay"),
		questionWithType(3, model.QuestionTypeFillBlank),
		questionWithType(4, ""),
	}

	kept := dropUnknownTypes(qs)

	if len(kept) != 2 {
		t.Fatalf("kept %d questions, want 2", len(kept))
	}
	if kept[0].ID != 1 || kept[1].ID != 3 {
		t.Errorf("kept wrong questions: %d, %d", kept[0].ID, kept[1].ID)
	}
}

func TestReorderByIDs(t *testing.T) {
	qs := []model.Question{
		questionWithType(3, model.QuestionTypeMCQ),
		questionWithType(1, model.QuestionTypeText),
		questionWithType(2, model.QuestionTypeMCQ),
	}

	ordered := reorderByIDs(qs, []uint{2, 9, 3, 1})

	want := []uint{2, 3, 1}
	if len(ordered) != len(want) {
		t.Fatalf("got %d questions, want %d", len(ordered), len(want))
	}
	for i, id := range want {
		if ordered[i].ID != id {
			t.Errorf("position %d: got id %d, want %d", i, ordered[i].ID, id)
		}
	}
}

func TestValidateQuestionRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     QuestionRequest
		wantErr bool
	}{
		{
			"valid choice question",
			QuestionRequest{
				QuestionType: model.QuestionTypeMCQ,
				Options: []QuestionOptionRequest{
					{OptionText: "A", IsCorrect: true},
					{OptionText: "B"},
				},
			},
			false,
		},
		{
			"choice without options",
			QuestionRequest{QuestionType: model.QuestionTypeMCQ},
			true,
		},
		{
			"choice with no correct option",
			QuestionRequest{
				QuestionType: model.QuestionTypeImageMCQ,
				Options: []QuestionOptionRequest{
					{OptionText: "A"},
					{OptionText: "B"},
				},
			},
			true,
		},
		{
			"choice with two correct options",
			QuestionRequest{
				QuestionType: model.QuestionTypeMCQ,
				Options: []QuestionOptionRequest{
					{OptionText: "A", IsCorrect: true},
					{OptionText: "B", IsCorrect: true},
				},
			},
			true,
		},
		{
			"valid text question",
			QuestionRequest{
				QuestionType: model.QuestionTypeShortText,
				TextAnswer:   &TextAnswerSpecRequest{CorrectAnswer: "42"},
			},
			false,
		},
		{
			"text without spec",
			QuestionRequest{QuestionType: model.QuestionTypeText},
			true,
		},
		{
			"unsupported type",
			QuestionRequest{QuestionType: "essay"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQuestionRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateQuestionRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
