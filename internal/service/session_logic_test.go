package service

import (
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"
	"math/rand"
	"testing"
)

func availableTemplate() *model.AssessmentTemplate {
	return &model.AssessmentTemplate{
		IsActive:     true,
		IsPublic:     true,
		AllowRetakes: true,
		MaxAttempts:  3,
	}
}

func TestCanStartAttempt(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*model.AssessmentTemplate)
		hasActive    bool
		attemptsUsed int
		wantErr      error
	}{
		{"fresh start", nil, false, 0, nil},
		{"under the cap", nil, false, 2, nil},
		{
			"inactive template",
			func(tpl *model.AssessmentTemplate) { tpl.IsActive = false },
			false, 0, util.ErrTemplateNotAvailable,
		},
		{
			"private template",
			func(tpl *model.AssessmentTemplate) { tpl.IsPublic = false },
			false, 0, util.ErrTemplateNotAvailable,
		},
		{"active session in flight", nil, true, 0, util.ErrActiveSessionExists},
		{"cap reached", nil, false, 3, util.ErrMaxAttemptsReached},
		{
			"retakes disallowed caps at one",
			func(tpl *model.AssessmentTemplate) { tpl.AllowRetakes = false },
			false, 1, util.ErrMaxAttemptsReached,
		},
		{
			"zero max attempts means unlimited",
			func(tpl *model.AssessmentTemplate) { tpl.MaxAttempts = 0 },
			false, 500, nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := availableTemplate()
			if tt.mutate != nil {
				tt.mutate(tpl)
			}
			err := canStartAttempt(tpl, tt.hasActive, tt.attemptsUsed)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("canStartAttempt() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestComputePercentage(t *testing.T) {
	tests := []struct {
		correct int
		total   int
		want    int
	}{
		{7, 10, 70},
		{6, 10, 60},
		{2, 3, 67},
		{1, 3, 33},
		{0, 5, 0},
		{5, 5, 100},
		{0, 0, 0},
		{3, 0, 0},
	}

	for _, tt := range tests {
		if got := computePercentage(tt.correct, tt.total); got != tt.want {
			t.Errorf("computePercentage(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestShuffleIDs(t *testing.T) {
	ids := []uint{1, 2, 3, 4, 5, 6, 7, 8}
	original := append([]uint{}, ids...)
	rng := rand.New(rand.NewSource(42))

	shuffled := shuffleIDs(ids, rng)

	if len(shuffled) != len(ids) {
		t.Fatalf("shuffled length = %d, want %d", len(shuffled), len(ids))
	}
	for i, v := range ids {
		if v != original[i] {
			t.Fatal("input slice must not be mutated")
		}
	}

	seen := make(map[uint]bool, len(shuffled))
	for _, id := range shuffled {
		seen[id] = true
	}
	for _, id := range original {
		if !seen[id] {
			t.Errorf("id %d missing after shuffle", id)
		}
	}
}

func TestSanitizeQuestionStripsAnswerKey(t *testing.T) {
	q := choiceQuestion(4)
	q.ID = 7
	q.Explanation = "B is correct because..."
	rng := rand.New(rand.NewSource(1))

	sq := sanitizeQuestion(q, false, rng)

	if sq.ID != 7 || sq.Points != 4 {
		t.Errorf("sanitized question kept wrong identity: %+v", sq)
	}
	if len(sq.Options) != len(q.Options) {
		t.Fatalf("option count = %d, want %d", len(sq.Options), len(q.Options))
	}
	for i, o := range sq.Options {
		if o.ID != q.Options[i].ID || o.OptionText != q.Options[i].OptionText {
			t.Errorf("option %d changed without randomization: %+v", i, o)
		}
	}
}

func TestSanitizeQuestionRandomizedKeepsOptionSet(t *testing.T) {
	q := choiceQuestion(1)
	rng := rand.New(rand.NewSource(9))

	sq := sanitizeQuestion(q, true, rng)

	if len(sq.Options) != len(q.Options) {
		t.Fatalf("option count = %d, want %d", len(sq.Options), len(q.Options))
	}
	byID := make(map[uint]string, len(q.Options))
	for _, o := range q.Options {
		byID[o.ID] = o.OptionText
	}
	for _, o := range sq.Options {
		text, ok := byID[o.ID]
		if !ok {
			t.Errorf("option %d not in original set", o.ID)
			continue
		}
		if text != o.OptionText {
			t.Errorf("option %d text changed: %q != %q", o.ID, o.OptionText, text)
		}
	}
}

func TestRollupByDifficulty(t *testing.T) {
	results := []QuestionResult{
		{Difficulty: "easy", IsCorrect: true},
		{Difficulty: "easy", IsCorrect: false},
		{Difficulty: "hard", IsCorrect: true},
		{Difficulty: "medium", IsCorrect: false},
		{Difficulty: "extreme", IsCorrect: true}, // 未知难度归入 medium
	}

	rollup := rollupByDifficulty(results)

	if got := rollup["easy"]; got.Total != 2 || got.Correct != 1 || got.Percentage != 50 {
		t.Errorf("easy = %+v", got)
	}
	if got := rollup["medium"]; got.Total != 2 || got.Correct != 1 || got.Percentage != 50 {
		t.Errorf("medium = %+v", got)
	}
	if got := rollup["hard"]; got.Total != 1 || got.Correct != 1 || got.Percentage != 100 {
		t.Errorf("hard = %+v", got)
	}
	if len(rollup) != 3 {
		t.Errorf("rollup has %d buckets, want 3", len(rollup))
	}
}
