package service

import (
	"fmt"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"testing"
)

func questionIDsOf(qs []model.Question) []uint {
	ids := make([]uint, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

func TestFetchTemplateQuestionsChecksRequestedIDs(t *testing.T) {
	db := newTestDB(t)
	_, rdb := newTestRedis(t)
	repo := repository.NewQuestionRepository(db)
	svc := NewQuestionService(repo, testConfig(), rdb)

	q1, _ := seedChoiceQuestion(t, repo, "q1")
	q2, _ := seedChoiceQuestion(t, repo, "q2")
	q3, _ := seedChoiceQuestion(t, repo, "q3")
	q4, _ := seedChoiceQuestion(t, repo, "q4")

	const templateID = 7

	// 旧会话按固化顺序读取，预热缓存
	warm, err := svc.FetchTemplateQuestions(templateID, []uint{q1.ID, q2.ID})
	if err != nil {
		t.Fatalf("warm fetch: %v", err)
	}
	if got := questionIDsOf(warm); len(got) != 2 || got[0] != q1.ID || got[1] != q2.ID {
		t.Fatalf("warm fetch ids = %v", got)
	}

	// 模板已换题：ID列表不同的请求不能吃到旧缓存
	got, err := svc.FetchTemplateQuestions(templateID, []uint{q3.ID, q4.ID})
	if err != nil {
		t.Fatalf("fetch after swap: %v", err)
	}
	if ids := questionIDsOf(got); len(ids) != 2 || ids[0] != q3.ID || ids[1] != q4.ID {
		t.Errorf("fetch after swap ids = %v, want [%d %d]", ids, q3.ID, q4.ID)
	}

	// 刷新后的缓存再次命中仍是新题目集
	again, err := svc.FetchTemplateQuestions(templateID, []uint{q3.ID, q4.ID})
	if err != nil {
		t.Fatalf("repeat fetch: %v", err)
	}
	if ids := questionIDsOf(again); len(ids) != 2 || ids[0] != q3.ID || ids[1] != q4.ID {
		t.Errorf("repeat fetch ids = %v, want [%d %d]", ids, q3.ID, q4.ID)
	}
}

func TestQuestionWritesInvalidateTemplateCache(t *testing.T) {
	db := newTestDB(t)
	mr, rdb := newTestRedis(t)
	qRepo := repository.NewQuestionRepository(db)
	tRepo := repository.NewTemplateRepository(db)
	svc := NewQuestionService(qRepo, testConfig(), rdb)

	q, _ := seedChoiceQuestion(t, qRepo, "cached")
	tpl := model.AssessmentTemplate{Title: "linked", IsActive: true}
	if err := tRepo.Create(&tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if err := tRepo.CreateLinks([]model.TemplateQuestion{{TemplateID: tpl.ID, QuestionID: q.ID}}); err != nil {
		t.Fatalf("create links: %v", err)
	}

	key := fmt.Sprintf("assessment:template:%d:questions", tpl.ID)
	warmCache := func() {
		t.Helper()
		if _, err := svc.FetchTemplateQuestions(tpl.ID, []uint{q.ID}); err != nil {
			t.Fatalf("warm cache: %v", err)
		}
		if !mr.Exists(key) {
			t.Fatalf("cache key %s not set after fetch", key)
		}
	}

	warmCache()
	_, err := svc.UpdateQuestion(q.ID, QuestionRequest{
		QuestionType: model.QuestionTypeMCQ,
		Content:      "updated",
		Options: []QuestionOptionRequest{
			{OptionText: "A", IsCorrect: true},
			{OptionText: "B"},
		},
	})
	if err != nil {
		t.Fatalf("update question: %v", err)
	}
	if mr.Exists(key) {
		t.Error("template cache survived a question update")
	}

	warmCache()
	if err := svc.DeleteQuestion(q.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if mr.Exists(key) {
		t.Error("template cache survived a question delete")
	}
}
