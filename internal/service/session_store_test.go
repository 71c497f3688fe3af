package service

import (
	"encoding/json"
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"testing"
	"time"
)

func newSessionFixture(t *testing.T) (*SessionService, *repository.SessionRepository, model.Question, []model.QuestionOption, model.AssessmentTemplate) {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	qRepo := repository.NewQuestionRepository(db)
	tRepo := repository.NewTemplateRepository(db)
	sRepo := repository.NewSessionRepository(db)
	svc := NewSessionService(sRepo, tRepo, NewQuestionService(qRepo, cfg, nil), cfg)

	q, opts := seedChoiceQuestion(t, qRepo, "2+2")
	tpl := model.AssessmentTemplate{Title: "basics", IsActive: true, IsPublic: true, AllowRetakes: true}
	if err := tRepo.Create(&tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if err := tRepo.CreateLinks([]model.TemplateQuestion{{TemplateID: tpl.ID, QuestionID: q.ID}}); err != nil {
		t.Fatalf("create links: %v", err)
	}
	return svc, sRepo, q, opts, tpl
}

func seedSession(t *testing.T, repo *repository.SessionRepository, token string, userID, templateID uint, questionIDs []uint, expiresAt time.Time) model.AssessmentSession {
	t.Helper()
	order, err := json.Marshal(questionIDs)
	if err != nil {
		t.Fatalf("marshal order: %v", err)
	}
	sess := model.AssessmentSession{
		SessionToken:  token,
		UserID:        userID,
		TemplateID:    templateID,
		AttemptNumber: 1,
		Status:        model.SessionInProgress,
		StartedAt:     time.Now().Add(-time.Minute),
		ExpiresAt:     expiresAt,
		QuestionOrder: order,
	}
	if err := repo.Create(&sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func TestSubmitResponseDuplicateConflict(t *testing.T) {
	svc, sRepo, q, opts, tpl := newSessionFixture(t)
	sess := seedSession(t, sRepo, "tok-dup", 11, tpl.ID, []uint{q.ID}, time.Now().Add(30*time.Minute))

	first, err := svc.SubmitResponse(11, SubmitResponseRequest{
		SessionToken:     "tok-dup",
		QuestionID:       q.ID,
		SelectedOptionID: &opts[0].ID,
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if !first.IsCorrect || first.PointsEarned != 2 {
		t.Errorf("first submit = (%v, %d), want (true, 2)", first.IsCorrect, first.PointsEarned)
	}

	_, err = svc.SubmitResponse(11, SubmitResponseRequest{
		SessionToken:     "tok-dup",
		QuestionID:       q.ID,
		SelectedOptionID: &opts[1].ID,
	})
	if !errors.Is(err, util.ErrQuestionAlreadyAnswered) {
		t.Fatalf("second submit error = %v, want ErrQuestionAlreadyAnswered", err)
	}

	// 先到的作答保留，不被第二次提交覆盖
	count, err := sRepo.CountResponses(sess.ID)
	if err != nil {
		t.Fatalf("count responses: %v", err)
	}
	if count != 1 {
		t.Errorf("response count = %d, want 1", count)
	}
	stored, err := sRepo.FindResponse(sess.ID, q.ID)
	if err != nil {
		t.Fatalf("find response: %v", err)
	}
	if stored.SelectedOptionID == nil || *stored.SelectedOptionID != opts[0].ID || !stored.IsCorrect {
		t.Errorf("stored response changed: %+v", stored)
	}
}

func TestExpiredSessionTransitionsOnce(t *testing.T) {
	svc, sRepo, q, _, tpl := newSessionFixture(t)
	seedSession(t, sRepo, "tok-exp", 11, tpl.ID, []uint{q.ID}, time.Now().Add(-time.Minute))

	// 第一次读取执行状态转换并返回过期错误
	_, err := svc.resolveSession("tok-exp", 11)
	if !errors.Is(err, util.ErrSessionExpired) {
		t.Fatalf("first read error = %v, want ErrSessionExpired", err)
	}
	stored, err := sRepo.FindByToken("tok-exp")
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if stored.Status != model.SessionExpired {
		t.Fatalf("status after first read = %s, want expired", stored.Status)
	}

	// 之后的读取看到的是已过期的终态，不再转换也不再报过期
	again, err := svc.resolveSession("tok-exp", 11)
	if err != nil {
		t.Fatalf("second read error = %v", err)
	}
	if again.Status != model.SessionExpired {
		t.Errorf("status on second read = %s, want expired", again.Status)
	}

	// 过期会话拒绝继续作答
	_, err = svc.SubmitResponse(11, SubmitResponseRequest{
		SessionToken: "tok-exp",
		QuestionID:   q.ID,
		TextAnswer:   "late",
	})
	if !errors.Is(err, util.ErrSessionNotInProgress) {
		t.Errorf("submit after expiry error = %v, want ErrSessionNotInProgress", err)
	}
}
