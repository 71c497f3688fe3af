package service

import (
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/pkg/logger"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 内存sqlite，限制单连接保证库在测试期间存活
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Log = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Question{},
		&model.QuestionOption{},
		&model.TextAnswerSpec{},
		&model.AssessmentTemplate{},
		&model.TemplateQuestion{},
		&model.AssessmentSession{},
		&model.SessionResponse{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func testConfig() *config.Config {
	return &config.Config{
		Assessment: config.AssessmentConfig{
			DefaultPageSize:    50,
			QuestionCacheTTL:   300,
			DefaultTimeLimit:   30,
			DefaultPassingPct:  72,
			HistoryDefaultSize: 10,
		},
	}
}

func seedChoiceQuestion(t *testing.T, repo *repository.QuestionRepository, content string) (model.Question, []model.QuestionOption) {
	t.Helper()
	q := model.Question{QuestionType: model.QuestionTypeMCQ, Content: content, Points: 2}
	if err := repo.Create(&q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	opts := []model.QuestionOption{
		{QuestionID: q.ID, OptionText: "A", IsCorrect: true, OrderIndex: 0},
		{QuestionID: q.ID, OptionText: "B", OrderIndex: 1},
	}
	if err := repo.CreateOptions(opts); err != nil {
		t.Fatalf("create options: %v", err)
	}
	return q, opts
}
