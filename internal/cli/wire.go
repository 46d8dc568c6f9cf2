package cli

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/config"
	"notes-quiz-service/internal/infra/capture"
	"notes-quiz-service/internal/infra/llm"
	"notes-quiz-service/internal/infra/memory"
	pgarchive "notes-quiz-service/internal/infra/postgres"
	redisstore "notes-quiz-service/internal/infra/redis"
)

// buildService wires the generation chain, capture provider and flow registry
// from config. The returned cleanup releases pools and clients.
func buildService(ctx context.Context, cfg config.Config) (*app.QuizService, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var generator app.Generator = llm.NewGenerator(llm.Config{
		APIKey:  cfg.Generator.APIKey,
		BaseURL: cfg.Generator.BaseURL,
		Model:   cfg.Generator.Model,
		Timeout: config.TTLDuration(cfg.Generator.Timeout, 60*time.Second),
	})
	if cfg.Generator.APIKey == "" {
		log.Printf("generator api key not configured; generation requests will fail")
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, pool.Close)
		generator = pgarchive.NewQuizArchive(pool, generator)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, time.Hour)
	if redisClient != nil {
		generator = redisstore.NewGeneratorCache(redisClient, generator, quizTTL)
	} else {
		generator = memory.NewGeneratorCache(generator, quizTTL)
	}

	var flows app.FlowRepository
	if redisClient != nil {
		flows = redisstore.NewFlowStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		flows = memory.NewFlowStore()
	}

	var camera app.CaptureProvider
	if cfg.Capture.Device != "" {
		camera = capture.NewFileCapture(cfg.Capture.Device, config.TTLDuration(cfg.Capture.Timeout, 5*time.Second))
	}

	flowCfg := app.FlowConfig{
		DefaultLanguage: cfg.Generator.DefaultLanguage,
		MaxNotesChars:   cfg.Generator.MaxNotesChars,
		SessionOptions: []app.SessionOption{
			app.WithTickInterval(config.TTLDuration(cfg.Session.Tick, app.DefaultTickInterval)),
		},
	}
	return app.NewQuizService(flows, generator, camera, flowCfg), cleanup, nil
}
