package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/config"
	"github.com/kasapos/backend-kasa/internal/db"
	"github.com/kasapos/backend-kasa/internal/lock"
	"github.com/kasapos/backend-kasa/internal/obs"
	"github.com/kasapos/backend-kasa/internal/settlement"
	"github.com/kasapos/backend-kasa/internal/store/postgres"

	redis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := db.NewPool(initCtx, cfg.DatabaseURL, "kasa-worker")
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "kasa"), nil)

	settlementSvc := &settlement.Service{
		St:            postgres.New(pool),
		Locker:        lock.Locker{R: redisClient},
		LockTTL:       cfg.SettlementLockTTL,
		CompletedOnly: cfg.SettlementCompletedOnly,
		DaysClosed:    obs.DaysClosedTotal,
		Duration:      obs.SettlementDuration,
	}
	worker := &settlement.AutoCloseWorker{
		Svc:    settlementSvc,
		Actor:  common.Actor{Role: common.RoleAdmin},
		Logger: logger,
	}

	asynqOpts := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(settlement.TaskAutoClose, worker.Handle)

	srv := asynq.NewServer(asynqOpts, asynq.Config{
		Concurrency: 2,
		Logger:      asynqLogger{logger: logger},
	})

	scheduler := asynq.NewScheduler(asynqOpts, &asynq.SchedulerOpts{Location: time.UTC})
	task := asynq.NewTask(settlement.TaskAutoClose, nil)
	if _, err := scheduler.Register(cfg.AutoCloseSchedule, task); err != nil {
		logger.Fatal().Err(err).Msg("register autoclose schedule")
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	logger.Info().Str("cron", cfg.AutoCloseSchedule).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}

	<-ctx.Done()
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
