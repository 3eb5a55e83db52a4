package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"anonpair/backend/internal/api/handler"
	"anonpair/backend/internal/config"
	"anonpair/backend/internal/events"
	"anonpair/backend/internal/matchmaker"
	"anonpair/backend/internal/state"
	"anonpair/backend/internal/storage"
	"anonpair/backend/internal/tasks"
	"anonpair/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("postgres connection failed")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logrus.WithError(err).Fatal("redis connection failed")
	}

	return db, rdb
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.Info("starting anonpair backend")

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("configuration invalid")
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)
	if err := s.AutoMigrate(); err != nil {
		logrus.WithError(err).Fatal("migrations failed")
	}
	logrus.Info("database ready, migrations complete")

	states := state.NewStore(rdb)

	engine := matchmaker.NewEngine(s, states, nil)
	engine.Interval = cfg.MatchInterval
	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL)
		if err != nil {
			logrus.WithError(err).Fatal("amqp connection failed")
		}
		defer publisher.Close()
		engine.Events = publisher
	}

	jobs := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer jobs.Close()

	bot, err := telegram.NewBotService(cfg, s, engine, states, jobs)
	if err != nil {
		logrus.WithError(err).Fatal("telegram bot setup failed")
	}
	engine.Notifier = bot

	// recovery must finish before the scan loop or any bot traffic starts
	if err := engine.Recover(); err != nil {
		logrus.WithError(err).Fatal("recovery failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go engine.Run(ctx)
	go bot.Run(ctx)

	// background workers: maintenance and broadcast fan-out
	taskHandler := tasks.NewHandler(s, bot)
	worker := tasks.NewServer(cfg.RedisAddr, cfg.RedisDB)
	go func() {
		if err := worker.Run(taskHandler.Mux()); err != nil {
			logrus.WithError(err).Fatal("task worker failed")
		}
	}()
	scheduler, err := tasks.NewScheduler(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logrus.WithError(err).Fatal("scheduler setup failed")
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logrus.WithError(err).Fatal("scheduler failed")
		}
	}()

	r := gin.Default()
	h := handler.NewHandler(cfg, s, engine, jobs)
	h.Register(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("http server failed")
		}
	}()
	logrus.WithField("addr", cfg.HTTPAddr).Info("admin api listening")

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("http shutdown failed")
	}
	worker.Shutdown()
	scheduler.Shutdown()
}
