package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"voicesurvey-platform/internal/audit"
	"voicesurvey-platform/internal/auth"
	"voicesurvey-platform/internal/campaign"
	"voicesurvey-platform/internal/config"
	"voicesurvey-platform/internal/conversation"
	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/httpapi"
	"voicesurvey-platform/internal/reporting"
	"voicesurvey-platform/internal/store"
	"voicesurvey-platform/internal/telephony"
	"voicesurvey-platform/pkg/logger"
	"voicesurvey-platform/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	repo := store.NewPostgres(db)

	vocab := extract.DefaultVocabulary()
	if cfg.Conversation.IntentsFile != "" {
		vocab, err = extract.LoadVocabularyFile(cfg.Conversation.IntentsFile)
		if err != nil {
			log.Error("intents file load failed", "err", err, "path", cfg.Conversation.IntentsFile)
			os.Exit(1)
		}
	}

	registry := telephony.NewSignalRegistry()
	gateway := telephony.NewHTTPGateway(cfg.Telephony.GatewayURL)
	provider, err := telephony.NewSIPProvider(telephony.SIPProviderOptions{
		Trunk:       gateway,
		Sink:        gateway,
		Registry:    registry,
		TrunkDomain: cfg.Telephony.SIPDomain,
		Log:         log,
	})
	if err != nil {
		log.Error("telephony init failed", "err", err)
		os.Exit(1)
	}

	progress := campaign.NewProgressCache(rdb, 24*time.Hour)
	gate := campaign.NewGate(rdb, cfg.Conversation.MaxConcurrentCampaigns, 2*time.Hour)
	auditor := audit.NewService(audit.NewMemoryRepo())

	runner, err := campaign.NewRunner(campaign.RunnerOptions{
		Provider: provider,
		Store:    repo,
		Session: conversation.Config{
			ClarifyThreshold: cfg.Conversation.ClarifyThreshold,
			Vocabulary:       vocab,
		},
		Progress:      progress,
		Auditor:       auditor,
		MaxConcurrent: cfg.Conversation.MaxConcurrentCalls,
		Log:           log,
	})
	if err != nil {
		log.Error("campaign init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:                   authManager,
		Surveys:                repo,
		Contacts:               repo,
		Calls:                  repo,
		Runner:                 runner,
		Reports:                reporting.NewService(repo),
		Progress:               progress,
		Gate:                   gate,
		DefaultMaxCallDuration: cfg.Conversation.DefaultMaxCallDuration,
	}
	registerRoutes(r, h,
		telephony.StatusWebhookHandler{Registry: registry},
		telephony.TranscriptWebhookHandler{Sink: provider},
		auth.RequireAccessToken(authManager),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
