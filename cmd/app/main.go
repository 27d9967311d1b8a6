// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activation-gateway/internal/config"
	"activation-gateway/internal/domain/ports/adapter"
	"activation-gateway/internal/domain/ports/repository"
	aiAdapters "activation-gateway/internal/infra/adapters/ai"
	"activation-gateway/internal/infra/db/memory"
	pg "activation-gateway/internal/infra/db/postgres"
	"activation-gateway/internal/infra/logging"
	"activation-gateway/internal/infra/metrics"
	red "activation-gateway/internal/infra/redis"
	"activation-gateway/internal/infra/sched"
	"activation-gateway/internal/infra/security"
	"activation-gateway/internal/infra/web"
	"activation-gateway/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted codes)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Code store (postgres when configured, in-memory otherwise) ----
	var codeRepo repository.ActivationCodeRepository
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		codeRepo = pg.NewActivationCodeRepo(pool)
		logger.Info().Msg("code store: postgres")
	} else {
		codeRepo = memory.NewActivationCodeRepo()
		logger.Warn().Msg("code store: in-memory (codes are lost on restart)")
	}

	// ---- Redis rate limiter (optional) ----
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis not configured; redemption rate limiting disabled")
	}

	// ---- Credentials ----
	tokenSvc, err := security.NewTokenService(cfg.Security.JWTSecret, cfg.Security.CredentialTTL)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	// ---- AI adapter (OpenAI -> Gemini -> noop in dev) ----
	var ai adapter.AIServiceAdapter
	switch {
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAIAdapter()
		logger.Warn().Msg("AI adapter: noop (dev mode)")
	default:
		log.Fatalf("no AI provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}

	// ---- Use cases ----
	activationUC := usecase.NewActivationUseCase(codeRepo, tokenSvc, cfg.Security.CodeLength, logger, cfg.Runtime.Dev)
	completionUC := usecase.NewCompletionUseCase(ai, cfg.AI.DefaultModel, logger)

	// ---- HTTP server ----
	srv := web.NewServer(activationUC, completionUC, tokenSvc, limiter, web.Options{
		AdminKey:        cfg.Security.AdminKey,
		RedeemPerMinute: cfg.RateLimit.RedeemPerMinute,
		LiveRevocation:  cfg.Security.LiveRevocation,
		RequestTimeout:  cfg.Server.RequestTimeout,
		Dev:             cfg.Runtime.Dev,
	}, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Routes(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Expired-code sweep ----
	worker := sched.NewSweepWorker(cfg.Sweep.Interval, codeRepo, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
