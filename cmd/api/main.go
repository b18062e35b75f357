package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pactly.app/internal/auth"
	"pactly.app/internal/config"
	"pactly.app/internal/draft"
	"pactly.app/internal/httpapi"
	"pactly.app/internal/intake"
	"pactly.app/internal/obs"
	"pactly.app/internal/provider"
	"pactly.app/internal/store/pg"
	"pactly.app/internal/stream"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("PACTLY_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.AuthSecret == "" {
		log.Fatal("PACTLY_AUTH_SECRET is required")
	}

	// Stores: PostgreSQL when a DSN is set, in-memory otherwise.
	var (
		intakes    intake.Service
		draftStore draft.Store
		authStore  auth.Store
		probe      httpapi.ReadyProbe
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		intakes = pgStore
		draftStore = pgStore
		authStore = auth.NewPGStore(pgStore.DB())
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Println("PACTLY_PG_DSN not set, using in-memory stores")
		intakes = intake.NewInMemory()
		draftStore = draft.NewInMemory()
		authStore = auth.NewMemStore()
	}

	authSvc, err := auth.NewService(authStore, cfg.AuthSecret,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	// Drafting provider: live OpenAI when a key is set, deterministic stub
	// otherwise so the full pipeline still works in development.
	var client provider.Client
	if cfg.OpenAIAPIKey != "" {
		client = provider.NewOpenAI(cfg.OpenAIAPIKey,
			provider.WithModel(cfg.OpenAIModel),
			provider.WithBaseURL(cfg.OpenAIBaseURL),
			provider.WithTimeout(cfg.DraftTimeout),
		)
	} else {
		log.Println("PACTLY_OPENAI_API_KEY not set, using stub provider")
		client = &provider.Stub{}
	}

	events := stream.New()
	drafts := draft.NewService(intakes, draftStore, client, events,
		draft.WithTimeout(cfg.DraftTimeout))

	api := httpapi.New(probe, version, intakes, drafts, authSvc, events,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // SSE connections stay open
		IdleTimeout:       60 * time.Second,
	}

	obs.Event("info", "starting", map[string]any{"service": "pactly-api", "version": version, "addr": srv.Addr})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	obs.Event("info", "shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	obs.Event("info", "stopped", nil)
}
