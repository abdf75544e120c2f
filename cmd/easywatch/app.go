package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChamsBouzaiene/easywatch/internal/config"
	"github.com/ChamsBouzaiene/easywatch/internal/engine"
	"github.com/ChamsBouzaiene/easywatch/internal/observability"
	"github.com/ChamsBouzaiene/easywatch/internal/providers"
	"github.com/ChamsBouzaiene/easywatch/internal/session"
	"github.com/ChamsBouzaiene/easywatch/internal/tools"
	"github.com/ChamsBouzaiene/easywatch/internal/youtube"
)

// app is the wired runtime shared by serve and chat.
type app struct {
	cfg   *config.Config
	store session.Store
	orch  *engine.Orchestrator
}

func (a *app) Close() error {
	return a.store.Close()
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := observability.Logger()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("store ready", "backend", cfg.Storage.Backend)

	llm, err := providers.New(ctx, cfg.LLM, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	logger.Info("llm ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	data, err := youtube.NewDataClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	transcripts := youtube.NewTranscriptClient(cfg.YouTube.TranscriptBaseURL, cfg.YouTube.TranscriptToken, cfg.YouTube.Timeout)

	turnCfg := engine.DefaultTurnConfig(cfg.LLM.Model)
	turnCfg.HistoryLimit = cfg.Turn.HistoryLimit
	turnCfg.CallTimeout = cfg.LLM.CallTimeout
	turnCfg.ToolTimeout = cfg.YouTube.Timeout
	turnCfg.Options = engine.ChatOptions{
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Temperature:     cfg.LLM.Temperature,
	}
	turnCfg.Summarizer = engine.SummarizerConfig{
		Threshold:     cfg.Summarize.Threshold,
		ChunkTokens:   cfg.Summarize.ChunkTokens,
		OverlapTokens: cfg.Summarize.OverlapTokens,
	}

	orch, err := engine.NewOrchestrator(llm, tools.NewToolRegistry(data, transcripts), store, turnCfg,
		engine.WithHooks(engine.LoggerHook{FromContext: observability.LoggerFromContext}),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, orch: orch}, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (session.Store, error) {
	switch cfg.Backend {
	case "firestore":
		return session.NewFirestoreStore(ctx, cfg.ProjectID)
	case "sqlite":
		return session.NewSQLiteStore(ctx, cfg.SQLitePath)
	case "memory":
		return session.NewMemoryStore(), nil
	default:
		return nil, errors.New("unknown storage backend: " + cfg.Backend)
	}
}
