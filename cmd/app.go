package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/slotbot/internal/assistant"
	"github.com/teemow/slotbot/internal/booking"
	"github.com/teemow/slotbot/internal/calendar"
	"github.com/teemow/slotbot/internal/config"
	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/llm"
)

// newDispatcher wires the calendar, LLM and booking components into an
// assistant.Dispatcher. Without an LLM API key, extraction and intent
// classification run on the deterministic implementations only.
func newDispatcher(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger, logger *slog.Logger) (*assistant.Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cal, err := calendar.NewClient(ctx, cfg.CredentialsFile,
		calendar.WithMetrics(metrics),
		calendar.WithLogger(logger),
		calendar.WithLocation(loc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	svc := booking.NewService(cal, cfg.CalendarID, booking.NewNormalizer(loc, logger),
		booking.WithServiceMetrics(metrics),
		booking.WithServiceLogger(logger),
	)

	var (
		primary    booking.DetailExtractor
		classifier assistant.IntentClassifier = assistant.NewKeywordClassifier(metrics)
	)
	if cfg.UseLLM() {
		client := llm.NewClient(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, llm.WithMetrics(metrics), llm.WithLogger(logger))

		primary = booking.NewLLMStage(client, loc)
		if cfg.IntentClassifier == config.ClassifierLLM {
			classifier = assistant.NewLLMClassifier(client, metrics, logger)
		}
	} else {
		logger.Warn("no LLM API key configured, using deterministic extraction and intent classification")
	}

	pipeline := booking.NewPipeline(primary,
		booking.WithPipelineMetrics(metrics),
		booking.WithPipelineLogger(logger),
	)

	return assistant.NewDispatcher(classifier, assistant.NewRegistry(pipeline, svc),
		assistant.WithMetrics(metrics),
		assistant.WithAuditLogger(audit),
		assistant.WithLogger(logger),
	), nil
}
