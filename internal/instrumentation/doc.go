// Package instrumentation provides OpenTelemetry instrumentation for slotbot.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: Counter of chat API requests by method, route, and status
//   - http_request_duration_seconds: Histogram of chat API request durations
//
// Assistant:
//   - assistant_tool_invocations_total: Counter of tool invocations by tool and status
//   - assistant_tool_duration_seconds: Histogram of tool execution durations
//   - assistant_intent_classifications_total: Counter of classified intents by classifier
//
// Collaborators:
//   - calendar_api_operations_total / calendar_api_operation_duration_seconds
//   - llm_requests_total / llm_request_duration_seconds
//
// Booking:
//   - booking_extractions_total: Counter of extraction results by stage and status
//   - booking_outcomes_total: Counter of booking attempts by outcome
//
// All Record* methods are safe to call on a nil or disabled *Metrics.
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>), calendar calls
// (calendar.<operation>) and LLM completions (llm.complete).
//
// # Configuration
//
// Config is filled by the config package from these environment variables:
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: slotbot)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_MESSAGE: Audit log records
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordBookingOutcome(ctx, instrumentation.OutcomeBooked)
package instrumentation
