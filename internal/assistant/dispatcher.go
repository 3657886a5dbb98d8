package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/logging"
)

// Request is one user message.
type Request struct {
	Message   string
	SessionID string
}

// Dispatcher routes messages to tools and renders the result as text.
type Dispatcher struct {
	classifier IntentClassifier
	registry   *Registry
	metrics    *instrumentation.Metrics
	audit      *instrumentation.AuditLogger
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records tool invocations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithAuditLogger logs every tool invocation to al.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(d *Dispatcher) { d.audit = al }
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher returns a Dispatcher using classifier to pick tools from registry.
func NewDispatcher(classifier IntentClassifier, registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		classifier: classifier,
		registry:   registry,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.WithOperation(d.logger, "dispatch")
	return d
}

// Registry returns the dispatcher's tools.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Handle answers a user message. It always returns a reply; failures of any
// kind, panics included, become MsgApology.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling message",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
				logging.SessionID(req.SessionID))
			reply = MsgApology
		}
	}()

	intent, err := d.classifier.Classify(ctx, req.Message)
	if err != nil {
		d.logger.Error("intent classification failed", logging.Err(err), logging.SessionID(req.SessionID))
		return MsgApology
	}

	tool, ok := d.registry.ForIntent(intent)
	if !ok {
		d.logger.Debug("no tool for message", logging.Intent(string(intent)), logging.SessionID(req.SessionID))
		return MsgHelp
	}

	return d.run(ctx, tool, intent, req).Text
}

// RunTool runs the named tool directly, without classification.
func (d *Dispatcher) RunTool(ctx context.Context, name string, req Request) (Reply, error) {
	tool, ok := d.registry.Lookup(name)
	if !ok {
		return Reply{}, fmt.Errorf("unknown tool %q", name)
	}
	return d.run(ctx, tool, "", req), nil
}

// run invokes tool with tracing, metrics and audit logging.
func (d *Dispatcher) run(ctx context.Context, tool Tool, intent Intent, req Request) (reply Reply) {
	ctx, span := instrumentation.StartToolSpan(ctx, tool.Name(),
		instrumentation.NewSpanAttributeBuilder().WithIntent(string(intent)).Build()...)
	defer span.End()

	invocation := instrumentation.NewToolInvocation(tool.Name()).
		WithIntent(string(intent)).
		WithSession(req.SessionID, req.Message).
		WithSpanContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked",
				logging.Tool(tool.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			reply = Reply{Text: MsgApology, Outcome: instrumentation.OutcomeError, Err: fmt.Errorf("tool %s panicked: %v", tool.Name(), r)}
		}

		success := reply.Outcome != instrumentation.OutcomeError
		invocation.WithResult(string(reply.Stage), reply.Outcome).Complete(success, reply.Err)
		if success {
			instrumentation.SetSpanSuccess(span)
		} else {
			instrumentation.SetSpanError(span, reply.Err)
		}

		d.metrics.RecordToolInvocation(ctx, tool.Name(), invocation.Status(), invocation.Duration)
		d.audit.LogToolInvocation(invocation)
	}()

	return tool.Run(ctx, req.Message)
}
