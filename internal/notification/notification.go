package notification

import (
	"context"
	"log/slog"
)

const (
	// KindAttributionFailure indicates a transaction whose scope (university
	// or OEM) could not be resolved; the event was skipped and needs manual
	// correction.
	KindAttributionFailure = "attribution_failure"
	// KindReconcileFailure indicates a reconciliation that failed after retry.
	KindReconcileFailure = "reconcile_failure"
)

// Message describes an operator notification payload.
type Message struct {
	Kind       string
	SourceKind string
	SourceID   string
	Body       string
}

// Notifier surfaces skipped or failed ledger events to operators.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Warn("operator notification",
		"kind", message.Kind,
		"source_kind", message.SourceKind,
		"source_id", message.SourceID,
		"body", message.Body)
	return nil
}
