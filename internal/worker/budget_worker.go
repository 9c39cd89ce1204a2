package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wishbudget/internal/amqp"
	"wishbudget/internal/core"
	"wishbudget/internal/services"
)

// AlertHandler recomputes budgets after a change and raises alerts.
type AlertHandler interface {
	Handle(ctx context.Context, msg *amqp.BudgetChangedMessage) error
}

// LedgerQueue collects ledgers to re-export.
type LedgerQueue interface {
	Enqueue(userID string, year int)
}

// BudgetWorker handles budget-changed events from AMQP: it evaluates
// alerts and schedules a ledger export for the affected user and year.
type BudgetWorker struct {
	alerts AlertHandler
	ledger LedgerQueue
}

// NewBudgetWorker builds a worker. ledger may be nil when no ledger backend
// is configured.
func NewBudgetWorker(alerts AlertHandler, ledger LedgerQueue) *BudgetWorker {
	return &BudgetWorker{alerts: alerts, ledger: ledger}
}

var _ AlertHandler = (*services.AlertProcessor)(nil)
var _ LedgerQueue = (*services.LedgerSyncProcessor)(nil)

// HandleBudgetChanged processes a single budget-changed message. An error
// asks the consumer to requeue it, unless the message itself is invalid.
func (w *BudgetWorker) HandleBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error {
	slog.InfoContext(ctx, "Processing budget changed message",
		"user_id", msg.UserID,
		"year", msg.Year,
		"reason", msg.Reason)

	if err := w.alerts.Handle(ctx, msg); err != nil {
		if isPermanent(err) {
			return fmt.Errorf("%w: process alerts: %w", amqp.ErrUnprocessable, err)
		}
		return fmt.Errorf("process alerts: %w", err)
	}

	if w.ledger == nil {
		slog.DebugContext(ctx, "No ledger configured, skipping export",
			"user_id", msg.UserID)
		return nil
	}
	w.ledger.Enqueue(msg.UserID, msg.Year)
	return nil
}

// isPermanent reports errors caused by the message content, which a retry
// would hit again.
func isPermanent(err error) bool {
	return errors.Is(err, core.ErrInvalidYear) || errors.Is(err, core.ErrEmptyUser)
}
