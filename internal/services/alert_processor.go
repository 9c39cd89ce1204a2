package services

import (
	"context"
	"fmt"
	"log/slog"

	"wishbudget/internal/amqp"
	"wishbudget/internal/core"
)

// AlertStore remembers which budget alerts were already raised.
type AlertStore interface {
	RecordAlert(ctx context.Context, key core.GoalKey, status core.BudgetStatus) (bool, error)
	ClearAlerts(ctx context.Context, key core.GoalKey) error
}

// Alert is raised the first time a budget reaches warning or exceeded.
type Alert struct {
	Key      core.GoalKey
	Status   core.BudgetStatus
	Spent    core.Money
	Limit    core.Money
	Progress int
}

// AlertProcessor recomputes the budgets named by a budget-changed event and
// raises each warning or exceeded status once. A budget back to safe has its
// alerts cleared so they can fire again.
type AlertProcessor struct {
	budgets *BudgetService
	alerts  AlertStore
}

func NewAlertProcessor(budgets *BudgetService, alerts AlertStore) *AlertProcessor {
	return &AlertProcessor{budgets: budgets, alerts: alerts}
}

// Handle processes one budget-changed event.
func (p *AlertProcessor) Handle(ctx context.Context, msg *amqp.BudgetChangedMessage) error {
	_, err := p.Process(ctx, msg.UserID, msg.Year)
	return err
}

// Process evaluates every stored budget of userID for year and returns the
// alerts raised by this call. Budgets without gifts are evaluated too, so
// deleting the last gift of a budget clears its alerts.
func (p *AlertProcessor) Process(ctx context.Context, userID string, year int) ([]Alert, error) {
	budgets, err := p.budgets.StoredBudgets(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("compute budgets: %w", err)
	}

	var raised []Alert
	for _, b := range budgets {
		key := b.Goal.Key
		// An unlimited budget is always safe, so a removed limit rearms too.
		status := core.ComputeBudgetStatus(b.Spent, b.Goal.Limit)
		if status == core.StatusSafe {
			if err := p.alerts.ClearAlerts(ctx, key); err != nil {
				return raised, fmt.Errorf("clear alerts: %w", err)
			}
			continue
		}

		fresh, err := p.alerts.RecordAlert(ctx, key, status)
		if err != nil {
			return raised, fmt.Errorf("record alert: %w", err)
		}
		if !fresh {
			continue
		}

		alert := Alert{
			Key:      key,
			Status:   status,
			Spent:    b.Spent,
			Limit:    *b.Goal.Limit,
			Progress: b.Progress,
		}
		raised = append(raised, alert)
		slog.WarnContext(ctx, "Budget alert",
			"user_id", key.UserID,
			"type", key.Type,
			"name", key.Name,
			"year", key.Year,
			"status", status,
			"spent_cents", b.Spent.Cents,
			"limit_cents", b.Goal.Limit.Cents,
			"progress", b.Progress)
	}
	return raised, nil
}
