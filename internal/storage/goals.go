package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"wishbudget/internal/core"
)

const goalColumns = `user_id, type, year, name, limit_cents, recipient_id, list_slug, created_at, updated_at`

// GetGoalLimit returns the stored limit of key, or nil when no goal or no
// limit is stored.
func (r *SQLiteRepository) GetGoalLimit(ctx context.Context, key core.GoalKey) (*core.Money, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var limit sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT limit_cents FROM budget_goals WHERE user_id = ? AND type = ? AND year = ? AND name = ?`,
		key.UserID, string(key.Type), key.Year, key.Name).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal limit: %w", err)
	}
	return nullMoney(limit), nil
}

// SetGoalLimit stores or clears the limit of key. Automatic goals are
// created on demand; custom goals must exist first because they carry a
// scope.
func (r *SQLiteRepository) SetGoalLimit(ctx context.Context, key core.GoalKey, limit *core.Money) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if limit != nil && limit.Cents < 0 {
		return core.ErrNegativeLimit
	}

	now := r.timestamp()
	if key.Type == core.BudgetCustom {
		res, err := r.db.ExecContext(ctx,
			`UPDATE budget_goals SET limit_cents = ?, updated_at = ? WHERE user_id = ? AND type = ? AND year = ? AND name = ?`,
			moneyArg(limit), now, key.UserID, string(key.Type), key.Year, key.Name)
		if err != nil {
			return fmt.Errorf("set goal limit: %w", err)
		}
		return expectOneRow(res, "set custom goal limit")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_goals (user_id, type, year, name, limit_cents, recipient_id, list_slug, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, '', '', ?, ?)
		ON CONFLICT (user_id, type, year, name) DO UPDATE SET
			limit_cents = excluded.limit_cents,
			updated_at = excluded.updated_at`,
		key.UserID, string(key.Type), key.Year, moneyArg(limit), now, now)
	if err != nil {
		return fmt.Errorf("set goal limit: %w", err)
	}

	slog.InfoContext(ctx, "Budget limit saved",
		"user_id", key.UserID,
		"type", key.Type,
		"year", key.Year,
		"limit_cents", moneyArg(limit))
	return nil
}

// SaveGoal creates or replaces a goal with its scope and limit.
func (r *SQLiteRepository) SaveGoal(ctx context.Context, g core.BudgetGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	now := r.timestamp()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, type, year, name) DO UPDATE SET
			limit_cents = excluded.limit_cents,
			recipient_id = excluded.recipient_id,
			list_slug = excluded.list_slug,
			updated_at = excluded.updated_at`,
		g.Key.UserID, string(g.Key.Type), g.Key.Year, g.Key.Name, moneyArg(g.Limit),
		g.RecipientID, g.ListSlug, now, now)
	if err != nil {
		return fmt.Errorf("save goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, key core.GoalKey) (core.BudgetGoal, error) {
	if err := key.Validate(); err != nil {
		return core.BudgetGoal{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM budget_goals WHERE user_id = ? AND type = ? AND year = ? AND name = ?`,
		key.UserID, string(key.Type), key.Year, key.Name)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetGoal{}, fmt.Errorf("goal %s/%d/%s: %w", key.Type, key.Year, key.Name, ErrNotFound)
	}
	if err != nil {
		return core.BudgetGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// ListGoals returns the goals stored by userID for year.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string, year int) ([]core.BudgetGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM budget_goals WHERE user_id = ? AND year = ? ORDER BY type, name`,
		userID, year)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var goals []core.BudgetGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

// DeleteGoal removes a goal and the alerts raised for it.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, key core.GoalKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete goal: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM budget_goals WHERE user_id = ? AND type = ? AND year = ? AND name = ?`,
		key.UserID, string(key.Type), key.Year, key.Name)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if err := expectOneRow(res, "delete goal"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM budget_alerts WHERE user_id = ? AND type = ? AND year = ? AND name = ?`,
		key.UserID, string(key.Type), key.Year, key.Name); err != nil {
		return fmt.Errorf("delete goal alerts: %w", err)
	}
	return tx.Commit()
}

// RecordAlert remembers that key reached status. It reports false when the
// alert was already recorded.
func (r *SQLiteRepository) RecordAlert(ctx context.Context, key core.GoalKey, status core.BudgetStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO budget_alerts (user_id, type, year, name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key.UserID, string(key.Type), key.Year, key.Name, string(status), r.timestamp())
	if err != nil {
		return false, fmt.Errorf("record alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record alert: %w", err)
	}
	return n > 0, nil
}

// ClearAlerts forgets the alerts of key so they can fire again.
func (r *SQLiteRepository) ClearAlerts(ctx context.Context, key core.GoalKey) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM budget_alerts WHERE user_id = ? AND type = ? AND year = ? AND name = ?`,
		key.UserID, string(key.Type), key.Year, key.Name)
	if err != nil {
		return fmt.Errorf("clear alerts: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (core.BudgetGoal, error) {
	var (
		g                    core.BudgetGoal
		typ                  string
		limit                sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&g.Key.UserID, &typ, &g.Key.Year, &g.Key.Name, &limit,
		&g.RecipientID, &g.ListSlug, &createdAt, &updatedAt); err != nil {
		return core.BudgetGoal{}, err
	}
	g.Key.Type = core.BudgetType(typ)
	g.Limit = nullMoney(limit)
	g.CreatedAt = parseTimestamp(createdAt)
	g.UpdatedAt = parseTimestamp(updatedAt)
	return g, nil
}
