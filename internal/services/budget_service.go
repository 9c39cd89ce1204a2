package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"wishbudget/internal/amqp"
	"wishbudget/internal/core"
	"wishbudget/internal/sheets"
)

// ErrNoLedger is returned by ExportLedger when no ledger writer is
// configured.
var ErrNoLedger = errors.New("no ledger writer configured")

// GiftStore reads and mutates the two sources of gift records.
type GiftStore interface {
	ListClaimsByClaimant(ctx context.Context, userID string) ([]core.ClaimRow, error)
	ListExternalGifts(ctx context.Context, userID string) ([]core.ExternalGiftRow, error)
	UpdateClaimPaidAmount(ctx context.Context, claimantID, claimID string, paid *core.Money) (core.Date, error)
	CancelClaim(ctx context.Context, claimantID, claimID string) (core.Date, error)
	CreateExternalGift(ctx context.Context, g core.ExternalGiftRow) (string, error)
	DeleteExternalGift(ctx context.Context, userID, id string) (core.Date, error)
}

// GoalStore persists budget goals.
type GoalStore interface {
	GetGoalLimit(ctx context.Context, key core.GoalKey) (*core.Money, error)
	SetGoalLimit(ctx context.Context, key core.GoalKey, limit *core.Money) error
	SaveGoal(ctx context.Context, g core.BudgetGoal) error
	GetGoal(ctx context.Context, key core.GoalKey) (core.BudgetGoal, error)
	ListGoals(ctx context.Context, userID string, year int) ([]core.BudgetGoal, error)
	DeleteGoal(ctx context.Context, key core.GoalKey) error
}

// Publisher announces that the budgets of a user may have changed.
type Publisher interface {
	PublishBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error
}

// Overview is the budget list of one user for one year.
type Overview struct {
	UserID  string
	Year    int
	Budgets []core.BudgetData
	Years   []int
}

// Detail is the drill-down of one budget.
type Detail struct {
	Budget   core.BudgetData
	Summary  core.Summary
	Insights core.Insights
}

// BudgetService recomputes budgets from the stored gifts on every read and
// publishes a budget-changed event after every write.
type BudgetService struct {
	gifts     GiftStore
	goals     GoalStore
	publisher Publisher
	ledger    sheets.LedgerWriter
	now       func() time.Time
}

func NewBudgetService(gifts GiftStore, goals GoalStore, publisher Publisher, ledger sheets.LedgerWriter) *BudgetService {
	return &BudgetService{
		gifts:     gifts,
		goals:     goals,
		publisher: publisher,
		ledger:    ledger,
		now:       time.Now,
	}
}

// LoadGiftRecords fetches both sources of userID concurrently and merges
// them into gift records.
func (s *BudgetService) LoadGiftRecords(ctx context.Context, userID string) ([]core.GiftRecord, error) {
	if userID == "" {
		return nil, core.ErrEmptyUser
	}

	var (
		claims []core.ClaimRow
		gifts  []core.ExternalGiftRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		claims, err = s.gifts.ListClaimsByClaimant(gctx, userID)
		if err != nil {
			return fmt.Errorf("load claims: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		gifts, err = s.gifts.ListExternalGifts(gctx, userID)
		if err != nil {
			return fmt.Errorf("load external gifts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return core.Normalize(claims, gifts), nil
}

// Overview builds the budget cards of userID for year.
func (s *BudgetService) Overview(ctx context.Context, userID string, year int) (Overview, error) {
	if err := validateYear(year); err != nil {
		return Overview{}, err
	}
	records, err := s.LoadGiftRecords(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	goals, err := s.goals.ListGoals(ctx, userID, year)
	if err != nil {
		return Overview{}, fmt.Errorf("list goals: %w", err)
	}

	return Overview{
		UserID:  userID,
		Year:    year,
		Budgets: core.BuildBudgets(userID, records, year, goals),
		Years:   withYear(core.YearsWithGifts(records), year),
	}, nil
}

// StoredBudgets evaluates every persisted goal of userID for year, whether
// or not it still has gifts.
func (s *BudgetService) StoredBudgets(ctx context.Context, userID string, year int) ([]core.BudgetData, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	records, err := s.LoadGiftRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	goals, err := s.goals.ListGoals(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return core.StoredBudgets(records, year, goals), nil
}

// Detail aggregates the budget addressed by key. Automatic budgets exist
// implicitly; custom budgets must have been saved.
func (s *BudgetService) Detail(ctx context.Context, key core.GoalKey) (Detail, error) {
	if err := key.Validate(); err != nil {
		return Detail{}, err
	}
	goal, err := s.resolveGoal(ctx, key)
	if err != nil {
		return Detail{}, err
	}
	records, err := s.LoadGiftRecords(ctx, key.UserID)
	if err != nil {
		return Detail{}, err
	}

	summary := core.Aggregate(records, key.Year, goal.Scope())
	return Detail{
		Budget: core.BudgetData{
			Goal:       goal,
			Spent:      summary.TotalSpent,
			Progress:   core.ComputeProgress(summary.TotalSpent, goal.Limit),
			Threshold:  core.ComputeThreshold(summary.TotalSpent, goal.Limit),
			ItemsCount: summary.ItemsCount,
			Remaining:  core.ComputeRemaining(summary.TotalSpent, goal.Limit),
		},
		Summary:  summary,
		Insights: core.GenerateInsights(summary.RecipientGroups, summary.Stats, summary.TotalSpent, goal.Limit),
	}, nil
}

func (s *BudgetService) resolveGoal(ctx context.Context, key core.GoalKey) (core.BudgetGoal, error) {
	if key.Type == core.BudgetCustom {
		goal, err := s.goals.GetGoal(ctx, key)
		if err != nil {
			return core.BudgetGoal{}, fmt.Errorf("get custom goal: %w", err)
		}
		return goal, nil
	}
	limit, err := s.goals.GetGoalLimit(ctx, key)
	if err != nil {
		return core.BudgetGoal{}, fmt.Errorf("get goal limit: %w", err)
	}
	return core.BudgetGoal{Key: key, Limit: limit}, nil
}

// SetLimit stores or clears (nil) the limit of a budget.
func (s *BudgetService) SetLimit(ctx context.Context, key core.GoalKey, limit *core.Money) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if limit != nil && limit.Cents < 0 {
		return core.ErrNegativeLimit
	}
	if err := s.goals.SetGoalLimit(ctx, key, limit); err != nil {
		return fmt.Errorf("set goal limit: %w", err)
	}
	s.publish(ctx, key.UserID, key.Year, amqp.ReasonGoal)
	return nil
}

// SaveCustomGoal creates or updates a named custom budget.
func (s *BudgetService) SaveCustomGoal(ctx context.Context, goal core.BudgetGoal) error {
	goal.Key.Type = core.BudgetCustom
	if err := goal.Validate(); err != nil {
		return err
	}
	if err := s.goals.SaveGoal(ctx, goal); err != nil {
		return fmt.Errorf("save custom goal: %w", err)
	}
	s.publish(ctx, goal.Key.UserID, goal.Key.Year, amqp.ReasonGoal)
	return nil
}

func (s *BudgetService) DeleteGoal(ctx context.Context, key core.GoalKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.goals.DeleteGoal(ctx, key); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	s.publish(ctx, key.UserID, key.Year, amqp.ReasonGoal)
	return nil
}

// UpdatePaidAmount records what the claimant really paid; nil goes back to
// the announced price.
func (s *BudgetService) UpdatePaidAmount(ctx context.Context, userID, claimID string, paid *core.Money) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	if paid != nil {
		if err := paid.Validate(); err != nil {
			return err
		}
	}
	date, err := s.gifts.UpdateClaimPaidAmount(ctx, userID, claimID, paid)
	if err != nil {
		return fmt.Errorf("update paid amount: %w", err)
	}
	s.publishDate(ctx, userID, date, amqp.ReasonPaidAmount)
	return nil
}

func (s *BudgetService) CancelClaim(ctx context.Context, userID, claimID string) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	date, err := s.gifts.CancelClaim(ctx, userID, claimID)
	if err != nil {
		return fmt.Errorf("cancel claim: %w", err)
	}
	s.publishDate(ctx, userID, date, amqp.ReasonClaimCancelled)
	return nil
}

// AddExternalGift logs a purchase made outside the app and returns its id.
func (s *BudgetService) AddExternalGift(ctx context.Context, g core.ExternalGiftRow) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	id, err := s.gifts.CreateExternalGift(ctx, g)
	if err != nil {
		return "", fmt.Errorf("add external gift: %w", err)
	}
	s.publishDate(ctx, g.UserID, g.PurchaseDate, amqp.ReasonExternalGift)
	return id, nil
}

func (s *BudgetService) DeleteExternalGift(ctx context.Context, userID, id string) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	date, err := s.gifts.DeleteExternalGift(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete external gift: %w", err)
	}
	s.publishDate(ctx, userID, date, amqp.ReasonExternalGift)
	return nil
}

// LedgerTitle names the exported sheet of userID for year.
func LedgerTitle(userID string, year int) string {
	return fmt.Sprintf("%d Cadeaux - %s", year, userID)
}

// ExportLedger writes every gift of userID dated in year, oldest first,
// through the ledger writer and returns the writer's reference.
func (s *BudgetService) ExportLedger(ctx context.Context, userID string, year int) (string, error) {
	if err := validateYear(year); err != nil {
		return "", err
	}
	if s.ledger == nil {
		return "", ErrNoLedger
	}
	records, err := s.LoadGiftRecords(ctx, userID)
	if err != nil {
		return "", err
	}

	rows := core.Filter(records, year, core.Scope{Type: core.BudgetAnnual})
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Date.Before(rows[b].Date.Time)
	})

	ref, err := s.ledger.WriteLedger(ctx, LedgerTitle(userID, year), rows)
	if err != nil {
		return "", fmt.Errorf("write ledger: %w", err)
	}
	slog.InfoContext(ctx, "Ledger exported",
		"user_id", userID,
		"year", year,
		"rows", len(rows),
		"ref", ref)
	return ref, nil
}

func (s *BudgetService) publishDate(ctx context.Context, userID string, date core.Date, reason string) {
	if date.IsZero() {
		date = core.DateOf(s.now())
	}
	// Rows dated outside the budget years cannot be recomputed by the worker.
	if err := core.ValidateBudgetYear(date.Year()); err != nil {
		slog.WarnContext(ctx, "Skipping budget changed event outside budget years",
			"user_id", userID,
			"year", date.Year(),
			"reason", reason)
		return
	}
	s.publish(ctx, userID, date.Year(), reason)
}

// publish never fails the caller: the write it follows already succeeded.
func (s *BudgetService) publish(ctx context.Context, userID string, year int, reason string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping budget changed event")
		return
	}
	msg := amqp.NewBudgetChangedMessage(userID, year, reason)
	if err := s.publisher.PublishBudgetChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget changed message",
			"user_id", userID,
			"year", year,
			"reason", reason,
			"error", err)
	}
}

func validateYear(year int) error {
	return core.ValidateBudgetYear(year)
}

// withYear makes sure the selected year is offered even without gifts.
func withYear(years []int, year int) []int {
	for _, y := range years {
		if y == year {
			return years
		}
	}
	years = append(years, year)
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
