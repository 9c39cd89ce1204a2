package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"wishbudget/internal/amqp"
	"wishbudget/internal/core"
)

var errNotFound = errors.New("not found")

// fakeStore is an in-memory GiftStore, GoalStore and AlertStore.
type fakeStore struct {
	mu         sync.Mutex
	claims     []core.ClaimRow
	gifts      []core.ExternalGiftRow
	goals      map[core.GoalKey]core.BudgetGoal
	alerts     map[string]bool
	listCalls  int
	failClaims error
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		goals:  make(map[core.GoalKey]core.BudgetGoal),
		alerts: make(map[string]bool),
	}
}

func (f *fakeStore) addClaim(id, claimant, owner string, theme core.Theme, date core.Date, price, shipping int64, paid *core.Money) {
	f.claims = append(f.claims, core.ClaimRow{
		ID:         id,
		ClaimantID: claimant,
		ReservedAt: date,
		PaidAmount: paid,
		Item: &core.ItemRow{
			ID:           "item-" + id,
			Title:        "Item " + id,
			Price:        core.Cents(price),
			ShippingCost: core.MoneyPtr(shipping),
			Wishlist: &core.WishlistRow{
				Name:  "Liste " + owner,
				Slug:  "liste-" + owner,
				Theme: core.ThemePtr(theme),
				Owner: &core.Profile{ID: owner, DisplayName: owner},
			},
		},
	})
}

func (f *fakeStore) ListClaimsByClaimant(_ context.Context, userID string) ([]core.ClaimRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClaims != nil {
		return nil, f.failClaims
	}
	var out []core.ClaimRow
	for _, c := range f.claims {
		if c.ClaimantID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListExternalGifts(_ context.Context, userID string) ([]core.ExternalGiftRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ExternalGiftRow
	for _, g := range f.gifts {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateClaimPaidAmount(_ context.Context, claimantID, claimID string, paid *core.Money) (core.Date, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.claims {
		if c.ID == claimID && c.ClaimantID == claimantID {
			f.claims[i].PaidAmount = paid
			return c.ReservedAt, nil
		}
	}
	return core.Date{}, errNotFound
}

func (f *fakeStore) CancelClaim(_ context.Context, claimantID, claimID string) (core.Date, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.claims {
		if c.ID == claimID && c.ClaimantID == claimantID {
			f.claims = append(f.claims[:i], f.claims[i+1:]...)
			return c.ReservedAt, nil
		}
	}
	return core.Date{}, errNotFound
}

func (f *fakeStore) CreateExternalGift(_ context.Context, g core.ExternalGiftRow) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g.ID = fmt.Sprintf("gift-%d", f.nextID)
	f.gifts = append(f.gifts, g)
	return g.ID, nil
}

func (f *fakeStore) DeleteExternalGift(_ context.Context, userID, id string) (core.Date, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.gifts {
		if g.ID == id && g.UserID == userID {
			f.gifts = append(f.gifts[:i], f.gifts[i+1:]...)
			return g.PurchaseDate, nil
		}
	}
	return core.Date{}, errNotFound
}

func (f *fakeStore) GetGoalLimit(_ context.Context, key core.GoalKey) (*core.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.goals[key]; ok {
		return g.Limit, nil
	}
	return nil, nil
}

func (f *fakeStore) SetGoalLimit(_ context.Context, key core.GoalKey, limit *core.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[key]
	if !ok && key.Type == core.BudgetCustom {
		return errNotFound
	}
	g.Key = key
	g.Limit = limit
	f.goals[key] = g
	return nil
}

func (f *fakeStore) SaveGoal(_ context.Context, g core.BudgetGoal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goals[g.Key] = g
	return nil
}

func (f *fakeStore) GetGoal(_ context.Context, key core.GoalKey) (core.BudgetGoal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[key]
	if !ok {
		return core.BudgetGoal{}, errNotFound
	}
	return g, nil
}

func (f *fakeStore) ListGoals(_ context.Context, userID string, year int) ([]core.BudgetGoal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []core.BudgetGoal
	for k, g := range f.goals {
		if k.UserID == userID && k.Year == year {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Key.Type != out[b].Key.Type {
			return out[a].Key.Type < out[b].Key.Type
		}
		return out[a].Key.Name < out[b].Key.Name
	})
	return out, nil
}

func (f *fakeStore) DeleteGoal(_ context.Context, key core.GoalKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[key]; !ok {
		return errNotFound
	}
	delete(f.goals, key)
	return nil
}

func alertID(key core.GoalKey, status core.BudgetStatus) string {
	return fmt.Sprintf("%s/%s/%d/%s/%s", key.UserID, key.Type, key.Year, key.Name, status)
}

func (f *fakeStore) RecordAlert(_ context.Context, key core.GoalKey, status core.BudgetStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := alertID(key, status)
	if f.alerts[id] {
		return false, nil
	}
	f.alerts[id] = true
	return true, nil
}

func (f *fakeStore) ClearAlerts(_ context.Context, key core.GoalKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range []core.BudgetStatus{core.StatusWarning, core.StatusExceeded} {
		delete(f.alerts, alertID(key, s))
	}
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.BudgetChangedMessage
	err  error
}

func (p *fakePublisher) PublishBudgetChanged(_ context.Context, msg *amqp.BudgetChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) last() *amqp.BudgetChangedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		return nil
	}
	return p.msgs[len(p.msgs)-1]
}
