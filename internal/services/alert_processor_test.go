package services

import (
	"context"
	"testing"

	"wishbudget/internal/amqp"
	"wishbudget/internal/core"
)

func TestAlertProcessorRaisesOnce(t *testing.T) {
	f := seededStore()
	s := newTestService(f, nil)
	p := NewAlertProcessor(s, f)
	ctx := context.Background()

	// 60€ spent against 50€
	if err := s.SetLimit(ctx, annualKey("alice", 2025), core.MoneyPtr(5000)); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}

	alerts, err := p.Process(ctx, "alice", 2025)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Status != core.StatusExceeded || a.Spent.Cents != 6000 || a.Limit.Cents != 5000 || a.Progress != 120 {
		t.Errorf("unexpected alert %+v", a)
	}

	again, err := p.Process(ctx, "alice", 2025)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("the same status must not alert twice, got %d", len(again))
	}
}

func TestAlertProcessorWarningThenExceeded(t *testing.T) {
	f := seededStore()
	s := newTestService(f, nil)
	p := NewAlertProcessor(s, f)
	ctx := context.Background()

	key := core.GoalKey{UserID: "alice", Type: core.ThemeBudget(core.ThemeChristmas), Year: 2025}
	if err := s.SetLimit(ctx, key, core.MoneyPtr(5000)); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}

	alerts, err := p.Process(ctx, "alice", 2025)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Status != core.StatusWarning {
		t.Fatalf("45€ of 50€ should warn, got %+v", alerts)
	}

	// paying 40€ instead of 35€ pushes noël to 50€
	if err := s.UpdatePaidAmount(ctx, "alice", "c1", core.MoneyPtr(4000)); err != nil {
		t.Fatalf("UpdatePaidAmount: %v", err)
	}
	alerts, err = p.Process(ctx, "alice", 2025)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Status != core.StatusExceeded {
		t.Fatalf("reaching the limit should raise exceeded, got %+v", alerts)
	}
}

func TestAlertProcessorRearmsAfterSafe(t *testing.T) {
	f := seededStore()
	s := newTestService(f, nil)
	p := NewAlertProcessor(s, f)
	ctx := context.Background()

	key := annualKey("alice", 2025)
	if err := s.SetLimit(ctx, key, core.MoneyPtr(5000)); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	if alerts, _ := p.Process(ctx, "alice", 2025); len(alerts) != 1 {
		t.Fatalf("expected initial alert, got %d", len(alerts))
	}

	if err := s.SetLimit(ctx, key, core.MoneyPtr(100000)); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	if alerts, _ := p.Process(ctx, "alice", 2025); len(alerts) != 0 {
		t.Fatalf("a safe budget raises nothing, got %d", len(alerts))
	}

	if err := s.SetLimit(ctx, key, core.MoneyPtr(5000)); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	if alerts, _ := p.Process(ctx, "alice", 2025); len(alerts) != 1 {
		t.Fatalf("alert should fire again after going back to safe, got %d", len(alerts))
	}
}

func TestAlertProcessorIgnoresUnlimitedBudgets(t *testing.T) {
	f := seededStore()
	p := NewAlertProcessor(newTestService(f, nil), f)

	err := p.Handle(context.Background(), amqp.NewBudgetChangedMessage("alice", 2025, amqp.ReasonGoal))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(f.alerts) != 0 {
		t.Fatalf("no limit, no alert; got %v", f.alerts)
	}
}

func TestAlertProcessorInvalidYear(t *testing.T) {
	f := seededStore()
	p := NewAlertProcessor(newTestService(f, nil), f)

	if err := p.Handle(context.Background(), &amqp.BudgetChangedMessage{UserID: "alice", Year: 1}); err == nil {
		t.Fatal("expected an error for an out of range year")
	}
}

func TestAlertProcessorRearmsWhenLastGiftDeleted(t *testing.T) {
	f := newFakeStore()
	s := newTestService(f, nil)
	p := NewAlertProcessor(s, f)
	ctx := context.Background()

	key := annualKey("alice", 2025)
	if err := s.SetLimit(ctx, key, core.MoneyPtr(10000)); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	gift := core.ExternalGiftRow{
		UserID:        "alice",
		Title:         "Vélo",
		RecipientName: "Papa",
		PaidAmount:    core.Cents(9500),
		Theme:         core.ThemeOther,
		PurchaseDate:  core.NewDate(2025, 3, 1),
	}
	id, err := s.AddExternalGift(ctx, gift)
	if err != nil {
		t.Fatalf("AddExternalGift: %v", err)
	}
	if alerts, _ := p.Process(ctx, "alice", 2025); len(alerts) != 1 || alerts[0].Status != core.StatusWarning {
		t.Fatalf("95€ of 100€ should warn, got %+v", alerts)
	}

	// The annual card disappears from the overview once it has no gift.
	if err := s.DeleteExternalGift(ctx, "alice", id); err != nil {
		t.Fatalf("DeleteExternalGift: %v", err)
	}
	if alerts, err := p.Process(ctx, "alice", 2025); err != nil || len(alerts) != 0 {
		t.Fatalf("Process = %+v, %v", alerts, err)
	}
	if len(f.alerts) != 0 {
		t.Fatalf("alerts should be cleared, got %v", f.alerts)
	}

	if _, err := s.AddExternalGift(ctx, gift); err != nil {
		t.Fatalf("AddExternalGift: %v", err)
	}
	if alerts, _ := p.Process(ctx, "alice", 2025); len(alerts) != 1 || alerts[0].Status != core.StatusWarning {
		t.Fatalf("warning should fire again, got %+v", alerts)
	}
}

func TestAlertProcessorRearmsWhenLimitRemoved(t *testing.T) {
	f := seededStore()
	s := newTestService(f, nil)
	p := NewAlertProcessor(s, f)
	ctx := context.Background()

	key := annualKey("alice", 2025)
	if err := s.SetLimit(ctx, key, core.MoneyPtr(5000)); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	if alerts, _ := p.Process(ctx, "alice", 2025); len(alerts) != 1 {
		t.Fatalf("expected initial alert, got %d", len(alerts))
	}
	if err := s.SetLimit(ctx, key, nil); err != nil {
		t.Fatalf("clear limit: %v", err)
	}
	if _, err := p.Process(ctx, "alice", 2025); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(f.alerts) != 0 {
		t.Fatalf("removing the limit should clear alerts, got %v", f.alerts)
	}
}
