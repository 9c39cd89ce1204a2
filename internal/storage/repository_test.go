package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wishbudget/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	repo.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { repo.Close() })
	return repo
}

// seedList creates an owner, a themed list and one item; it returns the item id.
func seedList(t *testing.T, repo *SQLiteRepository, ownerName, slug string, theme core.Theme, price int64) (ownerID, listID, itemID string) {
	t.Helper()
	ctx := context.Background()
	var err error
	ownerID, err = repo.CreateProfile(ctx, core.Profile{DisplayName: ownerName})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	listID, err = repo.CreateWishlist(ctx, NewWishlist{OwnerID: ownerID, Name: "Liste " + ownerName, Slug: slug, Theme: core.ThemePtr(theme)})
	if err != nil {
		t.Fatalf("CreateWishlist: %v", err)
	}
	itemID, err = repo.CreateItem(ctx, NewItem{WishlistID: listID, Title: "Lego", Price: core.Cents(price), ShippingCost: core.MoneyPtr(500)})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return ownerID, listID, itemID
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	repo.Close()

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("expected clean version 2, got %d dirty=%v", version, dirty)
	}
	// Running again is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}

func TestClaimLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ownerID, _, itemID := seedList(t, repo, "Léa", "lea-noel", core.ThemeChristmas, 2500)

	claimID, err := repo.CreateClaim(ctx, itemID, "alice", core.NewDate(2025, 12, 1))
	if err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	if _, err := repo.CreateClaim(ctx, itemID, "bob", core.NewDate(2025, 12, 2)); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if _, err := repo.CreateClaim(ctx, "missing", "bob", core.NewDate(2025, 12, 2)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.CreateClaim(ctx, itemID, "bob", core.NewDate(1999, 12, 2)); !errors.Is(err, core.ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}

	claims, err := repo.ListClaimsByClaimant(ctx, "alice")
	if err != nil {
		t.Fatalf("ListClaimsByClaimant: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
	c := claims[0]
	if c.ID != claimID || c.Item == nil || c.Item.Wishlist == nil || c.Item.Wishlist.Owner == nil {
		t.Fatalf("claim not fully joined: %+v", c)
	}
	if c.Item.Wishlist.Owner.ID != ownerID || c.Snapshot.OwnerName != "Léa" || c.Snapshot.ListSlug != "lea-noel" {
		t.Fatalf("unexpected snapshot: %+v", c.Snapshot)
	}
	if c.Snapshot.Theme == nil || *c.Snapshot.Theme != core.ThemeChristmas {
		t.Fatalf("expected snapshot theme noël, got %v", c.Snapshot.Theme)
	}
	if c.Item.OriginalTheme == nil || *c.Item.OriginalTheme != core.ThemeChristmas {
		t.Fatalf("expected item original theme noël, got %v", c.Item.OriginalTheme)
	}

	date, err := repo.UpdateClaimPaidAmount(ctx, "alice", claimID, core.MoneyPtr(2000))
	if err != nil {
		t.Fatalf("UpdateClaimPaidAmount: %v", err)
	}
	if date.Year() != 2025 {
		t.Fatalf("expected 2025, got %v", date)
	}
	if _, err := repo.UpdateClaimPaidAmount(ctx, "bob", claimID, core.MoneyPtr(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user must not update the claim, got %v", err)
	}

	claims, _ = repo.ListClaimsByClaimant(ctx, "alice")
	if claims[0].PaidAmount == nil || claims[0].PaidAmount.Cents != 2000 {
		t.Fatalf("expected paid 2000, got %v", claims[0].PaidAmount)
	}

	if _, err := repo.CancelClaim(ctx, "alice", claimID); err != nil {
		t.Fatalf("CancelClaim: %v", err)
	}
	if _, err := repo.CancelClaim(ctx, "alice", claimID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second cancel, got %v", err)
	}
}

func TestClaimSurvivesDeletions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, listID, itemID := seedList(t, repo, "Tom", "tom-anniv", core.ThemeBirthday, 4000)

	if _, err := repo.CreateClaim(ctx, itemID, "alice", core.NewDate(2025, 4, 3)); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}

	if err := repo.DeleteWishlist(ctx, listID); err != nil {
		t.Fatalf("DeleteWishlist: %v", err)
	}
	claims, err := repo.ListClaimsByClaimant(ctx, "alice")
	if err != nil {
		t.Fatalf("ListClaimsByClaimant: %v", err)
	}
	if claims[0].Item == nil || claims[0].Item.Wishlist != nil {
		t.Fatalf("expected detached item, got %+v", claims[0].Item)
	}

	if err := repo.DeleteItem(ctx, itemID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	claims, _ = repo.ListClaimsByClaimant(ctx, "alice")
	if claims[0].Item != nil {
		t.Fatalf("expected nil item after deletion")
	}

	rec := core.NormalizeClaim(claims[0])
	if rec.Title != "Lego" || rec.Theme != core.ThemeBirthday || rec.RecipientName != "Tom" {
		t.Fatalf("snapshot fallback failed: %+v", rec)
	}
	if rec.TotalPrice.Cents != 4500 {
		t.Fatalf("expected total 4500, got %d", rec.TotalPrice.Cents)
	}
}

func TestWishlistThemeChange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, listID, itemID := seedList(t, repo, "Zoé", "zoe", core.ThemeBirthday, 1000)

	if _, err := repo.CreateClaim(ctx, itemID, "alice", core.NewDate(2025, 5, 10)); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}

	if err := repo.UpdateWishlistTheme(ctx, listID, core.ThemePtr(core.ThemeWedding)); err != nil {
		t.Fatalf("UpdateWishlistTheme: %v", err)
	}
	claims, _ := repo.ListClaimsByClaimant(ctx, "alice")
	if rec := core.NormalizeClaim(claims[0]); rec.Theme != core.ThemeWedding {
		t.Fatalf("current list theme should win, got %q", rec.Theme)
	}

	// Without a list theme the item keeps the theme it was created with.
	if err := repo.UpdateWishlistTheme(ctx, listID, nil); err != nil {
		t.Fatalf("clear theme: %v", err)
	}
	claims, _ = repo.ListClaimsByClaimant(ctx, "alice")
	if rec := core.NormalizeClaim(claims[0]); rec.Theme != core.ThemeBirthday {
		t.Fatalf("expected original item theme, got %q", rec.Theme)
	}

	if err := repo.UpdateWishlistTheme(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExternalGifts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ownerID, err := repo.CreateProfile(ctx, core.Profile{DisplayName: "Marc"})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	id, err := repo.CreateExternalGift(ctx, core.ExternalGiftRow{
		UserID:       "alice",
		Title:        "Livre",
		Recipient:    &core.Profile{ID: ownerID},
		PaidAmount:   core.Cents(1500),
		Theme:        core.ThemeBirthday,
		PurchaseDate: core.NewDate(2025, 2, 10),
	})
	if err != nil {
		t.Fatalf("CreateExternalGift: %v", err)
	}
	if _, err := repo.CreateExternalGift(ctx, core.ExternalGiftRow{
		UserID:        "alice",
		Title:         "Fleurs",
		RecipientName: "Mamie",
		PaidAmount:    core.Cents(3000),
		Theme:         core.ThemeOther,
		PurchaseDate:  core.NewDate(2025, 1, 5),
	}); err != nil {
		t.Fatalf("CreateExternalGift: %v", err)
	}
	if _, err := repo.CreateExternalGift(ctx, core.ExternalGiftRow{UserID: "alice", PaidAmount: core.Cents(1)}); err == nil {
		t.Fatalf("expected validation error for empty gift")
	}

	gifts, err := repo.ListExternalGifts(ctx, "alice")
	if err != nil {
		t.Fatalf("ListExternalGifts: %v", err)
	}
	if len(gifts) != 2 {
		t.Fatalf("expected 2 gifts, got %d", len(gifts))
	}
	if gifts[0].Title != "Fleurs" || gifts[0].Recipient != nil {
		t.Fatalf("expected oldest free-text gift first, got %+v", gifts[0])
	}
	if gifts[1].Recipient == nil || gifts[1].Recipient.DisplayName != "Marc" {
		t.Fatalf("expected joined recipient, got %+v", gifts[1].Recipient)
	}

	ghost := core.ExternalGiftRow{
		UserID:       "alice",
		Title:        "Livre",
		Recipient:    &core.Profile{ID: "ghost"},
		PaidAmount:   core.Cents(1000),
		Theme:        core.ThemeOther,
		PurchaseDate: core.NewDate(2025, 3, 1),
	}
	if _, err := repo.CreateExternalGift(ctx, ghost); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}

	if _, err := repo.DeleteExternalGift(ctx, "bob", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user must not delete, got %v", err)
	}
	date, err := repo.DeleteExternalGift(ctx, "alice", id)
	if err != nil {
		t.Fatalf("DeleteExternalGift: %v", err)
	}
	if !date.Equal(core.NewDate(2025, 2, 10).Time) {
		t.Fatalf("unexpected date %v", date)
	}
}

func TestGoalLimits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := core.GoalKey{UserID: "alice", Type: core.BudgetAnnual, Year: 2025}

	limit, err := repo.GetGoalLimit(ctx, key)
	if err != nil || limit != nil {
		t.Fatalf("expected absent limit, got %v, %v", limit, err)
	}

	if err := repo.SetGoalLimit(ctx, key, core.MoneyPtr(50000)); err != nil {
		t.Fatalf("SetGoalLimit: %v", err)
	}
	if err := repo.SetGoalLimit(ctx, key, core.MoneyPtr(60000)); err != nil {
		t.Fatalf("SetGoalLimit update: %v", err)
	}
	limit, err = repo.GetGoalLimit(ctx, key)
	if err != nil || limit == nil || limit.Cents != 60000 {
		t.Fatalf("expected 60000, got %v, %v", limit, err)
	}

	if err := repo.SetGoalLimit(ctx, key, nil); err != nil {
		t.Fatalf("clear limit: %v", err)
	}
	if limit, _ := repo.GetGoalLimit(ctx, key); limit != nil {
		t.Fatalf("expected cleared limit, got %v", limit)
	}

	if err := repo.SetGoalLimit(ctx, key, core.MoneyPtr(-1)); !errors.Is(err, core.ErrNegativeLimit) {
		t.Fatalf("expected ErrNegativeLimit, got %v", err)
	}
	bad := core.GoalKey{UserID: "alice", Type: "weekly", Year: 2025}
	if err := repo.SetGoalLimit(ctx, bad, nil); !errors.Is(err, core.ErrInvalidBudgetType) {
		t.Fatalf("expected ErrInvalidBudgetType, got %v", err)
	}

	custom := core.GoalKey{UserID: "alice", Type: core.BudgetCustom, Year: 2025, Name: "Léa"}
	if err := repo.SetGoalLimit(ctx, custom, core.MoneyPtr(100)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("custom limit without goal should be ErrNotFound, got %v", err)
	}
}

func TestCustomGoals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := core.GoalKey{UserID: "alice", Type: core.BudgetCustom, Year: 2025, Name: "Léa"}

	if err := repo.SaveGoal(ctx, core.BudgetGoal{Key: key}); !errors.Is(err, core.ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope, got %v", err)
	}
	if err := repo.SaveGoal(ctx, core.BudgetGoal{Key: key, RecipientID: "lea", Limit: core.MoneyPtr(20000)}); err != nil {
		t.Fatalf("SaveGoal: %v", err)
	}
	if err := repo.SetGoalLimit(ctx, key, core.MoneyPtr(25000)); err != nil {
		t.Fatalf("SetGoalLimit on custom: %v", err)
	}
	if err := repo.SetGoalLimit(ctx, core.GoalKey{UserID: "alice", Type: core.BudgetAnnual, Year: 2025}, core.MoneyPtr(1)); err != nil {
		t.Fatalf("SetGoalLimit annual: %v", err)
	}

	g, err := repo.GetGoal(ctx, key)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	if g.RecipientID != "lea" || g.Limit == nil || g.Limit.Cents != 25000 || g.CreatedAt.IsZero() {
		t.Fatalf("unexpected goal %+v", g)
	}

	goals, err := repo.ListGoals(ctx, "alice", 2025)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(goals))
	}
	if others, _ := repo.ListGoals(ctx, "alice", 2024); len(others) != 0 {
		t.Fatalf("expected no goals in 2024, got %d", len(others))
	}

	if err := repo.DeleteGoal(ctx, key); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	if _, err := repo.GetGoal(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteGoal(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAlertsRecordedOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := core.GoalKey{UserID: "alice", Type: core.BudgetAnnual, Year: 2025}

	first, err := repo.RecordAlert(ctx, key, core.StatusWarning)
	if err != nil || !first {
		t.Fatalf("expected first record, got %v, %v", first, err)
	}
	again, err := repo.RecordAlert(ctx, key, core.StatusWarning)
	if err != nil || again {
		t.Fatalf("expected duplicate to be ignored, got %v, %v", again, err)
	}
	if err := repo.ClearAlerts(ctx, key); err != nil {
		t.Fatalf("ClearAlerts: %v", err)
	}
	if ok, _ := repo.RecordAlert(ctx, key, core.StatusWarning); !ok {
		t.Fatalf("expected alert to fire again after clear")
	}
}
