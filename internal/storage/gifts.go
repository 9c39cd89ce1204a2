package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"wishbudget/internal/core"
)

// NewWishlist describes a list to create.
type NewWishlist struct {
	ID      string
	OwnerID string
	Name    string
	Slug    string
	Theme   *core.Theme
}

// NewItem describes a catalog item to add to a list.
type NewItem struct {
	ID           string
	WishlistID   string
	Title        string
	Price        core.Money
	ShippingCost *core.Money
}

func (r *SQLiteRepository) CreateProfile(ctx context.Context, p core.Profile) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, display_name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.DisplayName, r.timestamp())
	if err != nil {
		return "", fmt.Errorf("create profile: %w", err)
	}
	return p.ID, nil
}

func (r *SQLiteRepository) CreateWishlist(ctx context.Context, w NewWishlist) (string, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wishlists (id, owner_id, name, slug, theme, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.OwnerID, w.Name, w.Slug, themeArg(w.Theme), r.timestamp())
	if err != nil {
		return "", fmt.Errorf("create wishlist: %w", err)
	}
	return w.ID, nil
}

// UpdateWishlistTheme changes the theme of a list. Items keep the theme they
// were created with as their original theme.
func (r *SQLiteRepository) UpdateWishlistTheme(ctx context.Context, id string, theme *core.Theme) error {
	res, err := r.db.ExecContext(ctx, `UPDATE wishlists SET theme = ? WHERE id = ?`, themeArg(theme), id)
	if err != nil {
		return fmt.Errorf("update wishlist theme: %w", err)
	}
	return expectOneRow(res, "update wishlist theme")
}

// DeleteWishlist hard-deletes a list. Its items survive detached.
func (r *SQLiteRepository) DeleteWishlist(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wishlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wishlist: %w", err)
	}
	return expectOneRow(res, "delete wishlist")
}

// CreateItem adds an item and freezes the list theme on it.
func (r *SQLiteRepository) CreateItem(ctx context.Context, it NewItem) (string, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO items (id, wishlist_id, title, price_cents, shipping_cents, original_theme, created_at)
		SELECT ?, w.id, ?, ?, ?, w.theme, ?
		FROM wishlists w WHERE w.id = ?`,
		it.ID, it.Title, it.Price.Cents, moneyArg(it.ShippingCost), r.timestamp(), it.WishlistID)
	if err != nil {
		return "", fmt.Errorf("create item: %w", err)
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE id = ?`, it.ID).Scan(&exists); err != nil {
		return "", fmt.Errorf("check item: %w", err)
	}
	if exists == 0 {
		return "", fmt.Errorf("create item in wishlist %s: %w", it.WishlistID, ErrNotFound)
	}
	return it.ID, nil
}

// DeleteItem hard-deletes an item. Claims on it survive with their snapshot.
func (r *SQLiteRepository) DeleteItem(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectOneRow(res, "delete item")
}

// CreateClaim reserves an item for claimantID and captures the snapshot that
// keeps the claim budgetable once the item or list is gone.
func (r *SQLiteRepository) CreateClaim(ctx context.Context, itemID, claimantID string, reservedAt core.Date) (string, error) {
	if err := core.ValidateBudgetYear(reservedAt.Year()); err != nil {
		return "", fmt.Errorf("claim reserved in %d: %w", reservedAt.Year(), err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	var (
		title              string
		price              int64
		shipping           sql.NullInt64
		itemTheme          sql.NullString
		listTheme          sql.NullString
		listName, listSlug sql.NullString
		ownerID, ownerName sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		SELECT i.title, i.price_cents, i.shipping_cents, i.original_theme,
		       w.theme, w.name, w.slug, p.id, p.display_name
		FROM items i
		LEFT JOIN wishlists w ON w.id = i.wishlist_id
		LEFT JOIN profiles p ON p.id = w.owner_id
		WHERE i.id = ?`, itemID).Scan(
		&title, &price, &shipping, &itemTheme,
		&listTheme, &listName, &listSlug, &ownerID, &ownerName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("claim item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read item for claim: %w", err)
	}

	theme := nullTheme(listTheme)
	if theme == nil {
		theme = nullTheme(itemTheme)
	}

	id := uuid.NewString()
	now := r.timestamp()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO claims (
			id, item_id, claimant_id, reserved_at, paid_cents,
			original_title, original_price_cents, original_shipping_cents, original_theme,
			original_owner_id, original_owner_name, original_list_name, original_list_slug,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, itemID, claimantID, reservedAt.String(),
		title, price, nullableInt(shipping), themeArg(theme),
		ownerID.String, ownerName.String, listName.String, listSlug.String,
		now, now)
	if isUniqueViolation(err) {
		return "", fmt.Errorf("claim item %s: %w", itemID, ErrAlreadyClaimed)
	}
	if err != nil {
		return "", fmt.Errorf("insert claim: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit claim: %w", err)
	}

	slog.InfoContext(ctx, "Claim saved to SQLite", "id", id, "item_id", itemID, "claimant_id", claimantID)
	return id, nil
}

// UpdateClaimPaidAmount records the real price paid, or clears it with nil.
// It returns the reservation date so callers know which year changed.
func (r *SQLiteRepository) UpdateClaimPaidAmount(ctx context.Context, claimantID, claimID string, paid *core.Money) (core.Date, error) {
	date, err := r.claimDate(ctx, claimantID, claimID)
	if err != nil {
		return core.Date{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE claims SET paid_cents = ?, updated_at = ? WHERE id = ? AND claimant_id = ?`,
		moneyArg(paid), r.timestamp(), claimID, claimantID)
	if err != nil {
		return core.Date{}, fmt.Errorf("update paid amount: %w", err)
	}
	return date, nil
}

// CancelClaim deletes a reservation and returns its date.
func (r *SQLiteRepository) CancelClaim(ctx context.Context, claimantID, claimID string) (core.Date, error) {
	date, err := r.claimDate(ctx, claimantID, claimID)
	if err != nil {
		return core.Date{}, err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM claims WHERE id = ? AND claimant_id = ?`, claimID, claimantID)
	if err != nil {
		return core.Date{}, fmt.Errorf("cancel claim: %w", err)
	}
	if err := expectOneRow(res, "cancel claim"); err != nil {
		return core.Date{}, err
	}
	return date, nil
}

func (r *SQLiteRepository) claimDate(ctx context.Context, claimantID, claimID string) (core.Date, error) {
	var reserved string
	err := r.db.QueryRowContext(ctx,
		`SELECT reserved_at FROM claims WHERE id = ? AND claimant_id = ?`, claimID, claimantID).Scan(&reserved)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Date{}, fmt.Errorf("claim %s: %w", claimID, ErrNotFound)
	}
	if err != nil {
		return core.Date{}, fmt.Errorf("read claim: %w", err)
	}
	return parseDateColumn(reserved), nil
}

// ListClaimsByClaimant returns every claim made by userID with whatever is
// left of its item, list and list owner.
func (r *SQLiteRepository) ListClaimsByClaimant(ctx context.Context, userID string) ([]core.ClaimRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.claimant_id, c.reserved_at, c.paid_cents,
		       c.original_title, c.original_price_cents, c.original_shipping_cents, c.original_theme,
		       c.original_owner_id, c.original_owner_name, c.original_list_name, c.original_list_slug,
		       i.id, i.title, i.price_cents, i.shipping_cents, i.original_theme,
		       w.id, w.name, w.slug, w.theme,
		       p.id, p.display_name
		FROM claims c
		LEFT JOIN items i ON i.id = c.item_id
		LEFT JOIN wishlists w ON w.id = i.wishlist_id
		LEFT JOIN profiles p ON p.id = w.owner_id
		WHERE c.claimant_id = ?
		ORDER BY c.reserved_at, c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var claims []core.ClaimRow
	for rows.Next() {
		var (
			c                                     core.ClaimRow
			reserved                              string
			paid, snapPrice, snapShipping         sql.NullInt64
			snapTheme                             sql.NullString
			itemID, itemTitle, itemTheme          sql.NullString
			itemPrice, itemShipping               sql.NullInt64
			listID, listName, listSlug, listTheme sql.NullString
			ownerID, ownerName                    sql.NullString
		)
		if err := rows.Scan(
			&c.ID, &c.ClaimantID, &reserved, &paid,
			&c.Snapshot.Title, &snapPrice, &snapShipping, &snapTheme,
			&c.Snapshot.OwnerID, &c.Snapshot.OwnerName, &c.Snapshot.ListName, &c.Snapshot.ListSlug,
			&itemID, &itemTitle, &itemPrice, &itemShipping, &itemTheme,
			&listID, &listName, &listSlug, &listTheme,
			&ownerID, &ownerName,
		); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}

		c.ReservedAt = parseDateColumn(reserved)
		c.PaidAmount = nullMoney(paid)
		c.Snapshot.Price = nullMoney(snapPrice)
		c.Snapshot.ShippingCost = nullMoney(snapShipping)
		c.Snapshot.Theme = nullTheme(snapTheme)

		if itemID.Valid {
			c.Item = &core.ItemRow{
				ID:            itemID.String,
				Title:         itemTitle.String,
				Price:         core.Money{Cents: itemPrice.Int64},
				ShippingCost:  nullMoney(itemShipping),
				OriginalTheme: nullTheme(itemTheme),
			}
			if listID.Valid {
				c.Item.Wishlist = &core.WishlistRow{
					ID:    listID.String,
					Name:  listName.String,
					Slug:  listSlug.String,
					Theme: nullTheme(listTheme),
				}
				if ownerID.Valid {
					c.Item.Wishlist.Owner = &core.Profile{ID: ownerID.String, DisplayName: ownerName.String}
				}
			}
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

// CreateExternalGift stores a purchase made outside the app.
func (r *SQLiteRepository) CreateExternalGift(ctx context.Context, g core.ExternalGiftRow) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	var recipientID string
	if g.Recipient != nil {
		recipientID = g.Recipient.ID
	}
	theme := g.Theme
	if !theme.IsValid() {
		theme = core.ThemeOther
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO external_gifts (id, user_id, title, recipient_id, recipient_name, paid_cents, theme, purchase_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, nullString(recipientID), g.RecipientName,
		g.PaidAmount.Cents, string(theme), g.PurchaseDate.String(), r.timestamp())
	if isForeignKeyViolation(err) {
		return "", fmt.Errorf("recipient profile %s: %w", recipientID, ErrUnknownReference)
	}
	if err != nil {
		return "", fmt.Errorf("create external gift: %w", err)
	}

	slog.InfoContext(ctx, "External gift saved to SQLite",
		"id", g.ID,
		"user_id", g.UserID,
		"amount_cents", g.PaidAmount.Cents,
		"theme", theme)
	return g.ID, nil
}

// DeleteExternalGift removes a gift owned by userID and returns its date.
func (r *SQLiteRepository) DeleteExternalGift(ctx context.Context, userID, id string) (core.Date, error) {
	var purchase string
	err := r.db.QueryRowContext(ctx,
		`SELECT purchase_date FROM external_gifts WHERE id = ? AND user_id = ?`, id, userID).Scan(&purchase)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Date{}, fmt.Errorf("external gift %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Date{}, fmt.Errorf("read external gift: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM external_gifts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return core.Date{}, fmt.Errorf("delete external gift: %w", err)
	}
	if err := expectOneRow(res, "delete external gift"); err != nil {
		return core.Date{}, err
	}
	return parseDateColumn(purchase), nil
}

// ListExternalGifts returns the gifts logged by userID, oldest first.
func (r *SQLiteRepository) ListExternalGifts(ctx context.Context, userID string) ([]core.ExternalGiftRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.user_id, g.title, g.recipient_name, g.paid_cents, g.theme, g.purchase_date,
		       p.id, p.display_name
		FROM external_gifts g
		LEFT JOIN profiles p ON p.id = g.recipient_id
		WHERE g.user_id = ?
		ORDER BY g.purchase_date, g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query external gifts: %w", err)
	}
	defer rows.Close()

	var gifts []core.ExternalGiftRow
	for rows.Next() {
		var (
			g                  core.ExternalGiftRow
			paid               int64
			theme, purchase    string
			profileID, profile sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.RecipientName, &paid, &theme, &purchase,
			&profileID, &profile); err != nil {
			return nil, fmt.Errorf("scan external gift: %w", err)
		}
		g.PaidAmount = core.Money{Cents: paid}
		g.Theme = core.ParseTheme(theme)
		g.PurchaseDate = parseDateColumn(purchase)
		if profileID.Valid {
			g.Recipient = &core.Profile{ID: profileID.String, DisplayName: profile.String}
		}
		gifts = append(gifts, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate external gifts: %w", err)
	}
	return gifts, nil
}

func nullableInt(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
