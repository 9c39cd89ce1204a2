// Package core holds the gift budgeting domain: claim and external gift
// records, their normalization into one list, budget aggregation per goal,
// thresholds and insights.
package core

import (
	"errors"
	"strings"
	"time"
)

// Sentinels used when a referenced row no longer exists.
const (
	UnknownLabel     = "Inconnu"
	DeletedListLabel = "Liste supprimée"
)

const (
	SourceInApp    Source = "in-app"
	SourceExternal Source = "external"
)

type (
	// Source tags where a GiftRecord came from.
	Source string

	Date struct {
		time.Time
	}

	Profile struct {
		ID          string
		DisplayName string
	}

	WishlistRow struct {
		ID    string
		Name  string
		Slug  string
		Theme *Theme
		Owner *Profile
	}

	ItemRow struct {
		ID            string
		Title         string
		Price         Money
		ShippingCost  *Money
		OriginalTheme *Theme
		Wishlist      *WishlistRow // nil once the list is deleted
	}

	// ClaimSnapshot holds the values frozen when the claim was made, so that a
	// claim stays budgetable after its item or list is gone.
	ClaimSnapshot struct {
		Title        string
		Price        *Money
		ShippingCost *Money
		Theme        *Theme
		OwnerID      string
		OwnerName    string
		ListName     string
		ListSlug     string
	}

	ClaimRow struct {
		ID         string
		ClaimantID string
		ReservedAt Date
		PaidAmount *Money
		Item       *ItemRow // nil once the item is deleted
		Snapshot   ClaimSnapshot
	}

	ExternalGiftRow struct {
		ID            string
		UserID        string
		Title         string
		Recipient     *Profile
		RecipientName string
		PaidAmount    Money
		Theme         Theme
		PurchaseDate  Date
	}

	// GiftRecord is the unified view over claims and external gifts. It is
	// derived on every read and never persisted.
	GiftRecord struct {
		ID             string
		Title          string
		RecipientID    string
		RecipientName  string
		AnnouncedPrice Money
		PaidAmount     *Money
		ShippingCost   Money
		TotalPrice     Money
		Date           Date
		Source         Source
		ListName       string
		ListSlug       string
		Theme          Theme
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyTitle         = errors.New("empty title")
	ErrEmptyRecipient     = errors.New("empty recipient")
	ErrEmptyUser          = errors.New("empty user")
	ErrInvalidBudgetType  = errors.New("invalid budget type")
	ErrInvalidYear        = errors.New("invalid year")
	ErrMissingName        = errors.New("custom budget requires a name")
	ErrUnexpectedName     = errors.New("automatic budget cannot be named")
	ErrMissingScope       = errors.New("custom budget requires a recipient or a list")
	ErrNegativeLimit      = errors.New("limit cannot be negative")
	ErrTitleTooLong       = errors.New("title too long (max 200 characters)")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrInvalidDateFormat  = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidBudgetScope = errors.New("scope does not match budget type")
)

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDateFormat
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// IsInApp reports whether the record comes from a claim.
func (g GiftRecord) IsInApp() bool {
	return g.Source == SourceInApp
}

// Validate checks a manually logged gift before it is stored.
func (e ExternalGiftRow) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return ErrTitleTooLong
	}
	if e.Recipient == nil && strings.TrimSpace(e.RecipientName) == "" {
		return ErrEmptyRecipient
	}
	if err := e.PaidAmount.Validate(); err != nil {
		return err
	}
	if err := e.PurchaseDate.Validate(); err != nil {
		return err
	}
	return ValidateBudgetYear(e.PurchaseDate.Year())
}
