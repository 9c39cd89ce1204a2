package core

import (
	"strings"
	"time"
)

// BudgetType identifies a budget category. Automatic types are recomputed
// from gift records; custom ones are user-named and scoped.
type BudgetType string

const (
	BudgetAnnual BudgetType = "annuel"
	BudgetCustom BudgetType = "personnalisé"
)

// Years outside this range are treated as input errors.
const (
	MinBudgetYear = 2000
	MaxBudgetYear = 2100
)

// ThemeBudget returns the automatic budget type of a theme.
func ThemeBudget(t Theme) BudgetType {
	return BudgetType(t)
}

// ParseBudgetType accepts the canonical names plus accent-less spellings.
func ParseBudgetType(s string) (BudgetType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case string(BudgetAnnual):
		return BudgetAnnual, nil
	case string(BudgetCustom), "personnalise":
		return BudgetCustom, nil
	case "noel":
		return ThemeBudget(ThemeChristmas), nil
	}
	if Theme(v).IsValid() {
		return BudgetType(v), nil
	}
	return "", ErrInvalidBudgetType
}

func (t BudgetType) IsValid() bool {
	return t == BudgetAnnual || t == BudgetCustom || t.IsTheme()
}

// IsTheme reports whether t is one of the theme budgets.
func (t BudgetType) IsTheme() bool {
	return Theme(t).IsValid()
}

// IsAutomatic is true for every type except custom budgets.
func (t BudgetType) IsAutomatic() bool {
	return t.IsValid() && t != BudgetCustom
}

// AutomaticTypes lists the annual budget followed by the theme budgets.
func AutomaticTypes() []BudgetType {
	types := []BudgetType{BudgetAnnual}
	for _, th := range Themes() {
		types = append(types, ThemeBudget(th))
	}
	return types
}

// GoalKey addresses one persisted budget goal.
type GoalKey struct {
	UserID string
	Type   BudgetType
	Year   int
	Name   string // custom budgets only
}

// ValidateBudgetYear checks that year can carry a budget.
func ValidateBudgetYear(year int) error {
	if year < MinBudgetYear || year > MaxBudgetYear {
		return ErrInvalidYear
	}
	return nil
}

func (k GoalKey) Validate() error {
	if strings.TrimSpace(k.UserID) == "" {
		return ErrEmptyUser
	}
	if !k.Type.IsValid() {
		return ErrInvalidBudgetType
	}
	if err := ValidateBudgetYear(k.Year); err != nil {
		return err
	}
	if k.Type == BudgetCustom && strings.TrimSpace(k.Name) == "" {
		return ErrMissingName
	}
	if k.Type != BudgetCustom && k.Name != "" {
		return ErrUnexpectedName
	}
	return nil
}

// BudgetGoal is the persisted part of a budget: an optional limit and, for
// custom budgets, the recipient or list it tracks. Spent amounts are never
// stored.
type BudgetGoal struct {
	Key         GoalKey
	Limit       *Money
	RecipientID string
	ListSlug    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (g BudgetGoal) Validate() error {
	if err := g.Key.Validate(); err != nil {
		return err
	}
	if g.Limit != nil && g.Limit.Cents < 0 {
		return ErrNegativeLimit
	}
	if g.Key.Type == BudgetCustom && g.RecipientID == "" && g.ListSlug == "" {
		return ErrMissingScope
	}
	if g.Key.Type != BudgetCustom && (g.RecipientID != "" || g.ListSlug != "") {
		return ErrInvalidBudgetScope
	}
	return nil
}

// Scope returns the record selector of the goal.
func (g BudgetGoal) Scope() Scope {
	return Scope{Type: g.Key.Type, RecipientID: g.RecipientID, ListSlug: g.ListSlug}
}

// Scope selects the gift records that count towards a budget.
type Scope struct {
	Type        BudgetType
	RecipientID string
	ListSlug    string
}

// Matches reports whether r belongs to the scope, regardless of year.
func (s Scope) Matches(r GiftRecord) bool {
	switch {
	case s.Type == BudgetAnnual:
		return true
	case s.Type.IsTheme():
		return r.Theme == Theme(s.Type)
	case s.Type == BudgetCustom:
		if s.RecipientID == "" && s.ListSlug == "" {
			return false
		}
		if s.RecipientID != "" && r.RecipientID != s.RecipientID {
			return false
		}
		if s.ListSlug != "" && r.ListSlug != s.ListSlug {
			return false
		}
		return true
	}
	return false
}

// BudgetData is a goal enriched with the figures shown on a budget card.
type BudgetData struct {
	Goal       BudgetGoal
	Spent      Money
	Progress   int
	Threshold  Threshold
	ItemsCount int
	Remaining  *Money // nil without a limit
}
