package core

import (
	"errors"
	"testing"
)

func TestParseBudgetType(t *testing.T) {
	ok := map[string]BudgetType{
		"annuel":       BudgetAnnual,
		"Noel":         ThemeBudget(ThemeChristmas),
		"mariage":      ThemeBudget(ThemeWedding),
		"personnalise": BudgetCustom,
		"personnalisé": BudgetCustom,
	}
	for in, want := range ok {
		got, err := ParseBudgetType(in)
		if err != nil || got != want {
			t.Errorf("ParseBudgetType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseBudgetType("monthly"); !errors.Is(err, ErrInvalidBudgetType) {
		t.Fatalf("expected ErrInvalidBudgetType, got %v", err)
	}
}

func TestAutomaticTypes(t *testing.T) {
	types := AutomaticTypes()
	if len(types) != 6 || types[0] != BudgetAnnual {
		t.Fatalf("unexpected types %v", types)
	}
	for _, bt := range types {
		if !bt.IsAutomatic() {
			t.Fatalf("%q should be automatic", bt)
		}
	}
	if BudgetCustom.IsAutomatic() {
		t.Fatalf("custom is not automatic")
	}
}

func TestBudgetGoalValidate(t *testing.T) {
	tests := []struct {
		name string
		goal BudgetGoal
		want error
	}{
		{"annual ok", BudgetGoal{Key: GoalKey{UserID: "u", Type: BudgetAnnual, Year: 2025}}, nil},
		{"theme with limit", BudgetGoal{Key: GoalKey{UserID: "u", Type: "noël", Year: 2025}, Limit: MoneyPtr(100)}, nil},
		{"custom ok", BudgetGoal{Key: GoalKey{UserID: "u", Type: BudgetCustom, Year: 2025, Name: "Léa"}, RecipientID: "lea"}, nil},
		{"missing user", BudgetGoal{Key: GoalKey{Type: BudgetAnnual, Year: 2025}}, ErrEmptyUser},
		{"bad type", BudgetGoal{Key: GoalKey{UserID: "u", Type: "weekly", Year: 2025}}, ErrInvalidBudgetType},
		{"bad year", BudgetGoal{Key: GoalKey{UserID: "u", Type: BudgetAnnual, Year: 1999}}, ErrInvalidYear},
		{"custom without name", BudgetGoal{Key: GoalKey{UserID: "u", Type: BudgetCustom, Year: 2025}, RecipientID: "x"}, ErrMissingName},
		{"automatic with name", BudgetGoal{Key: GoalKey{UserID: "u", Type: BudgetAnnual, Year: 2025, Name: "x"}}, ErrUnexpectedName},
		{"custom without scope", BudgetGoal{Key: GoalKey{UserID: "u", Type: BudgetCustom, Year: 2025, Name: "x"}}, ErrMissingScope},
		{"automatic with scope", BudgetGoal{Key: GoalKey{UserID: "u", Type: BudgetAnnual, Year: 2025}, ListSlug: "l"}, ErrInvalidBudgetScope},
		{"negative limit", BudgetGoal{Key: GoalKey{UserID: "u", Type: BudgetAnnual, Year: 2025}, Limit: MoneyPtr(-1)}, ErrNegativeLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.goal.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
