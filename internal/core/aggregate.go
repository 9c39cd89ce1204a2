package core

import (
	"sort"
	"strings"
)

// Stats are the derived figures shown next to a budget total.
type Stats struct {
	Average                Money
	Min                    Money
	Max                    Money
	TotalShipping          Money
	GiftsWithoutPaidAmount int
	BiggestDiscount        Money
}

// RecipientGroup gathers the gifts of one recipient inside a budget.
type RecipientGroup struct {
	RecipientID   string
	RecipientName string
	Gifts         []GiftRecord
	TotalSpent    Money
	GiftCount     int
}

// Summary is the aggregate of one budget for one calendar year.
type Summary struct {
	Year            int
	Scope           Scope
	TotalSpent      Money
	ItemsCount      int
	Stats           Stats
	RecipientGroups []RecipientGroup
}

// Filter keeps the records dated in year that match scope. Year matching is
// by calendar year only.
func Filter(records []GiftRecord, year int, scope Scope) []GiftRecord {
	var out []GiftRecord
	for _, r := range records {
		if r.Date.Year() != year || !scope.Matches(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SumTotals adds up TotalPrice over records.
func SumTotals(records []GiftRecord) Money {
	var total Money
	for _, r := range records {
		total = total.Add(r.TotalPrice)
	}
	return total
}

// Aggregate computes totals, statistics and recipient groups of scope for
// year.
func Aggregate(records []GiftRecord, year int, scope Scope) Summary {
	matched := Filter(records, year, scope)
	total := SumTotals(matched)
	return Summary{
		Year:            year,
		Scope:           scope,
		TotalSpent:      total,
		ItemsCount:      len(matched),
		Stats:           ComputeStats(matched),
		RecipientGroups: GroupByRecipient(matched),
	}
}

// ComputeStats derives average, extremes, shipping, missing prices and the
// biggest discount. Empty input yields zero values.
func ComputeStats(records []GiftRecord) Stats {
	var s Stats
	if len(records) == 0 {
		return s
	}
	total := SumTotals(records)
	n := int64(len(records))
	s.Average = Money{Cents: (total.Cents + n/2) / n}
	s.Min = records[0].TotalPrice
	s.Max = records[0].TotalPrice

	for _, r := range records {
		if r.TotalPrice.Cents < s.Min.Cents {
			s.Min = r.TotalPrice
		}
		if r.TotalPrice.Cents > s.Max.Cents {
			s.Max = r.TotalPrice
		}
		if r.IsInApp() {
			s.TotalShipping = s.TotalShipping.Add(r.ShippingCost)
			if r.PaidAmount == nil {
				s.GiftsWithoutPaidAmount++
			}
		}
		if r.PaidAmount != nil {
			discount := r.AnnouncedPrice.Add(r.ShippingCost).Sub(*r.PaidAmount)
			if discount.Cents > s.BiggestDiscount.Cents {
				s.BiggestDiscount = discount
			}
		}
	}
	s.BiggestDiscount = s.BiggestDiscount.NonNegative()
	return s
}

// GroupByRecipient buckets records per recipient, biggest spend first. Ties
// are ordered by recipient name; gifts inside a group are newest first.
func GroupByRecipient(records []GiftRecord) []RecipientGroup {
	index := make(map[string]int)
	var groups []RecipientGroup
	for _, r := range records {
		i, ok := index[r.RecipientID]
		if !ok {
			i = len(groups)
			index[r.RecipientID] = i
			groups = append(groups, RecipientGroup{
				RecipientID:   r.RecipientID,
				RecipientName: r.RecipientName,
			})
		}
		g := &groups[i]
		g.Gifts = append(g.Gifts, r)
		g.TotalSpent = g.TotalSpent.Add(r.TotalPrice)
		g.GiftCount++
	}
	for i := range groups {
		gifts := groups[i].Gifts
		sort.SliceStable(gifts, func(a, b int) bool {
			return gifts[a].Date.After(gifts[b].Date.Time)
		})
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].TotalSpent.Cents != groups[b].TotalSpent.Cents {
			return groups[a].TotalSpent.Cents > groups[b].TotalSpent.Cents
		}
		return strings.ToLower(groups[a].RecipientName) < strings.ToLower(groups[b].RecipientName)
	})
	return groups
}

// BuildBudgets produces the budget cards of userID for year. Automatic
// budgets appear only when they have at least one gift; their limits come
// from goals when one is stored. Custom goals of that year are always shown.
func BuildBudgets(userID string, records []GiftRecord, year int, goals []BudgetGoal) []BudgetData {
	stored := make(map[BudgetType]BudgetGoal)
	var custom []BudgetGoal
	for _, g := range goals {
		if g.Key.Year != year {
			continue
		}
		if g.Key.Type == BudgetCustom {
			custom = append(custom, g)
			continue
		}
		stored[g.Key.Type] = g
	}

	var out []BudgetData
	for _, t := range AutomaticTypes() {
		goal, ok := stored[t]
		if !ok {
			goal = BudgetGoal{Key: GoalKey{UserID: userID, Type: t, Year: year}}
		}
		data := buildBudget(records, goal)
		if data.ItemsCount == 0 {
			continue
		}
		out = append(out, data)
	}

	sort.SliceStable(custom, func(a, b int) bool {
		return strings.ToLower(custom[a].Key.Name) < strings.ToLower(custom[b].Key.Name)
	})
	for _, g := range custom {
		out = append(out, buildBudget(records, g))
	}
	return out
}

// StoredBudgets evaluates every stored goal of year, including automatic
// budgets that have no gift left. Alerting works from these rather than from
// the presentation cards.
func StoredBudgets(records []GiftRecord, year int, goals []BudgetGoal) []BudgetData {
	var out []BudgetData
	for _, g := range goals {
		if g.Key.Year != year {
			continue
		}
		out = append(out, buildBudget(records, g))
	}
	return out
}

func buildBudget(records []GiftRecord, goal BudgetGoal) BudgetData {
	matched := Filter(records, goal.Key.Year, goal.Scope())
	spent := SumTotals(matched)
	return BudgetData{
		Goal:       goal,
		Spent:      spent,
		Progress:   ComputeProgress(spent, goal.Limit),
		Threshold:  ComputeThreshold(spent, goal.Limit),
		ItemsCount: len(matched),
		Remaining:  ComputeRemaining(spent, goal.Limit),
	}
}

// YearsWithGifts lists the calendar years present in records, newest first.
func YearsWithGifts(records []GiftRecord) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		y := r.Date.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
