package core

// WarningCutoffPercent is where a budget starts to be "in trouble". This is
// coarser than the display thresholds on purpose.
const WarningCutoffPercent = 90

// ImbalanceFactor is how many times the smallest recipient total the largest
// one must exceed before the spread is reported.
const ImbalanceFactor = 2

// BudgetStatus is the "are we in trouble" signal of a budget.
type BudgetStatus string

const (
	StatusSafe     BudgetStatus = "safe"
	StatusWarning  BudgetStatus = "warning"
	StatusExceeded BudgetStatus = "exceeded"
)

// Imbalance compares the best and least served recipients.
type Imbalance struct {
	TopRecipientID      string
	TopRecipientName    string
	TopSpent            Money
	BottomRecipientID   string
	BottomRecipientName string
	BottomSpent         Money
	Difference          Money
}

// Insights are the observations shown under a budget detail.
type Insights struct {
	BudgetStatus       BudgetStatus
	Imbalance          *Imbalance
	MissingPricesCount int
}

// ComputeBudgetStatus is safe without a limit or below 90% of it, warning
// from 90% up to the limit, and exceeded once spent reaches the limit.
func ComputeBudgetStatus(spent Money, limit *Money) BudgetStatus {
	if !hasLimit(limit) {
		return StatusSafe
	}
	if spent.Cents >= limit.Cents {
		return StatusExceeded
	}
	if percentOf(spent, *limit) >= WarningCutoffPercent {
		return StatusWarning
	}
	return StatusSafe
}

// DetectImbalance reports the spread between the first and last group when
// the first is more than ImbalanceFactor times the last. groups must be
// sorted by spend, descending. The rule is relative only: 4€ against 1€
// triggers like 4000€ against 1000€.
func DetectImbalance(groups []RecipientGroup) *Imbalance {
	if len(groups) < 2 {
		return nil
	}
	top := groups[0]
	bottom := groups[len(groups)-1]
	if top.TotalSpent.Cents <= ImbalanceFactor*bottom.TotalSpent.Cents {
		return nil
	}
	return &Imbalance{
		TopRecipientID:      top.RecipientID,
		TopRecipientName:    top.RecipientName,
		TopSpent:            top.TotalSpent,
		BottomRecipientID:   bottom.RecipientID,
		BottomRecipientName: bottom.RecipientName,
		BottomSpent:         bottom.TotalSpent,
		Difference:          top.TotalSpent.Sub(bottom.TotalSpent),
	}
}

// GenerateInsights derives the observations of a budget detail view.
func GenerateInsights(groups []RecipientGroup, stats Stats, spent Money, limit *Money) Insights {
	return Insights{
		BudgetStatus:       ComputeBudgetStatus(spent, limit),
		Imbalance:          DetectImbalance(groups),
		MissingPricesCount: stats.GiftsWithoutPaidAmount,
	}
}
