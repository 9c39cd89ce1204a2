package http

import (
	"wishbudget/internal/core"
	"wishbudget/internal/services"
)

// moneyView carries an amount both raw and formatted for the request locale.
type moneyView struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

type budgetView struct {
	Type          core.BudgetType `json:"type"`
	Name          string          `json:"name,omitempty"`
	Year          int             `json:"year"`
	RecipientID   string          `json:"recipient_id,omitempty"`
	ListSlug      string          `json:"list_slug,omitempty"`
	Limit         *moneyView      `json:"limit"`
	Spent         moneyView       `json:"spent"`
	Remaining     *moneyView      `json:"remaining"`
	Progress      int             `json:"progress"`
	ProgressLabel string          `json:"progress_label"`
	Threshold     core.Threshold  `json:"threshold"`
	ItemsCount    int             `json:"items_count"`
}

type overviewView struct {
	UserID  string       `json:"user_id"`
	Year    int          `json:"year"`
	Years   []int        `json:"years"`
	Budgets []budgetView `json:"budgets"`
}

type giftView struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	RecipientID    string      `json:"recipient_id"`
	RecipientName  string      `json:"recipient_name"`
	AnnouncedPrice moneyView   `json:"announced_price"`
	PaidAmount     *moneyView  `json:"paid_amount"`
	ShippingCost   moneyView   `json:"shipping_cost"`
	TotalPrice     moneyView   `json:"total_price"`
	Date           string      `json:"date"`
	DateLabel      string      `json:"date_label"`
	Source         core.Source `json:"source"`
	ListName       string      `json:"list_name,omitempty"`
	ListSlug       string      `json:"list_slug,omitempty"`
	Theme          core.Theme  `json:"theme"`
}

type statsView struct {
	Average                moneyView `json:"average"`
	Min                    moneyView `json:"min"`
	Max                    moneyView `json:"max"`
	TotalShipping          moneyView `json:"total_shipping"`
	GiftsWithoutPaidAmount int       `json:"gifts_without_paid_amount"`
	BiggestDiscount        moneyView `json:"biggest_discount"`
}

type recipientGroupView struct {
	RecipientID   string     `json:"recipient_id"`
	RecipientName string     `json:"recipient_name"`
	TotalSpent    moneyView  `json:"total_spent"`
	GiftCount     int        `json:"gift_count"`
	Gifts         []giftView `json:"gifts"`
}

type imbalanceView struct {
	TopRecipientID      string    `json:"top_recipient_id"`
	TopRecipientName    string    `json:"top_recipient_name"`
	TopSpent            moneyView `json:"top_spent"`
	BottomRecipientID   string    `json:"bottom_recipient_id"`
	BottomRecipientName string    `json:"bottom_recipient_name"`
	BottomSpent         moneyView `json:"bottom_spent"`
	Difference          moneyView `json:"difference"`
}

type insightsView struct {
	BudgetStatus       core.BudgetStatus `json:"budget_status"`
	Imbalance          *imbalanceView    `json:"imbalance"`
	MissingPricesCount int               `json:"missing_prices_count"`
}

type detailView struct {
	Budget          budgetView           `json:"budget"`
	TotalSpent      moneyView            `json:"total_spent"`
	ItemsCount      int                  `json:"items_count"`
	Stats           statsView            `json:"stats"`
	RecipientGroups []recipientGroupView `json:"recipient_groups"`
	Insights        insightsView         `json:"insights"`
}

// presenter renders domain values for one locale.
type presenter struct {
	locale string
}

func (p presenter) money(m core.Money) moneyView {
	return moneyView{Cents: m.Cents, Formatted: core.FormatPrice(m, p.locale)}
}

func (p presenter) optionalMoney(m *core.Money) *moneyView {
	if m == nil {
		return nil
	}
	v := p.money(*m)
	return &v
}

func (p presenter) budget(b core.BudgetData) budgetView {
	return budgetView{
		Type:          b.Goal.Key.Type,
		Name:          b.Goal.Key.Name,
		Year:          b.Goal.Key.Year,
		RecipientID:   b.Goal.RecipientID,
		ListSlug:      b.Goal.ListSlug,
		Limit:         p.optionalMoney(b.Goal.Limit),
		Spent:         p.money(b.Spent),
		Remaining:     p.optionalMoney(b.Remaining),
		Progress:      b.Progress,
		ProgressLabel: core.FormatPercent(b.Progress),
		Threshold:     b.Threshold,
		ItemsCount:    b.ItemsCount,
	}
}

func (p presenter) overview(o services.Overview) overviewView {
	v := overviewView{
		UserID:  o.UserID,
		Year:    o.Year,
		Years:   o.Years,
		Budgets: make([]budgetView, 0, len(o.Budgets)),
	}
	if v.Years == nil {
		v.Years = []int{}
	}
	for _, b := range o.Budgets {
		v.Budgets = append(v.Budgets, p.budget(b))
	}
	return v
}

func (p presenter) gift(g core.GiftRecord) giftView {
	return giftView{
		ID:             g.ID,
		Title:          g.Title,
		RecipientID:    g.RecipientID,
		RecipientName:  g.RecipientName,
		AnnouncedPrice: p.money(g.AnnouncedPrice),
		PaidAmount:     p.optionalMoney(g.PaidAmount),
		ShippingCost:   p.money(g.ShippingCost),
		TotalPrice:     p.money(g.TotalPrice),
		Date:           g.Date.String(),
		DateLabel:      core.FormatShortDate(g.Date, p.locale),
		Source:         g.Source,
		ListName:       g.ListName,
		ListSlug:       g.ListSlug,
		Theme:          g.Theme,
	}
}

func (p presenter) detail(d services.Detail) detailView {
	s := d.Summary.Stats
	v := detailView{
		Budget:     p.budget(d.Budget),
		TotalSpent: p.money(d.Summary.TotalSpent),
		ItemsCount: d.Summary.ItemsCount,
		Stats: statsView{
			Average:                p.money(s.Average),
			Min:                    p.money(s.Min),
			Max:                    p.money(s.Max),
			TotalShipping:          p.money(s.TotalShipping),
			GiftsWithoutPaidAmount: s.GiftsWithoutPaidAmount,
			BiggestDiscount:        p.money(s.BiggestDiscount),
		},
		RecipientGroups: make([]recipientGroupView, 0, len(d.Summary.RecipientGroups)),
		Insights: insightsView{
			BudgetStatus:       d.Insights.BudgetStatus,
			MissingPricesCount: d.Insights.MissingPricesCount,
		},
	}

	for _, g := range d.Summary.RecipientGroups {
		group := recipientGroupView{
			RecipientID:   g.RecipientID,
			RecipientName: g.RecipientName,
			TotalSpent:    p.money(g.TotalSpent),
			GiftCount:     g.GiftCount,
			Gifts:         make([]giftView, 0, len(g.Gifts)),
		}
		for _, gift := range g.Gifts {
			group.Gifts = append(group.Gifts, p.gift(gift))
		}
		v.RecipientGroups = append(v.RecipientGroups, group)
	}

	if im := d.Insights.Imbalance; im != nil {
		v.Insights.Imbalance = &imbalanceView{
			TopRecipientID:      im.TopRecipientID,
			TopRecipientName:    im.TopRecipientName,
			TopSpent:            p.money(im.TopSpent),
			BottomRecipientID:   im.BottomRecipientID,
			BottomRecipientName: im.BottomRecipientName,
			BottomSpent:         p.money(im.BottomSpent),
			Difference:          p.money(im.Difference),
		}
	}
	return v
}
