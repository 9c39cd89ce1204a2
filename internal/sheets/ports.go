package sheets

import (
	"context"
	"fmt"

	"wishbudget/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter replaces the content of a titled ledger with rows and
	// returns a reference to where it was written.
	LedgerWriter interface {
		WriteLedger(ctx context.Context, title string, rows []core.GiftRecord) (ref string, err error)
	}
)

// LedgerHeader is the first row of every exported ledger.
var LedgerHeader = []string{
	"Date", "Cadeau", "Destinataire", "Thème", "Source", "Liste",
	"Prix annoncé", "Frais de port", "Payé", "Total",
}

// LedgerRow renders one record as ledger cells. Amounts are in euros with
// two decimals and a dot so spreadsheets parse them as numbers.
func LedgerRow(r core.GiftRecord) []string {
	paid := ""
	if r.PaidAmount != nil {
		paid = euros(*r.PaidAmount)
	}
	return []string{
		r.Date.String(),
		r.Title,
		r.RecipientName,
		string(r.Theme),
		string(r.Source),
		r.ListName,
		euros(r.AnnouncedPrice),
		euros(r.ShippingCost),
		paid,
		euros(r.TotalPrice),
	}
}

func euros(m core.Money) string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
