package google

import (
	"fmt"
	"strings"

	"wishbudget/internal/core"
	ports "wishbudget/internal/sheets"
)

// ledgerValues converts records into the values matrix sent to the Sheets
// API: the header row followed by one row per record.
func ledgerValues(rows []core.GiftRecord) [][]interface{} {
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toInterfaces(ports.LedgerHeader))
	for _, r := range rows {
		values = append(values, toInterfaces(ports.LedgerRow(r)))
	}
	return values
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// sheetRange quotes a tab title for A1 notation. An empty cell selects the
// whole tab.
func sheetRange(title, cell string) string {
	quoted := "'" + strings.ReplaceAll(title, "'", "''") + "'"
	if cell == "" {
		return quoted
	}
	return quoted + "!" + cell
}

// lastColumn is the letter of the last ledger column.
func lastColumn() string {
	return columnName(len(ports.LedgerHeader))
}

// columnName converts a 1-based column index to its letters (1 -> A, 27 -> AA).
func columnName(n int) string {
	if n <= 0 {
		panic(fmt.Sprintf("invalid column %d", n))
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
