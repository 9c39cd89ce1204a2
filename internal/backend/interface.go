package backend

import (
	"context"

	"wishbudget/internal/sheets"
)

// Factory creates ledger backends based on configuration
type Factory interface {
	// CreateLedger creates a ledger writer based on the provided config
	CreateLedger(ctx context.Context, config Config) (sheets.LedgerWriter, error)
}

// Config holds configuration for ledger backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of ledger backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// ExportsOutOfProcess reports whether ledgers written to this backend
// outlive the process.
func (bt BackendType) ExportsOutOfProcess() bool {
	return bt == SheetsBackend
}
