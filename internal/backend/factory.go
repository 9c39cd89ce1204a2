package backend

import (
	"context"
	"fmt"
	"log/slog"

	"wishbudget/internal/sheets"
	gsheet "wishbudget/internal/sheets/google"
	"wishbudget/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateLedger implements Factory.CreateLedger
func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (sheets.LedgerWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsLedger(ctx, config)
	case MemoryBackend:
		f.logger.Info("Initialized memory ledger backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsLedger(ctx context.Context, config Config) (sheets.LedgerWriter, error) {
	client, err := gsheet.New(ctx, config.GoogleSpreadsheetID, gsheet.Credentials{
		JSON: config.GoogleServiceAccountJSON,
		File: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets ledger backend",
		"spreadsheet_id", config.GoogleSpreadsheetID)
	return client, nil
}
