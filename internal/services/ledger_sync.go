package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// LedgerExporter writes the ledger of one user and year.
type LedgerExporter interface {
	ExportLedger(ctx context.Context, userID string, year int) (string, error)
}

// LedgerSyncConfig holds configuration for the ledger sync processor.
type LedgerSyncConfig struct {
	// PollInterval is how often pending ledgers are exported (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of ledgers exported per cycle (default: 10)
	BatchSize int

	// MaxRetries is how many failed exports are tolerated before a ledger
	// is dropped until its next change (default: 3)
	MaxRetries int
}

func DefaultLedgerSyncConfig() LedgerSyncConfig {
	return LedgerSyncConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

type ledgerKey struct {
	UserID string
	Year   int
}

type pendingLedger struct {
	key      ledgerKey
	attempts int
	gen      int
	since    time.Time
}

// LedgerSyncProcessor debounces budget changes into periodic ledger
// exports: many changes to the same user and year between two polls cost
// a single export.
type LedgerSyncProcessor struct {
	exporter LedgerExporter
	config   LedgerSyncConfig

	mu      sync.Mutex
	pending map[ledgerKey]*pendingLedger
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewLedgerSyncProcessor(exporter LedgerExporter, config LedgerSyncConfig) *LedgerSyncProcessor {
	def := DefaultLedgerSyncConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	return &LedgerSyncProcessor{
		exporter: exporter,
		config:   config,
		pending:  make(map[ledgerKey]*pendingLedger),
	}
}

// Enqueue marks the ledger of userID for year as stale. A new change resets
// the retry budget.
func (p *LedgerSyncProcessor) Enqueue(userID string, year int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := ledgerKey{UserID: userID, Year: year}
	if item, ok := p.pending[key]; ok {
		item.attempts = 0
		item.gen++
		return
	}
	p.pending[key] = &pendingLedger{key: key, since: time.Now()}
}

// Pending returns how many ledgers wait for export.
func (p *LedgerSyncProcessor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Start begins the export loop. Returns an error if already running.
func (p *LedgerSyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("ledger sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Ledger sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it to exit.
func (p *LedgerSyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stop, done := p.stopCh, p.doneCh
	close(stop)
	p.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Ledger sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Ledger sync processor stop timed out")
		return ctx.Err()
	}
	return nil
}

func (p *LedgerSyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *LedgerSyncProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch exports up to BatchSize pending ledgers, oldest first, and
// returns how many succeeded.
func (p *LedgerSyncProcessor) ProcessBatch(ctx context.Context) int {
	batch := p.nextBatch()
	if len(batch) == 0 {
		return 0
	}
	slog.DebugContext(ctx, "Exporting ledger batch", "count", len(batch))

	var done int
	for _, item := range batch {
		if ctx.Err() != nil {
			return done
		}
		ref, err := p.exporter.ExportLedger(ctx, item.key.UserID, item.key.Year)
		if err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		p.handleSuccess(item)
		done++
		slog.InfoContext(ctx, "Ledger synced",
			"user_id", item.key.UserID,
			"year", item.key.Year,
			"ref", ref)
	}
	return done
}

func (p *LedgerSyncProcessor) nextBatch() []pendingLedger {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := make([]pendingLedger, 0, len(p.pending))
	for _, item := range p.pending {
		items = append(items, *item)
	}
	sort.Slice(items, func(a, b int) bool {
		if !items[a].since.Equal(items[b].since) {
			return items[a].since.Before(items[b].since)
		}
		if items[a].key.UserID != items[b].key.UserID {
			return items[a].key.UserID < items[b].key.UserID
		}
		return items[a].key.Year < items[b].key.Year
	})
	if len(items) > p.config.BatchSize {
		items = items[:p.config.BatchSize]
	}
	return items
}

func (p *LedgerSyncProcessor) handleSuccess(item pendingLedger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// A change that arrived during the export re-armed the entry.
	if cur, ok := p.pending[item.key]; ok && cur.gen == item.gen {
		delete(p.pending, item.key)
	}
}

func (p *LedgerSyncProcessor) handleFailure(ctx context.Context, item pendingLedger, exportErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, ok := p.pending[item.key]
	if !ok {
		return
	}
	cur.attempts++
	slog.WarnContext(ctx, "Ledger export failed",
		"user_id", item.key.UserID,
		"year", item.key.Year,
		"attempt", cur.attempts,
		"error", exportErr)

	if cur.attempts >= p.config.MaxRetries {
		delete(p.pending, item.key)
		slog.ErrorContext(ctx, "Ledger export dropped after max retries",
			"user_id", item.key.UserID,
			"year", item.key.Year,
			"attempts", cur.attempts)
	}
}
