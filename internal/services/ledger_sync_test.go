package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeExporter struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]int
	onCall  func()
}

func (e *fakeExporter) ExportLedger(_ context.Context, userID string, year int) (string, error) {
	e.mu.Lock()
	id := fmt.Sprintf("%s/%d", userID, year)
	e.calls = append(e.calls, id)
	fail := e.failFor[id] > 0
	if fail {
		e.failFor[id]--
	}
	hook := e.onCall
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	if fail {
		return "", errors.New("sheets unavailable")
	}
	return "ref:" + id, nil
}

func (e *fakeExporter) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func TestLedgerSyncDebounces(t *testing.T) {
	exp := &fakeExporter{}
	p := NewLedgerSyncProcessor(exp, LedgerSyncConfig{})

	p.Enqueue("alice", 2025)
	p.Enqueue("alice", 2025)
	p.Enqueue("alice", 2025)
	p.Enqueue("bob", 2025)

	if p.Pending() != 2 {
		t.Fatalf("expected 2 pending ledgers, got %d", p.Pending())
	}
	if n := p.ProcessBatch(context.Background()); n != 2 {
		t.Fatalf("expected 2 exports, got %d", n)
	}
	if exp.callCount() != 2 {
		t.Errorf("repeated changes should cost one export, got %d calls", exp.callCount())
	}
	if p.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", p.Pending())
	}
}

func TestLedgerSyncBatchSize(t *testing.T) {
	exp := &fakeExporter{}
	p := NewLedgerSyncProcessor(exp, LedgerSyncConfig{BatchSize: 2})

	for year := 2021; year <= 2025; year++ {
		p.Enqueue("alice", year)
	}
	if n := p.ProcessBatch(context.Background()); n != 2 {
		t.Fatalf("expected 2 exports, got %d", n)
	}
	if p.Pending() != 3 {
		t.Fatalf("expected 3 left, got %d", p.Pending())
	}
}

func TestLedgerSyncRetriesThenDrops(t *testing.T) {
	exp := &fakeExporter{failFor: map[string]int{"alice/2025": 10}}
	p := NewLedgerSyncProcessor(exp, LedgerSyncConfig{MaxRetries: 3})
	ctx := context.Background()

	p.Enqueue("alice", 2025)
	for i := 0; i < 2; i++ {
		p.ProcessBatch(ctx)
		if p.Pending() != 1 {
			t.Fatalf("attempt %d: ledger should stay pending", i+1)
		}
	}
	p.ProcessBatch(ctx)
	if p.Pending() != 0 {
		t.Fatal("ledger should be dropped after max retries")
	}
	if exp.callCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", exp.callCount())
	}
}

func TestLedgerSyncRecoversAfterFailure(t *testing.T) {
	exp := &fakeExporter{failFor: map[string]int{"alice/2025": 1}}
	p := NewLedgerSyncProcessor(exp, LedgerSyncConfig{})
	ctx := context.Background()

	p.Enqueue("alice", 2025)
	if n := p.ProcessBatch(ctx); n != 0 {
		t.Fatalf("first export should fail, got %d", n)
	}
	if n := p.ProcessBatch(ctx); n != 1 {
		t.Fatalf("second export should succeed, got %d", n)
	}
	if p.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", p.Pending())
	}
}

func TestLedgerSyncChangeDuringExportRearms(t *testing.T) {
	exp := &fakeExporter{}
	p := NewLedgerSyncProcessor(exp, LedgerSyncConfig{})
	exp.onCall = func() {
		exp.onCall = nil
		p.Enqueue("alice", 2025)
	}

	p.Enqueue("alice", 2025)
	if n := p.ProcessBatch(context.Background()); n != 1 {
		t.Fatalf("expected 1 export, got %d", n)
	}
	if p.Pending() != 1 {
		t.Fatal("a change during the export should keep the ledger pending")
	}
	p.ProcessBatch(context.Background())
	if p.Pending() != 0 {
		t.Fatal("expected the re-armed ledger to be exported")
	}
}

func TestLedgerSyncStartStop(t *testing.T) {
	exp := &fakeExporter{}
	p := NewLedgerSyncProcessor(exp, LedgerSyncConfig{PollInterval: 5 * time.Millisecond})
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if !p.IsRunning() {
		t.Error("processor should report running")
	}

	p.Enqueue("alice", 2025)
	deadline := time.Now().Add(time.Second)
	for p.Pending() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.Pending() != 0 {
		t.Error("ledger should have been exported by the loop")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should be stopped")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
}

func TestLedgerSyncConcurrentStop(t *testing.T) {
	p := NewLedgerSyncProcessor(&fakeExporter{}, LedgerSyncConfig{PollInterval: 5 * time.Millisecond})
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.Stop(stopCtx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Stop: %v", err)
		}
	}
	if p.IsRunning() {
		t.Error("processor should be stopped")
	}

	if err := p.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop after restart: %v", err)
	}
}
