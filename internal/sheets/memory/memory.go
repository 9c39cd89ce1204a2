package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"wishbudget/internal/core"
	ports "wishbudget/internal/sheets"
)

// Store keeps written ledgers in memory, keyed by title.
type Store struct {
	mu      sync.Mutex
	ledgers map[string][][]string
	writes  int
}

var _ ports.LedgerWriter = (*Store)(nil)

func New() *Store {
	return &Store{ledgers: make(map[string][][]string)}
}

// WriteLedger replaces the ledger named title and returns a synthetic
// reference.
func (s *Store) WriteLedger(_ context.Context, title string, rows []core.GiftRecord) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("empty ledger title")
	}

	out := make([][]string, 0, len(rows)+1)
	out = append(out, append([]string(nil), ports.LedgerHeader...))
	for _, r := range rows {
		out = append(out, ports.LedgerRow(r))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[title] = out
	s.writes++
	return fmt.Sprintf("mem:%s:%d", title, s.writes), nil
}

// Ledger returns a copy of the ledger named title, header included.
func (s *Store) Ledger(title string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.ledgers[title]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, true
}

// Titles lists the ledgers written so far.
func (s *Store) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.ledgers))
	for t := range s.ledgers {
		titles = append(titles, t)
	}
	return titles
}
