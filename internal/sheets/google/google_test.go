package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"wishbudget/internal/core"

	goption "google.golang.org/api/option"
)

// fakeSheets answers the handful of Sheets API calls WriteLedger makes.
type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	calls   []string
	written [][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id", "sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		json.Unmarshal(body, &req)
		for _, rq := range req.Requests {
			f.titles = append(f.titles, rq.AddSheet.Properties.Title)
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		var vr struct {
			Values [][]interface{} `json:"values"`
		}
		json.Unmarshal(body, &vr)
		f.written = vr.Values
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newFakeClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), "sheet-id",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c
}

func TestWriteLedger_CreatesSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	c := newFakeClient(t, fake)

	rows := []core.GiftRecord{{
		Date:           core.NewDate(2025, 5, 2),
		Title:          "Livre",
		RecipientName:  "Marc",
		Theme:          core.ThemeBirthday,
		Source:         core.SourceExternal,
		AnnouncedPrice: core.Cents(1500),
		TotalPrice:     core.Cents(1500),
	}}

	ref, err := c.WriteLedger(context.Background(), "2025 Cadeaux - alice", rows)
	if err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}
	if ref != "2025 Cadeaux - alice!A1:J2" {
		t.Fatalf("unexpected ref %q", ref)
	}

	want := []string{"get", "add", "clear", "update"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", fake.calls, want)
	}
	if len(fake.written) != 2 || fake.written[1][1] != "Livre" {
		t.Fatalf("unexpected written values %v", fake.written)
	}
}

func TestWriteLedger_ReusesExistingSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"2025 Cadeaux - alice"}}
	c := newFakeClient(t, fake)

	if _, err := c.WriteLedger(context.Background(), "2025 Cadeaux - alice", nil); err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}
	for _, call := range fake.calls {
		if call == "add" {
			t.Fatalf("existing sheet must not be recreated: %v", fake.calls)
		}
	}
	if len(fake.written) != 1 {
		t.Fatalf("expected only the header row, got %v", fake.written)
	}
}

func TestWriteLedger_Errors(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if _, err := c.WriteLedger(context.Background(), "t", nil); err == nil {
		t.Fatal("expected error without service")
	}

	fake := &fakeSheets{}
	c = newFakeClient(t, fake)
	if _, err := c.WriteLedger(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestNew_MissingConfiguration(t *testing.T) {
	if _, err := New(context.Background(), "", Credentials{}); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := New(context.Background(), "id", Credentials{}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	if _, err := New(context.Background(), "id", Credentials{JSON: "not-json"}); err == nil {
		t.Fatal("expected error for invalid credentials JSON")
	}
	if _, err := New(context.Background(), "id", Credentials{File: "/does/not/exist.json"}); err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}
