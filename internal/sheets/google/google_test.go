package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"ledger/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets records the calls made against the values endpoints.
type fakeSheets struct {
	mu       sync.Mutex
	appended [][]any
	header   [][]any
	query    map[string]string
	paths    []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	if f.query == nil {
		f.query = map[string]string{}
	}
	for k := range r.URL.Query() {
		f.query[k] = r.URL.Query().Get(k)
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		start := len(f.appended) + 2
		f.appended = append(f.appended, vr.Values...)
		json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{
				UpdatedRange: "Journal!A" + strconv.Itoa(start) + ":H" + strconv.Itoa(len(f.appended)+1),
				UpdatedRows:  int64(len(vr.Values)),
			},
		})
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(gsheet.ValueRange{Values: f.header})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.header = vr.Values
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRows: 1})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return newClient(svc, Config{SpreadsheetID: "sheet-123", Location: time.UTC})
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := newSheetsService(context.Background(), "", "")
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	_, err := newSheetsService(context.Background(), "", filepath.Join(t.TempDir(), "absent.json"))
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestNewSheetsService_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte("not-json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := newSheetsService(context.Background(), "", path); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: " id "})
	if c.journalSheet != "Journal" {
		t.Errorf("journalSheet = %q, want Journal", c.journalSheet)
	}
	if c.spreadsheetID != "id" {
		t.Errorf("spreadsheetID = %q, want trimmed id", c.spreadsheetID)
	}
	if c.loc != time.UTC {
		t.Errorf("loc = %v, want UTC", c.loc)
	}
}

func TestAppendEntries(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	occurred := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	entries := []core.JournalEntry{
		{
			OccurredAt:    occurred,
			Kind:          "transfer.created",
			TransactionID: 7,
			Timestamp:     occurred,
			Account:       "Checking",
			Description:   "transfer to Savings",
			Amount:        core.Money{Cents: -5000},
		},
		{
			OccurredAt:    occurred,
			Kind:          "transfer.created",
			TransactionID: 8,
			Timestamp:     occurred,
			Account:       "Savings",
			Description:   "transfer from Checking",
			Amount:        core.Money{Cents: 5000},
		},
	}

	ref, err := c.AppendEntries(context.Background(), entries)
	if err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}
	if ref != "Journal!A2:H3" {
		t.Errorf("ref = %q, want Journal!A2:H3", ref)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.appended) != 2 {
		t.Fatalf("appended %d rows, want 2", len(fake.appended))
	}
	row := fake.appended[0]
	if len(row) != 8 {
		t.Fatalf("row has %d columns, want 8", len(row))
	}
	if row[2] != "7" || row[4] != "Checking" || row[6] != "-50.00" {
		t.Errorf("unexpected row %v", row)
	}
	if fake.query["valueInputOption"] != "USER_ENTERED" {
		t.Errorf("valueInputOption = %q, want USER_ENTERED", fake.query["valueInputOption"])
	}
	if fake.query["insertDataOption"] != "INSERT_ROWS" {
		t.Errorf("insertDataOption = %q, want INSERT_ROWS", fake.query["insertDataOption"])
	}
}

func TestAppendEntries_Empty(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: "id"})
	ref, err := c.AppendEntries(context.Background(), nil)
	if err != nil || ref != "" {
		t.Errorf("AppendEntries(nil) = %q, %v; want empty, nil", ref, err)
	}
}

func TestAppendEntries_NoService(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: "id"})
	_, err := c.AppendEntries(context.Background(), []core.JournalEntry{{TransactionID: 1}})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
}

func TestEnsureHeader(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	fake.mu.Lock()
	if len(fake.header) != 1 || len(fake.header[0]) != 8 || fake.header[0][0] != "Occurred at" {
		t.Errorf("header = %v", fake.header)
	}
	calls := len(fake.paths)
	fake.mu.Unlock()

	// A second call only reads.
	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if got := len(fake.paths) - calls; got != 1 {
		t.Errorf("second EnsureHeader made %d calls, want 1", got)
	}
}
