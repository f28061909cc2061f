package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/minileague/league-engine/internal/model"
)

var columns = []string{"Date", "Track", "Hans", "Rich", "Ralls"}

func sampleRows() []model.Row {
	return []model.Row{
		{"Date": "2024-01-01", "Track": "PARX", "Hans": "40", "Rich": "-40", "Ralls": "0"},
		{"Date": "2024-01-02", "Track": "TP", "Hans": "-40", "Rich": "-40", "Ralls": "80"},
		{"Date": "2024-01-02", "Track": "GP, Turf", "Hans": "0", "Rich": "25", "Ralls": "-25"},
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rows, err := s.LoadRows(ctx)
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected empty store, got %v, %v", rows, err)
	}

	if err := s.SaveRows(ctx, sampleRows()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadRows(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, sampleRows()) {
		t.Errorf("round trip mismatch: %v", got)
	}
}

func TestMemoryStore_CopiesRows(t *testing.T) {
	ctx := context.Background()
	in := sampleRows()
	s := NewMemoryStore(in...)

	in[0]["Hans"] = "999"
	got, _ := s.LoadRows(ctx)
	if got[0]["Hans"] != "40" {
		t.Errorf("store shares maps with caller: %q", got[0]["Hans"])
	}

	got[1]["Rich"] = "999"
	again, _ := s.LoadRows(ctx)
	if again[1]["Rich"] != "-40" {
		t.Errorf("loaded rows alias stored rows: %q", again[1]["Rich"])
	}
}

func TestMemoryStore_SaveReplacesTable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(sampleRows()...)

	if err := s.SaveRows(ctx, sampleRows()[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := s.LoadRows(ctx)
	if len(got) != 1 {
		t.Errorf("expected table rewritten to 1 row, got %d", len(got))
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	s := NewFileStore(path, columns)

	rows, err := s.LoadRows(ctx)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}

	if err := s.SaveRows(ctx, sampleRows()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadRows(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, sampleRows()) {
		t.Errorf("round trip mismatch:\n got  %v\n want %v", got, sampleRows())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.HasPrefix(string(data), "Date,Track,Hans,Rich,Ralls\n") {
		t.Errorf("unexpected header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestFileStore_ExtraColumnsKept(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	s := NewFileStore(path, columns)

	rows := sampleRows()
	for _, r := range rows {
		r["JK"] = "0"
	}
	if err := s.SaveRows(ctx, rows); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadRows(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got[0]["JK"] != "0" {
		t.Errorf("expected extra column preserved, got %v", got[0])
	}
}

func TestFileStore_ShortRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	content := "Date,Track,Hans,Rich\n2024-01-01,PARX,40\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := NewFileStore(path, columns).LoadRows(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0]["Hans"] != "40" {
		t.Fatalf("unexpected rows: %v", got)
	}
	if _, ok := got[0]["Rich"]; ok {
		t.Errorf("missing cell should be absent, got %q", got[0]["Rich"])
	}
}

type rowsStub struct {
	data [][]string
	i    int
}

func (r *rowsStub) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

func (r *rowsStub) Scan(dest ...interface{}) error {
	for i, v := range r.data[r.i-1] {
		*(dest[i].(*string)) = v
	}
	return nil
}

func (r *rowsStub) Err() error { return nil }

func TestScanContestRows(t *testing.T) {
	stub := &rowsStub{data: [][]string{
		{"2024-01-01", "PARX", `{"Hans":"40","Rich":"-40"}`},
		{"", "TP", `{}`},
	}}
	got, err := scanContestRows(stub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.Row{
		{"Date": "2024-01-01", "Track": "PARX", "Hans": "40", "Rich": "-40"},
		{"Date": "", "Track": "TP"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
