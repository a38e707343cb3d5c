package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProcessReadAccumulatesCounters(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	m.ProcessRead("valid", []string{"P1", "I1", "B1"}, []string{"primer", "index", "barcode"}, []byte("ACGTACGT"), []byte("ACGT"))
	m.ProcessRead("filtered", nil, nil, []byte("AC"), nil)

	if m.totalReads != 2 {
		t.Fatalf("expected 2 total reads, got %d", m.totalReads)
	}
	if m.validReads != 1 {
		t.Fatalf("expected 1 valid read, got %d", m.validReads)
	}
	if m.counters["filtered"] != 1 {
		t.Fatalf("expected 1 filtered read, got %d", m.counters["filtered"])
	}
	if m.validNameCounters["B1"]["I1"]["P1"] != 1 {
		t.Fatalf("expected detailed name counter to be updated, got %+v", m.validNameCounters)
	}
}

func TestWriteTotalStatistics(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)
	m.ProcessRead("valid", []string{"P1", "I1", "B1"}, []string{"p", "i", "b"}, []byte("GGGGCCCC"), []byte("GGGGCCCC"))

	if err := m.WriteTotalStatistics(); err != nil {
		t.Fatalf("writing total statistics: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "total_info.tsv"))
	if err != nil {
		t.Fatalf("reading total_info.tsv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "total\ttotal_bases") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
}

func TestWriteValidStatisticsCreatesPerBarcodeFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)
	m.ProcessRead("valid", []string{"P1", "I1", "B1"}, []string{"p", "i", "b"}, []byte("ACGT"), []byte("ACGT"))

	if err := m.WriteValidStatistics(); err != nil {
		t.Fatalf("writing valid statistics: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "B1_validname.tsv")); err != nil {
		t.Fatalf("expected B1_validname.tsv to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b_validtype.tsv")); err != nil {
		t.Fatalf("expected b_validtype.tsv to exist: %v", err)
	}
}
