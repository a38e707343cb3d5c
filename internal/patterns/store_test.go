package patterns

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}

func TestLoadLayerBuildsPairTable(t *testing.T) {
	dir := t.TempDir()
	db := writeFile(t, dir, "db.tsv", "A\tACGT\nB\tTTTT\n")
	layerFile := writeFile(t, dir, "layer.tsv", "F\tR\tP\nA\tB\tAB\n")

	layer, err := LoadLayer(db, layerFile, 0.25, 0.25, 1, 3, false, "single")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(layer.Forward["A"]) != "ACGT" || string(layer.Forward["B"]) != "TTTT" {
		t.Fatalf("forward table mismatch: %v", layer.Forward)
	}
	if string(layer.Reverse["B"]) != "AAAA" {
		t.Fatalf("expected reverse complement of TTTT to be AAAA, got %s", layer.Reverse["B"])
	}

	fwd, ok := layer.Pairs["A_B"]
	if !ok || fwd.Orientation != "fs" || fwd.Class != "AB" {
		t.Fatalf("unexpected forward pair entry: %+v ok=%v", fwd, ok)
	}
	rev, ok := layer.Pairs["B_A"]
	if !ok || rev.Orientation != "rs" || rev.Class != "AB" {
		t.Fatalf("unexpected reverse pair entry: %+v ok=%v", rev, ok)
	}

	if len(layer.Names) != 2 || layer.Names[0] != "A" || layer.Names[1] != "B" {
		t.Fatalf("expected deterministic declaration-order names, got %v", layer.Names)
	}
}

func TestLoadLayerPalindromicPair(t *testing.T) {
	dir := t.TempDir()
	db := writeFile(t, dir, "db.tsv", "A\tACGT\n")
	layerFile := writeFile(t, dir, "layer.tsv", "F\tR\tP\nA\tA\tSelf\n")

	layer, err := LoadLayer(db, layerFile, 0.25, 0.25, 1, 3, false, "single")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := layer.Pairs["A_A"]
	if !ok || entry.Orientation != "unknown" {
		t.Fatalf("expected unknown orientation for palindromic pair, got %+v", entry)
	}
	if len(layer.Pairs) != 1 {
		t.Fatalf("expected exactly one pair entry for palindromic pair, got %d", len(layer.Pairs))
	}
}

func TestLoadLayerUnknownMotifIsFatal(t *testing.T) {
	dir := t.TempDir()
	db := writeFile(t, dir, "db.tsv", "A\tACGT\n")
	layerFile := writeFile(t, dir, "layer.tsv", "F\tR\tP\nA\tB\tAB\n")

	_, err := LoadLayer(db, layerFile, 0.25, 0.25, 1, 3, false, "single")
	if err == nil {
		t.Fatalf("expected error for unknown motif reference")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db := writeFile(t, dir, "db.tsv", "A\tACGT\nB\tTTTT\n")

	safePath, err := EncryptDatabase(db)
	if err != nil {
		t.Fatalf("encrypting: %v", err)
	}

	plainRows, err := loadDatabaseRows(db)
	if err != nil {
		t.Fatalf("loading plaintext: %v", err)
	}
	safeRows, err := loadDatabaseRows(safePath)
	if err != nil {
		t.Fatalf("loading decrypted: %v", err)
	}
	if len(plainRows) != len(safeRows) {
		t.Fatalf("row count mismatch: %d vs %d", len(plainRows), len(safeRows))
	}
	for k, v := range plainRows {
		if safeRows[k] != v {
			t.Fatalf("row %q mismatch: %q vs %q", k, v, safeRows[k])
		}
	}
}

func TestNormalizeVectorsRightPads(t *testing.T) {
	p := &LayerParams{
		MatchModes:     []string{"single", "dual"},
		ErrorRates:     [][2]float64{{0.2, 0.2}},
		MaxDistances:   []int{4},
		PositionShifts: []int{3},
	}
	NormalizeVectors(p)

	if len(p.MatchModes) != minVectorLength || p.MatchModes[4] != "dual" {
		t.Fatalf("match modes not padded correctly: %v", p.MatchModes)
	}
	if len(p.MaxDistances) != minVectorLength || p.MaxDistances[4] != 4 {
		t.Fatalf("max distances not padded correctly: %v", p.MaxDistances)
	}
	if len(p.PositionShifts) != minVectorLength || p.PositionShifts[4] != 3 {
		t.Fatalf("position shifts not padded correctly: %v", p.PositionShifts)
	}
	if len(p.ErrorRates) != minVectorLength || p.ErrorRates[4] != [2]float64{0.2, 0.2} {
		t.Fatalf("error rates not padded correctly: %v", p.ErrorRates)
	}
}
