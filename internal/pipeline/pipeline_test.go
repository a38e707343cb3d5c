package pipeline

import (
	"bytes"
	"compress/gzip"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/cherryamme/readchop/internal/config"
	"github.com/cherryamme/readchop/internal/patterns"
)

func writeGzipFastq(t *testing.T, path string, records []Record) {
	t.Helper()
	fid, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer fid.Close()
	gz := gzip.NewWriter(fid)
	defer gz.Close()
	for _, r := range records {
		if err := writeFastqRecord(gz, r.ID, r.Seq, r.Qual); err != nil {
			t.Fatalf("writing record: %v", err)
		}
	}
}

func writeTSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}

func TestPipelineRunProducesOutputsAndStats(t *testing.T) {
	dir := t.TempDir()

	db := writeTSV(t, dir, "db.tsv", "A\tACGTACGT\nB\tTTTTGGGG\n")
	layer := writeTSV(t, dir, "layer.tsv", "F\tR\tP\nA\tB\tBC01\n")

	patternLayer, err := patterns.LoadLayer(db, layer, 0.25, 0.25, 2, 0, false, "")
	if err != nil {
		t.Fatalf("loading layer: %v", err)
	}
	store := &patterns.Store{Layers: []*patterns.PatternLayer{patternLayer}}

	inputPath := filepath.Join(dir, "reads.fastq.gz")
	seq := []byte("ACGTACGT" + "NNNNNNNNNNNNNNNNNNNN" + "CCCCAAAA")
	qual := bytes.Repeat([]byte("I"), len(seq))
	writeGzipFastq(t, inputPath, []Record{{ID: "read1", Seq: seq, Qual: qual}})

	outDir := filepath.Join(dir, "out")
	cfg := &config.Config{
		Inputs:      []string{inputPath},
		OutDir:      outDir,
		Threads:     2,
		MinLength:   5,
		WindowLeft:  30,
		WindowRight: 30,
		WriteType:   "names",
		IDSeparator: "%",
		LogInterval: 1,
	}

	logger := log.New(os.Stderr, "", 0)
	p, err := New(cfg, store, nil, logger)
	if err != nil {
		t.Fatalf("building pipeline: %v", err)
	}
	if err := p.Run(); err != nil {
		t.Fatalf("running pipeline: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "reads_log.gz")); err != nil {
		t.Fatalf("expected diagnostic log to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "total_info.tsv")); err != nil {
		t.Fatalf("expected total_info.tsv to exist: %v", err)
	}

	foundFastq := false
	if err := filepath.Walk(outDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".gz" && info.Name() != "reads_log.gz" {
			foundFastq = true
		}
		return nil
	}); err != nil {
		t.Fatalf("walking output dir: %v", err)
	}
	if !foundFastq {
		t.Fatalf("expected at least one classified output .fq.gz under %s", outDir)
	}
}
