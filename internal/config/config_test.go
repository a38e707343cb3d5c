package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestParseFlagsAppliesDefaultsAndOverrides(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseFlags(fs, []string{"-inputs", "a.fastq.gz b.fastq.gz", "-outdir", "out", "-db", "db.tsv", "-pattern_files", "layer1.tsv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %v", cfg.Inputs)
	}
	if cfg.OutDir != "out" {
		t.Fatalf("expected outdir override, got %q", cfg.OutDir)
	}
	if cfg.WindowLeft != 400 || cfg.WindowRight != 400 {
		t.Fatalf("expected default window sizes, got %d,%d", cfg.WindowLeft, cfg.WindowRight)
	}
}

func TestParseFlagsRejectsInvalidErrorRate(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := ParseFlags(fs, []string{"-e", "0.9,0.1"})
	if err == nil {
		t.Fatalf("expected error for out-of-range error rate")
	}
}

func TestValidateRequiresInputsAndDB(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for empty config")
	}
	cfg.Inputs = []string{"a.fastq.gz"}
	cfg.PatternFiles = []string{"layer.tsv"}
	cfg.PatternDB = "db.tsv"
	cfg.WindowLeft, cfg.WindowRight = 400, 400
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestSaveAndReadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Inputs: []string{"a.fastq.gz"}, OutDir: "out", Threads: 8}
	path := filepath.Join(dir, "config.json")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("saving config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}
	loaded := ReadConfig(path)
	if loaded.OutDir != "out" || loaded.Threads != 8 {
		t.Fatalf("round-tripped config mismatch: %+v", loaded)
	}
}
