// Command readchop demultiplexes long-read sequencing data by searching
// near read ends for adapter, barcode, and primer motifs, trimming and
// classifying each read, and writing per-class gzip FASTQ outputs plus
// run diagnostics.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/profile"

	"github.com/cherryamme/readchop/internal/config"
	"github.com/cherryamme/readchop/internal/fusion"
	"github.com/cherryamme/readchop/internal/patterns"
	"github.com/cherryamme/readchop/internal/pipeline"
)

func setupLog(outDir string) (*log.Logger, *os.File, error) {
	path := filepath.Join(outDir, "readchop.log")
	fid, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating log file %s: %w", path, err)
	}
	return log.New(fid, "", log.Ltime), fid, nil
}

func buildLayerParams(cfg *config.Config) *patterns.LayerParams {
	params := &patterns.LayerParams{}
	for _, rate := range cfg.PatternErrorRates {
		params.ErrorRates = append(params.ErrorRates, [2]float64{rate.Left, rate.Right})
	}
	params.MatchModes = cfg.PatternMatchType
	params.PositionShifts = cfg.PositionShift
	params.MaxDistances = cfg.MaxDistance
	return params
}

func run() error {
	cfg, err := config.ParseFlags(flag.NewFlagSet("readchop", flag.ExitOnError), os.Args[1:])
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", cfg.OutDir, err)
	}

	logger, logFile, err := setupLog(cfg.OutDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if err := config.SaveConfig(cfg, filepath.Join(cfg.OutDir, "config.json")); err != nil {
		logger.Printf("warning: could not save config snapshot: %v", err)
	}

	params := buildLayerParams(cfg)
	store, err := patterns.Load(cfg.PatternDB, cfg.PatternFiles, params, cfg.FusionFile, cfg.UsePositionInfo)
	if err != nil {
		return fmt.Errorf("loading pattern store: %w", err)
	}

	var fusionDetector *fusion.Detector
	if store.Fusion != nil && !store.Fusion.Empty() {
		fusionDetector, err = fusion.NewDetector(store.Fusion, 15, cfg.FusionError, 8, 1<<24, 3)
		if err != nil {
			return fmt.Errorf("building fusion detector: %w", err)
		}
	}

	p, err := pipeline.New(cfg, store, fusionDetector, logger)
	if err != nil {
		return err
	}
	return p.Run()
}

func main() {
	if os.Getenv("READCHOP_CPU_PROFILE") != "" {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "readchop: %v\n", err)
		os.Exit(1)
	}
}
