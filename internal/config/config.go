// Package config loads and validates the command-line configuration
// shared by the demultiplex, view, and encrypt binaries, ported from the
// flag-parsing-merged-over-JSON-defaults idiom and fail-fast validation
// of the teacher's configuration loader.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrorRate is a left/right pattern-matching error-rate pair.
type ErrorRate struct {
	Left  float64
	Right float64
}

// Config is the full set of run parameters accepted by the demultiplex
// and view binaries.
type Config struct {
	Inputs       []string
	OutDir       string
	Threads      int
	MinLength    int
	PatternFiles []string
	PatternDB    string
	FusionFile   string
	FusionError  float64
	LogInterval  int

	WindowLeft  int
	WindowRight int

	PatternErrorRates []ErrorRate
	TrimMode          int
	WriteType         string // "names" or "type"
	PatternMatchType  []string
	UsePositionInfo   bool
	PositionShift     []int
	MaxDistance       []int
	IDSeparator       string
}

// ReadConfig loads a Config from a JSON file, panicking on any error the
// same way the teacher's config loader does: configuration loading
// happens once at startup, before there is a log file to report to.
func ReadConfig(filename string) *Config {
	fid, err := os.Open(filename)
	if err != nil {
		panic(err)
	}
	defer fid.Close()
	cfg := new(Config)
	if err := json.NewDecoder(fid).Decode(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// SaveConfig writes cfg as JSON to filename, for run reproducibility.
func SaveConfig(cfg *Config, filename string) error {
	fid, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating config snapshot %s: %w", filename, err)
	}
	defer fid.Close()
	enc := json.NewEncoder(fid)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("writing config snapshot %s: %w", filename, err)
	}
	return nil
}

func parseErrorRate(s string) (ErrorRate, error) {
	toks := strings.Split(s, ",")
	if len(toks) != 2 {
		return ErrorRate{}, fmt.Errorf("error rate %q must be two comma-separated values", s)
	}
	left, err := strconv.ParseFloat(strings.TrimSpace(toks[0]), 64)
	if err != nil {
		return ErrorRate{}, fmt.Errorf("error rate %q: %w", s, err)
	}
	right, err := strconv.ParseFloat(strings.TrimSpace(toks[1]), 64)
	if err != nil {
		return ErrorRate{}, fmt.Errorf("error rate %q: %w", s, err)
	}
	if left < 0 || left > 0.5 || right < 0 || right > 0.5 {
		return ErrorRate{}, fmt.Errorf("error rate %q out of range, must be between 0 and 0.5", s)
	}
	return ErrorRate{Left: left, Right: right}, nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, sep) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func parseIntList(s, sep string) ([]int, error) {
	toks := splitNonEmpty(s, sep)
	out := make([]int, 0, len(toks))
	for _, tok := range toks {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("parsing integer list %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseFlags builds a Config from the process's command-line arguments,
// merging any -config JSON file's values with flags supplied on top of
// it, mirroring the teacher's merge-flags-over-JSON-defaults pattern.
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	configFile := fs.String("config", "", "JSON file containing configuration parameters")
	inputs := fs.String("inputs", "", "space-delimited input fastq file paths")
	outdir := fs.String("outdir", "", "output directory name")
	threads := fs.Int("threads", 0, "number of worker threads")
	minLength := fs.Int("min_length", 0, "minimum sequence length filter threshold")
	patternFiles := fs.String("pattern_files", "", "space-delimited pattern layer file paths")
	patternDB := fs.String("db", "", "pattern database file")
	fusionFile := fs.String("fusion", "", "fusion detection motif selection file")
	fusionError := fs.Float64("fe", 0, "fusion detection error rate")
	logInterval := fs.Int("num", 0, "log progress every this many records")
	windowSize := fs.String("window_size", "", "comma-delimited <left window,right window>")
	patternErrorRate := fs.String("e", "", "space-delimited left,right error rate pairs per layer")
	trimMode := fs.Int("trim_mode", -1, "sequence trimming mode")
	writeType := fs.String("write_type", "", "names or type")
	patternMatchType := fs.String("match", "", "space-delimited required match mode per layer")
	usePositionInfo := fs.Bool("pos", false, "use cross-layer position refinement")
	positionShift := fs.String("shift", "", "space-delimited position shift per layer")
	maxDistance := fs.String("maxdist", "", "comma-delimited max distance per layer")
	idSeparator := fs.String("id_sep", "", "record id separator")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var cfg *Config
	if *configFile != "" {
		cfg = ReadConfig(*configFile)
	} else {
		cfg = &Config{
			OutDir:      "outdir",
			Threads:     20,
			MinLength:   100,
			LogInterval: 500000,
			WindowLeft:  400,
			WindowRight: 400,
			TrimMode:    0,
			WriteType:   "type",
			IDSeparator: "%",
			FusionError: 0.2,
		}
	}

	if *inputs != "" {
		cfg.Inputs = splitNonEmpty(*inputs, " ")
	}
	if *outdir != "" {
		cfg.OutDir = *outdir
	}
	if *threads != 0 {
		cfg.Threads = *threads
	}
	if *minLength != 0 {
		cfg.MinLength = *minLength
	}
	if *patternFiles != "" {
		cfg.PatternFiles = splitNonEmpty(*patternFiles, " ")
	}
	if *patternDB != "" {
		cfg.PatternDB = *patternDB
	}
	if *fusionFile != "" {
		cfg.FusionFile = *fusionFile
	}
	if *fusionError != 0 {
		cfg.FusionError = *fusionError
	}
	if *logInterval != 0 {
		cfg.LogInterval = *logInterval
	}
	if *windowSize != "" {
		windows, err := parseIntList(*windowSize, ",")
		if err != nil {
			return nil, err
		}
		if len(windows) != 2 {
			return nil, fmt.Errorf("window_size must have exactly two values, got %q", *windowSize)
		}
		cfg.WindowLeft, cfg.WindowRight = windows[0], windows[1]
	}
	if *patternErrorRate != "" {
		cfg.PatternErrorRates = nil
		for _, tok := range splitNonEmpty(*patternErrorRate, " ") {
			rate, err := parseErrorRate(tok)
			if err != nil {
				return nil, err
			}
			cfg.PatternErrorRates = append(cfg.PatternErrorRates, rate)
		}
	}
	if *trimMode >= 0 {
		cfg.TrimMode = *trimMode
	}
	if *writeType != "" {
		if *writeType != "names" && *writeType != "type" {
			return nil, fmt.Errorf("write_type must be %q or %q, got %q", "names", "type", *writeType)
		}
		cfg.WriteType = *writeType
	}
	if *patternMatchType != "" {
		cfg.PatternMatchType = splitNonEmpty(*patternMatchType, " ")
	}
	if *usePositionInfo {
		cfg.UsePositionInfo = true
	}
	if *positionShift != "" {
		shifts, err := parseIntList(*positionShift, " ")
		if err != nil {
			return nil, err
		}
		cfg.PositionShift = shifts
	}
	if *maxDistance != "" {
		dists, err := parseIntList(*maxDistance, ",")
		if err != nil {
			return nil, err
		}
		cfg.MaxDistance = dists
	}
	if *idSeparator != "" {
		cfg.IDSeparator = *idSeparator
	}

	return cfg, nil
}

// Validate applies the same fail-fast required-field checks as the
// teacher's checkArgs, returning the first violation found instead of
// writing to stderr and exiting, so callers can decide how to report it.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if len(c.PatternFiles) == 0 {
		return fmt.Errorf("no pattern layer files provided")
	}
	if c.PatternDB == "" {
		return fmt.Errorf("no pattern database file provided")
	}
	if c.Threads <= 0 {
		c.Threads = 20
	}
	if c.MinLength <= 0 {
		c.MinLength = 1
	}
	if c.WindowLeft <= 0 || c.WindowRight <= 0 {
		return fmt.Errorf("window sizes must be positive, got left=%d right=%d", c.WindowLeft, c.WindowRight)
	}
	for _, rate := range c.PatternErrorRates {
		if rate.Left < 0 || rate.Left > 0.5 || rate.Right < 0 || rate.Right > 0.5 {
			return fmt.Errorf("pattern error rate %+v out of range [0,0.5]", rate)
		}
	}
	if c.WriteType != "names" && c.WriteType != "type" {
		c.WriteType = "type"
	}
	if c.IDSeparator == "" {
		c.IDSeparator = "%"
	}
	return nil
}

// FusionEnabled reports whether fusion detection should run.
func (c *Config) FusionEnabled() bool {
	return c.FusionFile != ""
}
