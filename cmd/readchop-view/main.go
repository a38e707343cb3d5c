// Command readchop-view previews motif detection on a small set of reads,
// highlighting matched spans in the terminal instead of writing output
// FASTQ files.
package main

import (
	"bufio"
	"compress/gzip"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/cherryamme/readchop/internal/config"
	"github.com/cherryamme/readchop/internal/patterns"
	"github.com/cherryamme/readchop/internal/splitter"
)

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"

	truncateHead = 100
	truncateTail = 100
	truncateMax  = truncateHead + truncateTail
)

type span struct {
	start, end int
}

func mergedSpans(results []splitter.SplitResult) []span {
	var spans []span
	for _, r := range results {
		if r.Left.Found {
			spans = append(spans, span{r.Left.Start, r.Left.End})
		}
		if r.Right.Found {
			spans = append(spans, span{r.Right.Start, r.Right.End})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func highlight(seq []byte, spans []span) string {
	out := make([]byte, 0, len(seq)+len(spans)*len(ansiRed))
	pos := 0
	for _, s := range spans {
		if s.start < pos || s.start >= len(seq) {
			continue
		}
		end := s.end
		if end > len(seq) {
			end = len(seq)
		}
		out = append(out, seq[pos:s.start]...)
		out = append(out, ansiRed...)
		out = append(out, seq[s.start:end]...)
		out = append(out, ansiReset...)
		pos = end
	}
	out = append(out, seq[pos:]...)
	return string(out)
}

func smartTruncate(highlighted string) string {
	if len(highlighted) <= truncateMax+len(ansiRed)+len(ansiReset) {
		return highlighted
	}
	runes := []rune(highlighted)
	if len(runes) <= truncateMax {
		return highlighted
	}
	return string(runes[:truncateHead]) + "..." + string(runes[len(runes)-truncateTail:])
}

func detectedPatternsLine(results []splitter.SplitResult) string {
	line := "Detected patterns:"
	for _, r := range results {
		if r.Left.Found {
			line += fmt.Sprintf(" (%s,%d,%d,%d)", r.Left.Name, r.Left.Score, r.Left.Start, r.Left.End)
		}
		if r.Right.Found {
			line += fmt.Sprintf(" (%s,%d,%d,%d)", r.Right.Name, r.Right.Score, r.Right.Start, r.Right.End)
		}
	}
	return line
}

func openFastqGzip(path string) (*bufio.Scanner, func() error, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	gz, err := gzip.NewReader(fid)
	if err != nil {
		fid.Close()
		return nil, nil, err
	}
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 10*1024*1024), 10*1024*1024)
	return scanner, func() error {
		gz.Close()
		return fid.Close()
	}, nil
}

func run() error {
	cfg, err := config.ParseFlags(flag.NewFlagSet("readchop-view", flag.ExitOnError), os.Args[1:])
	if err != nil {
		return err
	}
	if len(cfg.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if len(cfg.PatternFiles) == 0 || cfg.PatternDB == "" {
		return fmt.Errorf("pattern files and database are required")
	}

	params := &patterns.LayerParams{MatchModes: cfg.PatternMatchType, PositionShifts: cfg.PositionShift, MaxDistances: cfg.MaxDistance}
	for _, rate := range cfg.PatternErrorRates {
		params.ErrorRates = append(params.ErrorRates, [2]float64{rate.Left, rate.Right})
	}
	store, err := patterns.Load(cfg.PatternDB, cfg.PatternFiles, params, "", cfg.UsePositionInfo)
	if err != nil {
		return fmt.Errorf("loading pattern store: %w", err)
	}

	for _, input := range cfg.Inputs {
		scanner, closeFn, err := openFastqGzip(input)
		if err != nil {
			return fmt.Errorf("opening %s: %w", input, err)
		}
		if err := previewFile(scanner, store, cfg); err != nil {
			closeFn()
			return err
		}
		closeFn()
	}
	return nil
}

func previewFile(scanner *bufio.Scanner, store *patterns.Store, cfg *config.Config) error {
	for scanner.Scan() {
		header := scanner.Bytes()
		if len(header) == 0 {
			continue
		}
		id := string(header[1:])
		if !scanner.Scan() {
			break
		}
		seq := append([]byte(nil), scanner.Bytes()...)
		if !scanner.Scan() {
			break
		}
		if !scanner.Scan() {
			break
		}

		results := splitter.Split(seq, store.Layers, cfg.WindowLeft, cfg.WindowRight)
		spans := mergedSpans(results)
		highlighted := smartTruncate(highlight(seq, spans))

		fmt.Printf("Sequence ID: %s Length: %d\n", id, len(seq))
		fmt.Println(highlighted)
		fmt.Println(detectedPatternsLine(results))
	}
	return scanner.Err()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "readchop-view: %v\n", err)
		os.Exit(1)
	}
}
