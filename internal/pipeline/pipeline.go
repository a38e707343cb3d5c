// Package pipeline wires the record reader, splitter workers, fusion
// screen, statistics manager, and writer manager into the end-to-end
// demultiplexing run, ported from the read/classify/write worker
// topology and semaphore-bounded fan-out of the teacher's concurrent
// confirmation stage.
package pipeline

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/cherryamme/readchop/internal/config"
	"github.com/cherryamme/readchop/internal/fusion"
	"github.com/cherryamme/readchop/internal/patterns"
	"github.com/cherryamme/readchop/internal/splitter"
	"github.com/cherryamme/readchop/internal/stats"
	"github.com/cherryamme/readchop/internal/threadpool"
)

// Pipeline runs a complete demultiplexing pass over one or more input
// FASTQ files.
type Pipeline struct {
	cfg      *config.Config
	store    *patterns.Store
	fusionD  *fusion.Detector
	statsMgr *stats.Manager
	logger   *log.Logger

	runID string
}

// New builds a Pipeline bound to cfg's output directory and motif
// catalogs, assigning a fresh run id.
func New(cfg *config.Config, store *patterns.Store, fusionD *fusion.Detector, logger *log.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.Ltime)
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", cfg.OutDir, err)
	}

	runID := uuid.NewString()
	statsMgr := stats.NewManager(cfg.OutDir, logger)

	return &Pipeline{
		cfg:      cfg,
		store:    store,
		fusionD:  fusionD,
		statsMgr: statsMgr,
		logger:   logger,
		runID:    runID,
	}, nil
}

type logSink struct {
	mu sync.Mutex
	gz *gzip.Writer
}

func (s *logSink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.gz, line)
}

// Run processes every configured input file to completion and writes the
// final summary tables.
func (p *Pipeline) Run() error {
	logPath := filepath.Join(p.cfg.OutDir, "reads_log.gz")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating diagnostic log %s: %w", logPath, err)
	}
	defer logFile.Close()
	sink := &logSink{gz: gzip.NewWriter(logFile)}
	defer sink.gz.Close()

	alloc := threadpool.BalancedAllocation(p.cfg.Threads, 0.8)
	p.logger.Printf("run %s: %d splitter workers, %d writer-budget workers", p.runID, alloc.Splitters, alloc.Writers)

	writerBudget := threadpool.NewManager(alloc.Writers)
	writers := newWriterManager(p.cfg.OutDir, p.logger, writerBudget)

	progress := newProgressTracker(p.logger, p.cfg.LogInterval)

	for _, input := range p.cfg.Inputs {
		if err := p.processFile(input, alloc.Splitters, writers, sink, progress); err != nil {
			return fmt.Errorf("processing %s: %w", input, err)
		}
	}
	progress.final()

	return p.finalize(writers)
}

func (p *Pipeline) processFile(path string, splitters int, writers *writerManager, sink *logSink, progress *progressTracker) error {
	records := make(chan Record, 256)
	readErr := make(chan error, 1)

	go func() {
		readErr <- readFastq(path, records)
		close(records)
	}()

	sem := threadpool.NewSemaphore(maxInt(1, splitters))
	var wg sync.WaitGroup
	var procErrMu sync.Mutex
	var procErr error

	for rec := range records {
		rec := rec
		sem.Acquire()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release()

			classified, trimmedSeq, trimmedQual := p.classify(rec)

			if err := p.dispatch(classified, rec.ID, trimmedSeq, trimmedQual, writers); err != nil {
				procErrMu.Lock()
				if procErr == nil {
					procErr = err
				}
				procErrMu.Unlock()
			}

			sink.writeLine(classified.ToTSV())
			p.statsMgr.ProcessRead(classified.Class, classified.MatchNames, classified.MatchTypes, rec.Seq, trimmedSeq)
			progress.tick()
		}()
	}
	wg.Wait()

	if err := <-readErr; err != nil {
		return err
	}
	return procErr
}

func (p *Pipeline) classify(rec Record) (*splitter.ClassifiedRead, []byte, []byte) {
	results := splitter.Split(rec.Seq, p.store.Layers, p.cfg.WindowLeft, p.cfg.WindowRight)
	classified := splitter.BuildClassifiedRead(rec.ID, len(rec.Seq), p.store.Layers, results, p.cfg.MinLength, p.cfg.TrimMode, p.cfg.WriteType, p.cfg.IDSeparator)

	cutLeft, cutRight := clampTrim(classified.CutLeft, classified.CutRight, len(rec.Seq))
	trimmedSeq := rec.Seq[cutLeft:cutRight]
	trimmedQual := rec.Qual[cutLeft:cutRight]

	if p.fusionD != nil {
		hits := p.fusionD.Detect(trimmedSeq)
		classified.ApplyFusionDetection(len(hits) > 0)
	}

	return classified, trimmedSeq, trimmedQual
}

func clampTrim(left, right, n int) (int, int) {
	if left < 0 {
		left = 0
	}
	if right <= 0 || right > n {
		right = n
	}
	if left > right {
		left = right
	}
	return left, right
}

func (p *Pipeline) dispatch(rec *splitter.ClassifiedRead, origID string, seq, qual []byte, writers *writerManager) error {
	if !rec.WriteEligible() {
		return nil
	}
	outputID := rec.OutputID(origID, p.cfg.IDSeparator)
	return writers.Write(rec.OutputFragment, outputID, seq, qual)
}

func (p *Pipeline) finalize(writers *writerManager) error {
	if err := writers.Close(); err != nil {
		return err
	}
	p.statsMgr.PrintStatistics()
	if err := p.statsMgr.WriteTotalStatistics(); err != nil {
		return err
	}
	return p.statsMgr.WriteValidStatistics()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
