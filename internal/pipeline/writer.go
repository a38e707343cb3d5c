package pipeline

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cherryamme/readchop/internal/threadpool"
)

// writerManager lazily opens one gzip-compressed FASTQ file per distinct
// output fragment and serializes writes to it. A fragment that fails to
// open once is warned about loudly and its records are dropped rather
// than silently discarded, since data loss should never pass unnoticed.
// Each newly opened fragment consumes one slot of the writer thread
// budget; a fragment that would exceed that budget is refused the same
// way, rather than silently dropped per §4.5's "operational limit."
type writerManager struct {
	outDir string
	logger interface{ Printf(string, ...interface{}) }
	budget *threadpool.Manager

	mu      sync.Mutex
	writers map[string]*fragmentWriter
	failed  map[string]bool
}

type fragmentWriter struct {
	mu   sync.Mutex
	file *os.File
	gz   *gzip.Writer
}

func newWriterManager(outDir string, logger interface{ Printf(string, ...interface{}) }, budget *threadpool.Manager) *writerManager {
	return &writerManager{
		outDir:  outDir,
		logger:  logger,
		budget:  budget,
		writers: make(map[string]*fragmentWriter),
		failed:  make(map[string]bool),
	}
}

func (m *writerManager) get(fragment string) (*fragmentWriter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fw, ok := m.writers[fragment]; ok {
		return fw, nil
	}
	if m.failed[fragment] {
		return nil, fmt.Errorf("output fragment %q previously failed to open", fragment)
	}

	if m.budget != nil && m.budget.Allocate(1) == 0 {
		m.failed[fragment] = true
		m.logger.Printf("warning: writer thread budget exhausted (%d active); refusing to open output fragment %q, its records will be dropped", m.budget.Active(), fragment)
		return nil, fmt.Errorf("writer thread budget exhausted, cannot open fragment %q", fragment)
	}

	path := filepath.Join(m.outDir, fragment+".fq.gz")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.failed[fragment] = true
		if m.budget != nil {
			m.budget.Release(1)
		}
		m.logger.Printf("warning: could not create output directory for fragment %q: %v; records for this fragment will be dropped", fragment, err)
		return nil, err
	}
	fid, err := os.Create(path)
	if err != nil {
		m.failed[fragment] = true
		if m.budget != nil {
			m.budget.Release(1)
		}
		m.logger.Printf("warning: could not open output file %q: %v; records for this fragment will be dropped", path, err)
		return nil, err
	}
	fw := &fragmentWriter{file: fid, gz: gzip.NewWriter(fid)}
	m.writers[fragment] = fw
	return fw, nil
}

// Write serializes one record onto the gzip stream for fragment.
func (m *writerManager) Write(fragment, id string, seq, qual []byte) error {
	fw, err := m.get(fragment)
	if err != nil {
		return err
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return writeFastqRecord(fw.gz, id, seq, qual)
}

// Close flushes and closes every open fragment writer, collecting the
// first error encountered but attempting to close all of them.
func (m *writerManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for fragment, fw := range m.writers {
		if err := fw.gz.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing gzip stream for fragment %q: %w", fragment, err)
		}
		if err := fw.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing output file for fragment %q: %w", fragment, err)
		}
	}
	return firstErr
}
