package pipeline

import (
	"log"
	"time"
)

// progressTracker logs a running throughput rate every logInterval
// records, ported from the original processing-rate progress reporter.
type progressTracker struct {
	logger      *log.Logger
	logInterval int
	start       time.Time
	count       int
}

func newProgressTracker(logger *log.Logger, logInterval int) *progressTracker {
	if logInterval <= 0 {
		logInterval = 500000
	}
	return &progressTracker{logger: logger, logInterval: logInterval, start: time.Now()}
}

func (p *progressTracker) tick() {
	p.count++
	if p.count%p.logInterval != 0 {
		return
	}
	elapsed := time.Since(p.start).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.count) / elapsed
	}
	p.logger.Printf("processed %d records (%.0f records/sec)", p.count, rate)
}

func (p *progressTracker) final() {
	elapsed := time.Since(p.start).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.count) / elapsed
	}
	p.logger.Printf("finished: %d records in %.1fs (%.0f records/sec)", p.count, elapsed, rate)
}
