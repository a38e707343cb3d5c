// Package stats accumulates per-run demultiplexing counters and renders
// the summary and per-barcode breakdown tables, ported from the basic and
// detailed counter maps of the original statistics manager.
package stats

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// nameSlots is the number of match-name/match-type slots treated as
// primer, index, and barcode for the detailed breakdown tables.
const nameSlots = 3

// Manager accumulates run-wide and per-class counters as records are
// processed, and writes the summary tables once processing completes.
type Manager struct {
	logger *log.Logger

	outputDir string

	counters map[string]uint64

	// validNameCounters/validTypeCounters are barcode -> index -> primer
	// -> count, mirroring the triple-nested maps of the original.
	validNameCounters map[string]map[string]map[string]uint64
	validTypeCounters map[string]map[string]map[string]uint64

	totalReads  uint64
	totalBases  uint64
	validReads  uint64
	validBases  uint64
	gcBasesSeen uint64
	gcBasesKept uint64
}

// NewManager creates a Manager that writes its summary tables under
// outputDir, logging progress through logger.
func NewManager(outputDir string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.Ltime)
	}
	logger.Printf("creating statistics manager")
	return &Manager{
		logger:    logger,
		outputDir: outputDir,
		counters: map[string]uint64{
			"filtered": 0,
			"unknown":  0,
			"fusion":   0,
		},
		validNameCounters: make(map[string]map[string]map[string]uint64),
		validTypeCounters: make(map[string]map[string]map[string]uint64),
	}
}

func countGC(seq []byte) uint64 {
	var n uint64
	for _, b := range seq {
		switch b {
		case 'G', 'C', 'g', 'c':
			n++
		}
	}
	return n
}

// ProcessRead folds one classified record into the running counters.
// matchNames/matchTypes are the padded per-layer name/class slices
// produced by the splitter; trimmed is the post-trim sequence, used for
// valid-read base counting and after-trim GC content.
func (m *Manager) ProcessRead(class string, matchNames, matchTypes []string, fullSeq, trimmed []byte) {
	m.totalReads++
	m.totalBases += uint64(len(fullSeq))
	m.gcBasesSeen += countGC(fullSeq)

	m.counters[class]++

	if class == "valid" {
		m.validReads++
		m.validBases += uint64(len(trimmed))
		m.gcBasesKept += countGC(trimmed)
		m.updateDetailedStatistics(matchNames, matchTypes)
	}
}

func padSlots(v []string) []string {
	out := make([]string, nameSlots)
	for i := range out {
		if i < len(v) {
			out[i] = v[i]
		} else {
			out[i] = "unknown"
		}
	}
	return out
}

func (m *Manager) updateDetailedStatistics(matchNames, matchTypes []string) {
	names := padSlots(matchNames)
	types := padSlots(matchTypes)

	primer, index, barcode := names[0], names[1], names[2]
	primerType, indexType, barcodeType := types[0], types[1], types[2]

	incrementTriple(m.validNameCounters, barcode, index, primer)
	incrementTriple(m.validTypeCounters, barcodeType, indexType, primerType)
}

func incrementTriple(m map[string]map[string]map[string]uint64, outer, middle, inner string) {
	om, ok := m[outer]
	if !ok {
		om = make(map[string]map[string]uint64)
		m[outer] = om
	}
	mm, ok := om[middle]
	if !ok {
		mm = make(map[string]uint64)
		om[middle] = mm
	}
	mm[inner]++
}

func sortedKeys(m map[string]map[string]map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeBreakdownFile(path string, indexMap map[string]map[string]uint64) error {
	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer fid.Close()

	if _, err := fmt.Fprintln(fid, "barcode\tindex\tprimer\tcount"); err != nil {
		return err
	}

	indexKeys := make([]string, 0, len(indexMap))
	for k := range indexMap {
		indexKeys = append(indexKeys, k)
	}
	sort.Strings(indexKeys)

	base := filepath.Base(path)
	barcode := base
	for _, suffix := range []string{"_validname.tsv", "_validtype.tsv"} {
		if len(base) > len(suffix) && base[len(base)-len(suffix):] == suffix {
			barcode = base[:len(base)-len(suffix)]
		}
	}

	for _, index := range indexKeys {
		primerMap := indexMap[index]
		primerKeys := make([]string, 0, len(primerMap))
		for k := range primerMap {
			primerKeys = append(primerKeys, k)
		}
		sort.Strings(primerKeys)
		for _, primer := range primerKeys {
			if _, err := fmt.Fprintf(fid, "%s\t%s\t%s\t%d\n", barcode, index, primer, primerMap[primer]); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteValidStatistics writes one {barcode}_validname.tsv and one
// {barcode}_validtype.tsv file per distinct barcode seen among valid
// records.
func (m *Manager) WriteValidStatistics() error {
	for _, barcode := range sortedKeys(m.validNameCounters) {
		path := filepath.Join(m.outputDir, barcode+"_validname.tsv")
		if err := writeBreakdownFile(path, m.validNameCounters[barcode]); err != nil {
			return err
		}
	}
	for _, barcodeType := range sortedKeys(m.validTypeCounters) {
		path := filepath.Join(m.outputDir, barcodeType+"_validtype.tsv")
		if err := writeBreakdownFile(path, m.validTypeCounters[barcodeType]); err != nil {
			return err
		}
	}
	return nil
}

func rate(count, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return 100.0 * float64(count) / float64(total)
}

// PrintStatistics logs the filter/fusion/valid rates for the run.
func (m *Manager) PrintStatistics() {
	filtered := m.counters["filtered"]
	fusion := m.counters["fusion"]

	m.logger.Printf("processed %d/%d reads (filtered/total), filter rate: %.2f%%", filtered, m.totalReads, rate(filtered, m.totalReads))
	m.logger.Printf("processed %d/%d reads (fusion/total), fusion rate: %.2f%%", fusion, m.totalReads, rate(fusion, m.totalReads))
	m.logger.Printf("processed %d/%d reads (valid/total), valid rate: %.2f%%", m.validReads, m.totalReads, rate(m.validReads, m.totalReads))
}

// WriteTotalStatistics writes total_info.tsv, the single-row run summary.
func (m *Manager) WriteTotalStatistics() error {
	beforeMeanLength := 0.0
	if m.totalReads > 0 {
		beforeMeanLength = float64(m.totalBases) / float64(m.totalReads)
	}
	afterMeanLength := 0.0
	if m.validReads > 0 {
		afterMeanLength = float64(m.validBases) / float64(m.validReads)
	}
	beforeGC := 0.5
	if m.totalBases > 0 {
		beforeGC = float64(m.gcBasesSeen) / float64(m.totalBases)
	}
	afterGC := 0.5
	if m.validBases > 0 {
		afterGC = float64(m.gcBasesKept) / float64(m.validBases)
	}

	validCount := m.counters["valid"]
	unknownCount := m.counters["unknown"]
	filteredCount := m.counters["filtered"]
	fusionCount := m.counters["fusion"]

	path := filepath.Join(m.outputDir, "total_info.tsv")
	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer fid.Close()

	header := "total\ttotal_bases\tbefore_read1_mean_length\tafter_read1_mean_length\tbefore_gc_content\tafter_gc_content\tfiltered\tfiltered_rate\tfusion\tfusion_rate\tunknown\tunknown_rate\tvalid_reads\tvalid_bases\tvalid_rate"
	if _, err := fmt.Fprintln(fid, header); err != nil {
		return err
	}

	_, err = fmt.Fprintf(fid, "%d\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%d\t%.2f\t%d\t%.2f\t%d\t%.2f\t%d\t%d\t%.2f\n",
		m.totalReads, m.totalBases, beforeMeanLength, afterMeanLength, beforeGC, afterGC,
		filteredCount, rate(filteredCount, m.totalReads),
		fusionCount, rate(fusionCount, m.totalReads),
		unknownCount, rate(unknownCount, m.totalReads),
		validCount, m.validBases, rate(validCount, m.totalReads),
	)
	return err
}
