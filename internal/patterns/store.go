// Package patterns loads and normalizes the motif catalogs the splitter
// searches against: per-layer forward/reverse/pair tables and a flat
// fusion-motif catalog, ported from the pair-key and envelope handling in
// the original splitter's pattern store.
package patterns

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cherryamme/readchop/internal/matcher"
)

// minVectorLength is the minimum length layer-configuration vectors are
// right-padded to by replicating their last element.
const minVectorLength = 5

// PairEntry records a classification outcome keyed by a concatenated
// forward/reverse motif name.
type PairEntry struct {
	PairName    string
	Class       string
	Orientation string // "fs", "rs", or "unknown"
}

// PatternLayer holds one independent matching pass: forward motifs
// searched in the left window, their reverse complements searched in the
// right window, and the pair-classification table joining the two.
type PatternLayer struct {
	// Names preserves the declaration order of motif names, giving
	// deterministic iteration for tie-breaking during per-motif scans.
	Names   []string
	Forward map[string][]byte
	Reverse map[string][]byte

	// Pairs is keyed by "Fname_Rname". PairKeys preserves insertion
	// order for the deterministic substring-containment fallback.
	Pairs    map[string]PairEntry
	PairKeys []string

	LeftErrorRate   float64
	RightErrorRate  float64
	MaxDistance     int
	PositionShift   int
	UsePositionInfo bool

	// RequiredMode is the minimum match mode ("single" or "dual") this
	// layer must achieve to validate; empty means no requirement.
	RequiredMode string
}

func newPatternLayer() *PatternLayer {
	return &PatternLayer{
		Forward: make(map[string][]byte),
		Reverse: make(map[string][]byte),
		Pairs:   make(map[string]PairEntry),
	}
}

func (l *PatternLayer) addName(name string, seen map[string]bool) {
	if !seen[name] {
		seen[name] = true
		l.Names = append(l.Names, name)
	}
}

func (l *PatternLayer) addPair(key string, entry PairEntry) {
	if _, exists := l.Pairs[key]; !exists {
		l.PairKeys = append(l.PairKeys, key)
	}
	l.Pairs[key] = entry
}

// LookupBySubstring scans pair keys in declaration order and returns the
// first entry whose key contains partial. This mirrors the fallback used
// when a direct "Lname_Rname" pair key is absent.
func (l *PatternLayer) LookupBySubstring(partial string) (PairEntry, bool) {
	for _, key := range l.PairKeys {
		if strings.Contains(key, partial) {
			return l.Pairs[key], true
		}
	}
	return PairEntry{}, false
}

// FusionCatalog is a flat name->sequence mapping of unwanted chimeric
// motifs searched over the trimmed interior of otherwise-valid records.
type FusionCatalog struct {
	Names     []string
	Sequences map[string][]byte
}

func (c *FusionCatalog) Empty() bool {
	return c == nil || len(c.Sequences) == 0
}

// loadDatabaseRows reads a tab-separated name/sequence database, which may
// be a plaintext file or a ".safe" encrypted envelope.
func loadDatabaseRows(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening database file %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".safe") {
		raw, err = openDatabase(raw, safePassphrase)
		if err != nil {
			return nil, fmt.Errorf("decrypting database file %s: %w", path, err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	rows := make(map[string]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing database file %s: %w", path, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("malformed database row in %s: expected 2 columns, got %d", path, len(record))
		}
		rows[record[0]] = record[1]
	}
	return rows, nil
}

// LoadLayer builds a PatternLayer from a database file and a layer
// definition file (tab-separated, header required, columns F, R, P).
func LoadLayer(databasePath, layerPath string, leftErr, rightErr float64, maxDistance, positionShift int, usePositionInfo bool, requiredMode string) (*PatternLayer, error) {
	db, err := loadDatabaseRows(databasePath)
	if err != nil {
		return nil, err
	}

	fid, err := os.Open(layerPath)
	if err != nil {
		return nil, fmt.Errorf("opening layer file %s: %w", layerPath, err)
	}
	defer fid.Close()

	reader := csv.NewReader(fid)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	layer := newPatternLayer()
	layer.LeftErrorRate = leftErr
	layer.RightErrorRate = rightErr
	layer.MaxDistance = maxDistance
	layer.PositionShift = positionShift
	layer.UsePositionInfo = usePositionInfo
	layer.RequiredMode = requiredMode

	seen := make(map[string]bool)
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing layer file %s: %w", layerPath, err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("malformed layer row in %s: expected 3 columns, got %d", layerPath, len(record))
		}
		f, r, p := record[0], record[1], record[2]

		fSeq, ok := db[f]
		if !ok {
			return nil, fmt.Errorf("pattern %q referenced in %s not found in database %s", f, layerPath, databasePath)
		}
		rSeq, ok := db[r]
		if !ok {
			return nil, fmt.Errorf("pattern %q referenced in %s not found in database %s", r, layerPath, databasePath)
		}

		layer.Forward[f] = []byte(fSeq)
		layer.Forward[r] = []byte(rSeq)
		layer.addName(f, seen)
		layer.addName(r, seen)

		fRC, err := matcher.ReverseComplement([]byte(fSeq))
		if err != nil {
			return nil, fmt.Errorf("computing reverse complement of %q: %w", f, err)
		}
		rRC, err := matcher.ReverseComplement([]byte(rSeq))
		if err != nil {
			return nil, fmt.Errorf("computing reverse complement of %q: %w", r, err)
		}
		layer.Reverse[f] = fRC
		layer.Reverse[r] = rRC

		forwardKey := f + "_" + r
		reverseKey := r + "_" + f
		if f == r {
			layer.addPair(forwardKey, PairEntry{PairName: forwardKey, Class: p, Orientation: "unknown"})
		} else {
			layer.addPair(forwardKey, PairEntry{PairName: forwardKey, Class: p, Orientation: "fs"})
			layer.addPair(reverseKey, PairEntry{PairName: forwardKey, Class: p, Orientation: "rs"})
		}
	}

	return layer, nil
}

// LoadFusionCatalog builds a flat fusion motif catalog from a database
// file and a fusion selection file (tab-separated, header required, one
// column of motif names).
func LoadFusionCatalog(databasePath, fusionPath string) (*FusionCatalog, error) {
	db, err := loadDatabaseRows(databasePath)
	if err != nil {
		return nil, err
	}

	fid, err := os.Open(fusionPath)
	if err != nil {
		return nil, fmt.Errorf("opening fusion file %s: %w", fusionPath, err)
	}
	defer fid.Close()

	reader := csv.NewReader(fid)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	catalog := &FusionCatalog{Sequences: make(map[string][]byte)}
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing fusion file %s: %w", fusionPath, err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < 1 {
			continue
		}
		name := record[0]
		seq, ok := db[name]
		if !ok {
			return nil, fmt.Errorf("fusion pattern %q not found in database %s", name, databasePath)
		}
		if _, exists := catalog.Sequences[name]; !exists {
			catalog.Names = append(catalog.Names, name)
		}
		catalog.Sequences[name] = []byte(seq)
	}
	return catalog, nil
}

// EncryptDatabase reads a plaintext database file and writes a ".safe"
// encrypted sibling next to it.
func EncryptDatabase(path string) (string, error) {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("opening database file %s: %w", path, err)
	}
	envelope, err := sealDatabase(plaintext, safePassphrase)
	if err != nil {
		return "", fmt.Errorf("encrypting database file %s: %w", path, err)
	}
	outPath := path + ".safe"
	if err := os.WriteFile(outPath, envelope, 0o644); err != nil {
		return "", fmt.Errorf("writing encrypted database %s: %w", outPath, err)
	}
	return outPath, nil
}

// resizeFloatPairVector right-pads a vector to min by repeating its
// last element.
func resizeFloatPairVector(v [][2]float64, min int) [][2]float64 {
	if len(v) == 0 {
		v = append(v, [2]float64{0, 0})
	}
	last := v[len(v)-1]
	for len(v) < min {
		v = append(v, last)
	}
	return v
}

func resizeIntVector(v []int, min int) []int {
	if len(v) == 0 {
		v = append(v, 0)
	}
	last := v[len(v)-1]
	for len(v) < min {
		v = append(v, last)
	}
	return v
}

func resizeStringVector(v []string, min int) []string {
	if len(v) == 0 {
		v = append(v, "")
	}
	last := v[len(v)-1]
	for len(v) < min {
		v = append(v, last)
	}
	return v
}

// LayerParams carries the per-layer tuning vectors before normalization.
type LayerParams struct {
	MatchModes      []string
	ErrorRates      [][2]float64
	MaxDistances    []int
	PositionShifts  []int
}

// NormalizeVectors right-pads every layer-configuration vector to
// minVectorLength, replicating the last user-supplied element.
func NormalizeVectors(p *LayerParams) {
	p.MatchModes = resizeStringVector(p.MatchModes, minVectorLength)
	p.ErrorRates = resizeFloatPairVector(p.ErrorRates, minVectorLength)
	p.MaxDistances = resizeIntVector(p.MaxDistances, minVectorLength)
	p.PositionShifts = resizeIntVector(p.PositionShifts, minVectorLength)
}

// Store is the complete, load-once, read-only motif catalog shared by
// reference across all splitter workers.
type Store struct {
	Layers []*PatternLayer
	Fusion *FusionCatalog
}

// Load builds a Store from a database file, one layer-definition file per
// pattern layer, and an optional fusion selection file (empty string
// disables fusion detection).
func Load(databaseFile string, layerFiles []string, params *LayerParams, fusionFile string, usePositionInfo bool) (*Store, error) {
	NormalizeVectors(params)

	store := &Store{}
	for i, layerFile := range layerFiles {
		requiredMode := ""
		if i < len(params.MatchModes) {
			requiredMode = params.MatchModes[i]
		}
		leftErr, rightErr := 0.0, 0.0
		if i < len(params.ErrorRates) {
			leftErr, rightErr = params.ErrorRates[i][0], params.ErrorRates[i][1]
		}
		maxDist := 0
		if i < len(params.MaxDistances) {
			maxDist = params.MaxDistances[i]
		}
		shift := 0
		if i < len(params.PositionShifts) {
			shift = params.PositionShifts[i]
		}

		layer, err := LoadLayer(databaseFile, layerFile, leftErr, rightErr, maxDist, shift, usePositionInfo, requiredMode)
		if err != nil {
			return nil, err
		}
		store.Layers = append(store.Layers, layer)
	}

	if fusionFile != "" {
		fusion, err := LoadFusionCatalog(databaseFile, fusionFile)
		if err != nil {
			return nil, err
		}
		store.Fusion = fusion
	}

	return store, nil
}
