// Package fusion screens a read's trimmed interior for chimeric motifs
// using a Bloom-filter k-mer prescreen ahead of the exact matcher, ported
// from the k-mer sketch and multi-hash rolling-hash idiom used by the
// screening step of the teacher pipeline.
package fusion

import (
	"fmt"
	"math/rand"

	"github.com/chmduquesne/rollinghash"
	"github.com/chmduquesne/rollinghash/buzhash32"
	"github.com/golang-collections/go-datastructures/bitarray"

	"github.com/cherryamme/readchop/internal/matcher"
	"github.com/cherryamme/readchop/internal/patterns"
)

// Detector prescreens candidate fusion-motif positions with a Bloom
// filter built from every k-mer in the fusion catalog, then confirms
// candidates with an exact Myers search. The filter keys on exact k-mer
// bytes: a window that differs from every catalog k-mer at every
// k-mer-sized offset (mismatches spread widely enough that no window is
// error-free) will not pass the filter and is never handed to the exact
// search, even though it might still be within the configured error
// budget. kmerWidth should be chosen short relative to the error budget
// to keep this gap small.
type Detector struct {
	catalog   *patterns.FusionCatalog
	kmerWidth int
	errorRate float64
	minDinuc  int

	bloomSize uint64
	tables    [][256]uint32
	bits      bitarray.BitArray
}

// Hit is a confirmed fusion-motif occurrence.
type Hit struct {
	Name  string
	Score int
	Start int
	End   int
}

func genTables(numHash int) [][256]uint32 {
	tables := make([][256]uint32, numHash)
	for j := 0; j < numHash; j++ {
		seen := make(map[uint32]bool)
		for i := 0; i < 256; i++ {
			for {
				x := uint32(rand.Int63())
				if !seen[x] {
					tables[j][i] = x
					seen[x] = true
					break
				}
			}
		}
	}
	return tables
}

func newHashes(tables [][256]uint32) []rollinghash.Hash32 {
	hashes := make([]rollinghash.Hash32, len(tables))
	for j, tbl := range tables {
		hashes[j] = buzhash32.NewFromUint32Array(tbl)
	}
	return hashes
}

func countDinuc(seq []byte, wk []int) int {
	for i := range wk {
		wk[i] = 0
	}
	var last, n int
	for i, x := range seq {
		var v int
		switch x {
		case 'A':
			v = 0
		case 'T':
			v = 1
		case 'G':
			v = 2
		case 'C':
			v = 3
		default:
			v = 4
		}
		if i > 0 {
			k := 5*last + v
			if wk[k] == 0 {
				n++
			}
			wk[k]++
		}
		last = v
	}
	return n
}

// NewDetector builds a Bloom filter over every kmerWidth-length window of
// every motif in catalog. bloomSize is the filter size in bits, numHash
// the number of independent hash functions, minDinuc the minimum
// dinucleotide diversity a k-mer window must show to be indexed (skips
// low-complexity runs that would otherwise saturate the filter).
func NewDetector(catalog *patterns.FusionCatalog, kmerWidth int, errorRate float64, numHash int, bloomSize uint64, minDinuc int) (*Detector, error) {
	if catalog.Empty() {
		return nil, nil
	}
	if kmerWidth < 1 {
		return nil, fmt.Errorf("fusion k-mer width must be positive, got %d", kmerWidth)
	}

	d := &Detector{
		catalog:   catalog,
		kmerWidth: kmerWidth,
		errorRate: errorRate,
		minDinuc:  minDinuc,
		bloomSize: bloomSize,
		tables:    genTables(numHash),
	}
	d.bits = bitarray.NewBitArray(bloomSize)

	hashes := newHashes(d.tables)
	wk := make([]int, 25)
	for _, name := range catalog.Names {
		motif := catalog.Sequences[name]
		if len(motif) < kmerWidth {
			continue
		}
		for start := 0; start+kmerWidth <= len(motif); start++ {
			window := motif[start : start+kmerWidth]
			if countDinuc(window, wk) < minDinuc {
				continue
			}
			for _, ha := range hashes {
				ha.Reset()
				ha.Write(window)
				x := uint64(ha.Sum32()) % d.bloomSize
				d.bits.SetBit(x)
			}
		}
	}
	return d, nil
}

// candidateAt reports whether seq's window starting at pos passes the
// Bloom filter membership check for every hash function.
func (d *Detector) candidateAt(hashes []rollinghash.Hash32, seq []byte, pos int) bool {
	window := seq[pos : pos+d.kmerWidth]
	for _, ha := range hashes {
		ha.Reset()
		ha.Write(window)
		x := uint64(ha.Sum32()) % d.bloomSize
		bit, err := d.bits.GetBit(x)
		if err != nil || !bit {
			return false
		}
	}
	return true
}

// Detect scans seq for candidate fusion-motif positions via the Bloom
// prescreen, and confirms each candidate against every catalog motif
// with an exact Myers search. Returns every confirmed hit, in the order
// found.
func (d *Detector) Detect(seq []byte) []Hit {
	if d == nil || len(seq) < d.kmerWidth {
		return nil
	}

	hashes := newHashes(d.tables)
	wk := make([]int, 25)
	var hits []Hit
	confirmed := make(map[[2]int]bool)

	for pos := 0; pos+d.kmerWidth <= len(seq); pos++ {
		window := seq[pos : pos+d.kmerWidth]
		if countDinuc(window, wk) < d.minDinuc {
			continue
		}
		if !d.candidateAt(hashes, seq, pos) {
			continue
		}

		for _, name := range d.catalog.Names {
			motif := d.catalog.Sequences[name]
			maxDist := matcher.MaxDistance(motif, d.errorRate)
			winStart := pos - maxDist
			if winStart < 0 {
				winStart = 0
			}
			winEnd := pos + len(motif) + maxDist
			if winEnd > len(seq) {
				winEnd = len(seq)
			}
			score, s, e, ok := matcher.BestMatch(seq[winStart:winEnd], motif, maxDist)
			if !ok {
				continue
			}
			key := [2]int{winStart + s, winStart + e}
			if confirmed[key] {
				continue
			}
			confirmed[key] = true
			hits = append(hits, Hit{Name: name, Score: score, Start: winStart + s, End: winStart + e})
		}
	}
	return hits
}
