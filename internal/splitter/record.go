package splitter

import (
	"strconv"
	"strings"

	"github.com/cherryamme/readchop/internal/patterns"
)

// namesPerRecord caps how many layer outcomes feed the output filename
// fragment and the record id suffix.
const namesPerRecord = 3

// padSentinel fills name/class slots past the last configured layer.
const padSentinel = "default"

// ClassifiedRead aggregates a single record's per-layer SplitResults into
// the fields the pipeline needs to pick an output file, trim the
// sequence, and emit a diagnostic log line.
type ClassifiedRead struct {
	ID     string
	Length int
	Class  string // valid, filtered, unknown, fusion

	MatchNames []string // per-layer pair/partial name, right-padded to namesPerRecord
	MatchTypes []string // per-layer class label, right-padded to namesPerRecord
	Strand     string   // fs, rs, or unknown

	CutLeft  int
	CutRight int

	OutputFragment string // per-layer list reversed and joined by "/"
	RecordIDSuffix string // same list, forward order, joined by idSeparator

	Results []SplitResult
}

func padRight(v []string, n int) []string {
	out := append([]string(nil), v...)
	for len(out) < n {
		out = append(out, padSentinel)
	}
	return out
}

// updateMatchNames builds the per-layer name and class-label lists in
// layer order. A layer whose achieved match_mode fails its configured
// required mode has its name/class entries forced to "unknown" and the
// record's overall class forced to "unknown"; a layer with no configured
// requirement is accepted regardless of its achieved mode. Both lists are
// then right-padded to namesPerRecord with the "default" sentinel. The
// record's strand is derived from the per-layer orientations: unanimous
// and not "unknown" wins, otherwise "unknown".
func (c *ClassifiedRead) updateMatchNames(layers []*patterns.PatternLayer) {
	names := make([]string, len(c.Results))
	types := make([]string, len(c.Results))
	orientations := make([]string, len(c.Results))

	for i, r := range c.Results {
		names[i] = r.PairName
		types[i] = r.Class
		orientations[i] = r.Orientation

		var required string
		if i < len(layers) {
			required = layers[i].RequiredMode
		}
		if required != "" && !compareMode(required, r.MatchMode) {
			names[i] = "unknown"
			types[i] = "unknown"
			c.Class = "unknown"
		}
	}

	c.MatchNames = padRight(names, namesPerRecord)
	c.MatchTypes = padRight(types, namesPerRecord)
	c.Strand = deriveStrand(orientations)
}

// compareMode reports whether the achieved mode satisfies the required
// mode: the achieved value must be lexicographically less than or equal
// to the required value ("dual" <= "dual", "dual" <= "single", but
// not "single" <= "dual").
func compareMode(required, actual string) bool {
	return actual <= required
}

// deriveStrand returns the single orientation shared by every layer, or
// "unknown" when the layers disagree, are all absent, or agree on
// "unknown" itself.
func deriveStrand(orientations []string) string {
	if len(orientations) == 0 {
		return "unknown"
	}
	first := orientations[0]
	for _, o := range orientations[1:] {
		if o != first {
			return "unknown"
		}
	}
	if first == "" || first == "unknown" {
		return "unknown"
	}
	return first
}

// updateOutputFragment builds the output path fragment and record id
// suffix from MatchNames/MatchTypes, selecting which list to use
// according to writeType ("names" or "type"). This runs unconditionally,
// independent of the record's final class; callers gate writing on
// WriteEligible separately.
func (c *ClassifiedRead) updateOutputFragment(writeType, idSeparator string) {
	var parts []string
	if writeType == "type" {
		parts = c.MatchTypes
	} else {
		parts = c.MatchNames
	}

	c.RecordIDSuffix = strings.Join(parts, idSeparator)

	reversed := make([]string, len(parts))
	for i, p := range parts {
		reversed[len(parts)-1-i] = p
	}
	c.OutputFragment = strings.Join(reversed, "/")
}

// applyLengthFilter forces the class to "filtered" when the original
// (untrimmed) record length doesn't exceed minLength. This overwrites any
// earlier classification, including "unknown" from a failed mode check.
func (c *ClassifiedRead) applyLengthFilter(seqLen, minLength int) {
	if seqLen <= minLength {
		c.Class = "filtered"
	}
}

// calculateTrimPositions derives [CutLeft, CutRight) from trimMode: 0
// keeps only the first layer's outer span (first left matcher's end to
// first right matcher's start, i.e. excludes both motifs); a value in
// [1, len(Results)] keeps that one-indexed layer's own motif span (that
// layer's left matcher's start to its right matcher's end, i.e. retains
// the motifs); anything else disables trimming entirely. CutRight is left
// at its raw value, including 0 when no right-side match was recorded —
// applyCutOrderCheck must see the unclamped positions, since a left-only
// match (CutLeft>0, CutRight=0) is exactly the inverted-interval case it
// needs to catch. The zero-means-full-length fallback is applied only
// when the output slice is actually built, not here.
func (c *ClassifiedRead) calculateTrimPositions(seqLen, trimMode int) {
	var cutLeft, cutRight int

	switch {
	case trimMode == 0:
		if len(c.Results) > 0 {
			cutLeft = c.Results[0].Left.End
			cutRight = c.Results[0].Right.Start
		} else {
			cutRight = seqLen
		}
	case trimMode >= 1 && trimMode <= len(c.Results):
		r := c.Results[trimMode-1]
		cutLeft = r.Left.Start
		cutRight = r.Right.End
	default:
		cutRight = seqLen
	}

	c.CutLeft = cutLeft
	c.CutRight = cutRight
}

// applyCutOrderCheck forces the class to "unknown" when the raw trim
// interval is inverted (left-only matches leave CutRight at 0, which is
// always < a positive CutLeft), overriding any earlier classification
// including "filtered".
func (c *ClassifiedRead) applyCutOrderCheck() {
	if c.CutLeft > c.CutRight {
		c.Class = "unknown"
	}
}

// ApplyFusionDetection forces the class to "fusion" when a chimeric motif
// was detected in the record's trimmed interior, taking precedence over
// any prior classification including "filtered" or "unknown".
func (c *ClassifiedRead) ApplyFusionDetection(detected bool) {
	if detected {
		c.Class = "fusion"
	}
}

// WriteEligible reports whether this record should be written to its
// output fragment: only "valid"-classified records are ever written.
func (c *ClassifiedRead) WriteEligible() bool {
	return c.Class == "valid"
}

// OutputID builds the final record id written to the FASTQ output:
// "{origID}{sep}{strand}{sep}{recordIDSuffix}".
func (c *ClassifiedRead) OutputID(origID, idSeparator string) string {
	return origID + idSeparator + c.Strand + idSeparator + c.RecordIDSuffix
}

// ToTSV renders the diagnostic log line for this record: id, length,
// class, then one tab-block per layer from SplitResult.Info.
func (c *ClassifiedRead) ToTSV() string {
	fields := []string{c.ID, strconv.Itoa(c.Length), c.Class}
	for _, r := range c.Results {
		fields = append(fields, r.Info())
	}
	return strings.Join(fields, "\t")
}

// BuildClassifiedRead runs the full per-record post-processing pipeline
// over a set of per-layer SplitResults: name/type extraction with mode
// validation and strand derivation, output-fragment construction, length
// filtering, and trim-interval calculation. Fusion detection is applied
// separately once the caller has scanned the trimmed interior, via
// ApplyFusionDetection.
func BuildClassifiedRead(id string, seqLen int, layers []*patterns.PatternLayer, results []SplitResult, minLength, trimMode int, writeType, idSeparator string) *ClassifiedRead {
	c := &ClassifiedRead{ID: id, Length: seqLen, Class: "valid", Results: results}
	c.updateMatchNames(layers)
	c.updateOutputFragment(writeType, idSeparator)
	c.applyLengthFilter(seqLen, minLength)
	c.calculateTrimPositions(seqLen, trimMode)
	c.applyCutOrderCheck()
	return c
}
