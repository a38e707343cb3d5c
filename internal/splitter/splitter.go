// Package splitter runs the per-record, per-layer motif search that
// classifies and trims a read, ported from the original splitter's
// windowed search and pair-classification state machine.
package splitter

import (
	"fmt"

	"github.com/cherryamme/readchop/internal/matcher"
	"github.com/cherryamme/readchop/internal/patterns"
)

// Match is the transient per-layer/per-side search outcome. Found=false
// means the other fields carry no meaning.
type Match struct {
	Name  string
	Score int
	Start int
	End   int
	Found bool
}

// SplitResult is the per-layer classification outcome.
type SplitResult struct {
	MatchMode   string // single, dual, left, right, unknown
	PairName    string
	Class       string
	Orientation string // fs, rs, unknown
	Left        Match
	Right       Match
}

// Info renders a SplitResult as the four tab-separated diagnostic fields
// appended to a record's log line for this layer.
func (s SplitResult) Info() string {
	return fmt.Sprintf("%s\t%s\t%s\t%s:(%s,%d,%d,%d);(%s,%d,%d,%d)",
		s.MatchMode, s.PairName, s.Class, s.Orientation,
		s.Left.Name, s.Left.Score, s.Left.Start, s.Left.End,
		s.Right.Name, s.Right.Score, s.Right.Start, s.Right.End)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// findBest scans table's motifs (in layer.Names order, for deterministic
// tie-breaking) against seq, restricted to a per-side search window.
//
// When refined is false, window is the fixed [start,end) frame regardless
// of motif length. When refined is true, the window is recomputed per
// motif from the shift-extension formula, using frame as the prior
// layer's narrowed [a,b) interval.
func findBest(names []string, table map[string][]byte, seq []byte, errorRate float64, side string, frame [2]int, shift int, refined bool) Match {
	n := len(seq)
	var best Match

	for _, name := range names {
		motif := table[name]
		if len(motif) == 0 {
			continue
		}

		var winStart, winEnd int
		if refined {
			m := len(motif)
			switch side {
			case "left":
				winStart = clampInt(frame[0]-shift, 0, n)
				winEnd = clampInt(frame[0]+m+shift, 0, n)
			case "right":
				winStart = clampInt(frame[1]-m-shift, 0, n)
				winEnd = clampInt(frame[1]+shift, 0, n)
			default:
				winStart, winEnd = frame[0], frame[1]
			}
		} else {
			winStart, winEnd = clampInt(frame[0], 0, n), clampInt(frame[1], 0, n)
		}
		if winStart >= winEnd {
			continue
		}

		maxDist := matcher.MaxDistance(motif, errorRate)
		score, s, e, ok := matcher.BestMatch(seq[winStart:winEnd], motif, maxDist)
		if !ok {
			continue
		}
		if !best.Found || score < best.Score {
			best = Match{Name: name, Score: score, Start: winStart + s, End: winStart + e, Found: true}
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// classify implements the §4.3 step-3 classification state machine for a
// single layer given its left and right matcher outcomes.
func classify(layer *patterns.PatternLayer, left, right Match) SplitResult {
	switch {
	case left.Found && right.Found:
		key := left.Name + "_" + right.Name
		if entry, ok := layer.Pairs[key]; ok {
			return SplitResult{MatchMode: "dual", PairName: entry.PairName, Class: entry.Class, Orientation: entry.Orientation, Left: left, Right: right}
		}
		if absInt(right.Score-left.Score) <= layer.MaxDistance {
			return SplitResult{MatchMode: "dual", PairName: key, Class: "unknown", Orientation: "unknown", Left: left, Right: right}
		}
		if left.Score < right.Score {
			return classifyFromPartial(layer, "left", left.Name+"_", left, right)
		}
		return classifyFromPartial(layer, "right", "_"+right.Name, left, right)

	case right.Found:
		return classifyFromPartial(layer, "right", "_"+right.Name, left, right)

	case left.Found:
		return classifyFromPartial(layer, "left", left.Name+"_", left, right)

	default:
		return SplitResult{MatchMode: "unknown", PairName: "unknown", Class: "unknown", Orientation: "unknown", Left: left, Right: right}
	}
}

func classifyFromPartial(layer *patterns.PatternLayer, mode, partial string, left, right Match) SplitResult {
	if entry, ok := layer.LookupBySubstring(partial); ok {
		return SplitResult{MatchMode: mode, PairName: entry.PairName, Class: entry.Class, Orientation: entry.Orientation, Left: left, Right: right}
	}
	return SplitResult{MatchMode: mode, PairName: partial, Class: "unknown", Orientation: "unknown", Left: left, Right: right}
}

// Split runs every configured pattern layer over seq in order, applying
// cross-layer position refinement when a layer enables it and both sides
// matched, and returns one SplitResult per layer.
func Split(seq []byte, layers []*patterns.PatternLayer, windowLeft, windowRight int) []SplitResult {
	n := len(seq)
	leftBound := clampInt(windowLeft, 0, n)
	rightBound := clampInt(n-windowRight, 0, n)

	results := make([]SplitResult, 0, len(layers))

	refined := false
	var refFrame [2]int

	for _, layer := range layers {
		var left, right Match
		if refined {
			left = findBest(layer.Names, layer.Forward, seq, layer.LeftErrorRate, "left", refFrame, layer.PositionShift, true)
			right = findBest(layer.Names, layer.Reverse, seq, layer.RightErrorRate, "right", refFrame, layer.PositionShift, true)
		} else {
			left = findBest(layer.Names, layer.Forward, seq, layer.LeftErrorRate, "left", [2]int{0, leftBound}, 0, false)
			right = findBest(layer.Names, layer.Reverse, seq, layer.RightErrorRate, "right", [2]int{rightBound, n}, 0, false)
		}

		results = append(results, classify(layer, left, right))

		if layer.UsePositionInfo && left.Found && right.Found {
			refined = true
			refFrame = [2]int{left.Start, right.End}
		} else {
			refined = false
		}
	}

	return results
}
