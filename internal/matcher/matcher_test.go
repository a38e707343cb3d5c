package matcher

import "testing"

func TestBestMatchExact(t *testing.T) {
	text := []byte("GGGGACGTGGGG")
	motif := []byte("ACGT")
	score, start, end, ok := BestMatch(text, motif, MaxDistance(motif, 0.25))
	if !ok {
		t.Fatalf("expected a match")
	}
	if score != 0 || start != 4 || end != 8 {
		t.Fatalf("got score=%d start=%d end=%d, want 0,4,8", score, start, end)
	}
}

func TestBestMatchWithMismatch(t *testing.T) {
	text := []byte("GGGGACTTGGGG")
	motif := []byte("ACGT")
	maxDist := MaxDistance(motif, 0.25) // floor(4*0.25) = 1
	score, start, end, ok := BestMatch(text, motif, maxDist)
	if !ok {
		t.Fatalf("expected a match within distance %d", maxDist)
	}
	if score > maxDist {
		t.Fatalf("score %d exceeds max distance %d", score, maxDist)
	}
	if start < 0 || end > len(text) || start > end {
		t.Fatalf("invalid coordinates start=%d end=%d", start, end)
	}
}

func TestBestMatchNoMatch(t *testing.T) {
	text := []byte("GGGGGGGGGGGG")
	motif := []byte("ACGT")
	_, _, _, ok := BestMatch(text, motif, 0)
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestBestMatchWildcard(t *testing.T) {
	text := []byte("TTACNTGG")
	motif := []byte("ACNT")
	score, start, end, ok := BestMatch(text, motif, 0)
	if !ok {
		t.Fatalf("expected wildcard match")
	}
	if score != 0 || start != 2 || end != 6 {
		t.Fatalf("got score=%d start=%d end=%d, want 0,2,6", score, start, end)
	}
}

func TestMaxDistanceTrimsFlankingWildcards(t *testing.T) {
	// Flanking Ns should not inflate the error budget.
	motif := []byte("NNACGTNN")
	if d := MaxDistance(motif, 0.25); d != 1 {
		t.Fatalf("got max distance %d, want 1 (floor(4*0.25))", d)
	}
}

func TestBestMatchEarliestEndTieBreak(t *testing.T) {
	// Two equally good placements; the earlier end must win.
	text := []byte("ACGTxxACGT")
	motif := []byte("ACGT")
	score, _, end, ok := BestMatch(text, motif, 0)
	if !ok || score != 0 {
		t.Fatalf("expected exact match")
	}
	if end != 4 {
		t.Fatalf("got end=%d, want 4 (earliest exact match)", end)
	}
}

func TestReverseComplementInvolution(t *testing.T) {
	seq := []byte("ACGTacgt")
	rc, err := ReverseComplement(seq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rc2, err := ReverseComplement(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(rc2) != string(seq) {
		t.Fatalf("got %q, want %q", rc2, seq)
	}
}

func TestReverseComplementInvalidBase(t *testing.T) {
	_, err := ReverseComplement([]byte("ACGN"))
	if err == nil {
		t.Fatalf("expected error for N in reverse complement input")
	}
}

func TestBestMatchLongPatternFallsBackToDP(t *testing.T) {
	motif := make([]byte, 70)
	for i := range motif {
		motif[i] = "ACGT"[i%4]
	}
	text := append([]byte("GGGG"), motif...)
	text = append(text, []byte("GGGG")...)
	score, start, end, ok := BestMatch(text, motif, 0)
	if !ok || score != 0 {
		t.Fatalf("expected exact long-pattern match, got ok=%v score=%d", ok, score)
	}
	if start != 4 || end != 4+len(motif) {
		t.Fatalf("got start=%d end=%d, want 4,%d", start, end, 4+len(motif))
	}
}
