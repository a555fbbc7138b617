package chunk

import (
	"math/rand"
	"strings"
	"testing"
)

func TestShortTextIsSingleChunk(t *testing.T) {
	for _, s := range []string{"", "  padded text  ", strings.Repeat("é", 50)} {
		got := Split(s, 50, 10)
		if len(got) != 1 || got[0] != s {
			t.Fatalf("Split(%q) = %q", s, got)
		}
	}
}

func TestCutsAtSentenceBoundaryPastMidpoint(t *testing.T) {
	text := "First sentence is here. Second sentence runs on for a while! Third one?"
	got := Split(text, 40, 5)
	if got[0] != "First sentence is here." {
		t.Fatalf("first chunk %q", got[0])
	}

	// boundary before the midpoint is ignored; raw cut instead
	text = "Short. " + strings.Repeat("x", 60)
	got = Split(text, 40, 0)
	if got[0] != "Short. "+strings.Repeat("x", 33) {
		t.Fatalf("first chunk %q", got[0])
	}
}

func TestMarkerPriority(t *testing.T) {
	// ". " is preferred to "? " even when the question mark is later
	text := strings.Repeat("a", 22) + ". bb? " + strings.Repeat("c", 30)
	spans := Spans(text, 30, 0)
	if spans[0].End != 23 {
		t.Fatalf("end=%d want 23", spans[0].End)
	}
}

func TestSpansCoverTextWithBoundedOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"la", "cellule", "est.", "vivante!", "pourquoi?", "noyau", "\n", "membrane."}
	for trial := 0; trial < 200; trial++ {
		var b strings.Builder
		for i := 0; i < 50+rng.Intn(400); i++ {
			b.WriteString(words[rng.Intn(len(words))])
			b.WriteByte(' ')
		}
		text := b.String()
		maxSize := 20 + rng.Intn(80)
		overlap := rng.Intn(maxSize / 2)

		spans := Spans(text, maxSize, overlap)
		n := len([]rune(text))
		if spans[0].Start != 0 || spans[len(spans)-1].End != n {
			t.Fatalf("trial %d: spans do not cover text: %+v (n=%d)", trial, spans, n)
		}
		for i, s := range spans {
			if s.End <= s.Start || s.End-s.Start > maxSize {
				t.Fatalf("trial %d: bad span %+v", trial, s)
			}
			if i == 0 {
				continue
			}
			prev := spans[i-1]
			if s.Start > prev.End {
				t.Fatalf("trial %d: gap between %+v and %+v", trial, prev, s)
			}
			if prev.End-s.Start > overlap {
				t.Fatalf("trial %d: overlap %d > %d", trial, prev.End-s.Start, overlap)
			}
		}

		// non-overlap regions reassemble the source exactly
		r := []rune(text)
		var rebuilt strings.Builder
		for i, s := range spans {
			from := s.Start
			if i > 0 {
				from = spans[i-1].End
			}
			rebuilt.WriteString(string(r[from:s.End]))
		}
		if rebuilt.String() != text {
			t.Fatalf("trial %d: reconstruction mismatch", trial)
		}
	}
}

func TestEmptyChunksDropped(t *testing.T) {
	text := "word. " + strings.Repeat(" ", 40) + "end"
	for _, c := range Split(text, 15, 2) {
		if strings.TrimSpace(c) == "" {
			t.Fatalf("empty chunk in %q", Split(text, 15, 2))
		}
	}
}

func TestLargeOverlapStillTerminates(t *testing.T) {
	text := strings.Repeat("abc ", 100)
	spans := Spans(text, 10, 50)
	if spans[len(spans)-1].End != len(text) {
		t.Fatal("did not reach end")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(strings.Repeat("é", 400)); got != 100 {
		t.Fatalf("got %d", got)
	}
}
