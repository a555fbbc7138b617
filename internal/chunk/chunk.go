// Package chunk splits extracted document text into overlapping windows sized
// for one generation request.
package chunk

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxSize = 4000
	DefaultOverlap = 200
)

// Searched in this order; the first one found past the window midpoint wins.
var sentenceMarkers = [][]rune{
	[]rune(". "),
	[]rune(".\n"),
	[]rune("! "),
	[]rune("? "),
}

// Span is a half-open rune range [Start, End) of the source text.
type Span struct {
	Start, End int
}

// Split returns the trimmed, non-empty chunks of text. Text that fits in one
// window is returned unchanged as the only chunk.
func Split(text string, maxSize, overlap int) []string {
	if maxSize <= 0 || utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}
	r := []rune(text)
	var out []string
	for _, s := range Spans(text, maxSize, overlap) {
		if c := strings.TrimSpace(string(r[s.Start:s.End])); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Spans computes the window boundaries used by Split. Consecutive spans
// overlap by at most overlap runes and together cover the whole text.
func Spans(text string, maxSize, overlap int) []Span {
	r := []rune(text)
	n := len(r)
	if maxSize <= 0 || n <= maxSize {
		return []Span{{0, n}}
	}
	if overlap < 0 {
		overlap = 0
	}

	var spans []Span
	start := 0
	for start < n {
		end := start + maxSize
		if end >= n {
			end = n
		} else if cut := sentenceCut(r, start, end, maxSize); cut > 0 {
			end = cut
		}
		spans = append(spans, Span{start, end})
		if end == n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// sentenceCut returns the index just past the terminal punctuation of the
// last marker in r[start:end], or 0 when none lies past the midpoint.
func sentenceCut(r []rune, start, end, maxSize int) int {
	for _, m := range sentenceMarkers {
		pos := lastIndex(r, m, start, end)
		if pos > start+maxSize/2 {
			return pos + 1
		}
	}
	return 0
}

func lastIndex(r, m []rune, start, end int) int {
	for i := end - len(m); i >= start; i-- {
		match := true
		for j := range m {
			if r[i+j] != m[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// EstimateTokens approximates the token count as runes/4. It is an estimate
// for budgeting, not a tokenizer.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
