package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankRuns       = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans raw extracted text: horizontal whitespace runs become one
// space, 3+ newlines become two, lines are trimmed and non-blank lines under
// three characters are dropped as noise.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = blankRuns.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && utf8.RuneCountInString(line) < 3 {
			continue
		}
		kept = append(kept, line)
	}
	// dropped lines can leave new blank runs behind
	s = blankRuns.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
