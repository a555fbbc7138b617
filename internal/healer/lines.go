package healer

import (
	"regexp"
	"strings"
)

var (
	questionMarker = regexp.MustCompile(`(?m)^[ \t]*Q\d+[ \t]*:`)
	choiceLine     = regexp.MustCompile(`^([A-D])\)\s*(.*)$`)
	answerLine     = regexp.MustCompile(`(?mi)^[ \t]*ANSWER[ \t]*:[ \t]*(.*)$`)
	explanationAt  = regexp.MustCompile(`(?i)EXPLANATION[ \t]*:`)
	spaceRuns      = regexp.MustCompile(`\s+`)
)

// ParseLines reads the Q<n>/A)-D)/ANSWER/EXPLANATION block format. Blocks
// without a usable ANSWER line are dropped; a missing explanation is empty.
func ParseLines(raw string) []QuestionRecord {
	locs := questionMarker.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil
	}
	var out []QuestionRecord
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if rec, ok := parseBlock(raw[loc[1]:end]); ok {
			out = append(out, rec)
		}
	}
	return out
}

func parseBlock(block string) (QuestionRecord, bool) {
	var lines []string
	for _, l := range strings.Split(block, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 7 {
		return QuestionRecord{}, false
	}

	// the question may wrap; it runs until the first choice line
	first := -1
	for i, l := range lines {
		if choiceLine.MatchString(l) {
			first = i
			break
		}
	}
	if first < 1 {
		return QuestionRecord{}, false
	}
	question := strings.Join(lines[:first], " ")

	var choices [4]string
	for _, l := range lines[first:] {
		m := choiceLine.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		idx := int(m[1][0] - 'A')
		if choices[idx] == "" {
			choices[idx] = strings.TrimSpace(m[2])
		}
	}
	rec := QuestionRecord{Type: TypeQCM, Question: question, Choices: make([]Choice, 4)}
	for i, c := range choices {
		if c == "" {
			return QuestionRecord{}, false
		}
		rec.Choices[i] = Choice{Label: choiceLabels[i], Text: c}
	}

	m := answerLine.FindStringSubmatch(block)
	if m == nil {
		return QuestionRecord{}, false
	}
	key, ok := qcmAnswerKey(m[1], rec.Choices)
	if !ok {
		return QuestionRecord{}, false
	}
	rec.AnswerKey = key

	if loc := explanationAt.FindStringIndex(block); loc != nil {
		rest := block[loc[1]:]
		if a := answerLine.FindStringIndex(rest); a != nil {
			rest = rest[:a[0]]
		}
		rec.Explanation = strings.TrimSpace(spaceRuns.ReplaceAllString(rest, " "))
	}
	return rec, true
}
