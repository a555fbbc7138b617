package healer

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// ParseJSON extracts question records from near-JSON model output. It never
// fails; unusable input yields nil. Elements that violate the record
// invariants are dropped individually.
func ParseJSON(raw string) []QuestionRecord {
	if recs, ok := decodeQuestions(Repair(raw)); ok {
		return recs
	}
	block := largestBlock(raw)
	if block == "" {
		return nil
	}
	recs, _ := decodeQuestions(Repair(block))
	return recs
}

// largestBlock isolates the candidate payload in the unrepaired text: from
// the '{' opening the "questions" object (or the first '{') to the last '}'.
func largestBlock(raw string) string {
	start := -1
	if q := strings.Index(raw, `"questions"`); q >= 0 {
		start = strings.LastIndexByte(raw[:q], '{')
	}
	if start < 0 {
		start = strings.IndexByte(raw, '{')
	}
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(raw, '}')
	if end < start {
		return raw[start:]
	}
	return raw[start : end+1]
}

type payload struct {
	Questions []json.RawMessage `json:"questions"`
}

// decodeQuestions reports ok when text is an object with a questions array,
// even if no element survives validation.
func decodeQuestions(text string) ([]QuestionRecord, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	var p payload
	if err := json.Unmarshal([]byte(text), &p); err != nil || p.Questions == nil {
		return nil, false
	}
	out := make([]QuestionRecord, 0, len(p.Questions))
	for _, el := range p.Questions {
		if rec, ok := recordFromJSON(el); ok {
			out = append(out, rec)
		}
	}
	return out, true
}

type rawQuestion struct {
	Type        json.RawMessage `json:"type"`
	Question    json.RawMessage `json:"question"`
	Choices     json.RawMessage `json:"choices"`
	Answer      json.RawMessage `json:"answer"`
	Explanation json.RawMessage `json:"explanation"`
}

func recordFromJSON(el json.RawMessage) (QuestionRecord, bool) {
	var rq rawQuestion
	if err := json.Unmarshal(el, &rq); err != nil {
		return QuestionRecord{}, false
	}

	typ, ok := optionalString(rq.Type)
	if !ok {
		return QuestionRecord{}, false
	}
	question, ok := optionalString(rq.Question)
	if !ok || question == "" {
		return QuestionRecord{}, false
	}
	explanation, ok := optionalString(rq.Explanation)
	if !ok {
		return QuestionRecord{}, false
	}
	var choices []string
	if present(rq.Choices) {
		if err := json.Unmarshal(rq.Choices, &choices); err != nil {
			return QuestionRecord{}, false
		}
	}
	answer, ok := answerString(rq.Answer)
	if !ok {
		return QuestionRecord{}, false
	}

	return validate(strings.ToLower(typ), question, choices, answer, explanation)
}

func present(m json.RawMessage) bool {
	return len(m) > 0 && !bytes.Equal(bytes.TrimSpace(m), []byte("null"))
}

// optionalString decodes a string field; absent or null yields "". Any other
// JSON type is a violation.
func optionalString(m json.RawMessage) (string, bool) {
	if !present(m) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(m, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// answerString accepts a string, or a boolean for true/false questions.
func answerString(m json.RawMessage) (string, bool) {
	if !present(m) {
		return "", false
	}
	var b bool
	if err := json.Unmarshal(m, &b); err == nil {
		if b {
			return "vrai", true
		}
		return "faux", true
	}
	var s string
	if err := json.Unmarshal(m, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

var (
	choiceLabelPrefix = regexp.MustCompile(`^\s*[A-Da-d]\s*[).:]\s*`)
	answerLetter      = regexp.MustCompile(`^\s*([A-Da-d])\s*(?:[).:]|$)`)
)

func validate(typ, question string, choices []string, answer, explanation string) (QuestionRecord, bool) {
	if typ == "" {
		if len(choices) == 0 {
			return QuestionRecord{}, false
		}
		typ = TypeQCM
	}
	rec := QuestionRecord{Type: typ, Question: question, Explanation: explanation}

	switch typ {
	case TypeQCM:
		if len(choices) != 4 {
			return QuestionRecord{}, false
		}
		rec.Choices = make([]Choice, 4)
		for i, c := range choices {
			text := strings.TrimSpace(choiceLabelPrefix.ReplaceAllString(c, ""))
			if text == "" {
				return QuestionRecord{}, false
			}
			rec.Choices[i] = Choice{Label: choiceLabels[i], Text: text}
		}
		key, ok := qcmAnswerKey(answer, rec.Choices)
		if !ok {
			return QuestionRecord{}, false
		}
		rec.AnswerKey = key
	case TypeVF:
		key, ok := vfAnswerKey(answer)
		if !ok {
			return QuestionRecord{}, false
		}
		rec.AnswerKey = key
	case TypeOuvert, TypeCompletion:
		rec.AnswerKey = answer
	default:
		return QuestionRecord{}, false
	}
	return rec, true
}

// qcmAnswerKey accepts "B", "b", "B) text" or the exact text of a choice.
func qcmAnswerKey(answer string, choices []Choice) (string, bool) {
	if m := answerLetter.FindStringSubmatch(answer); m != nil {
		return strings.ToUpper(m[1]), true
	}
	for _, c := range choices {
		if strings.EqualFold(strings.TrimSpace(answer), c.Text) {
			return c.Label, true
		}
	}
	return "", false
}

func vfAnswerKey(answer string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "vrai", "true", "v":
		return "vrai", true
	case "faux", "false", "f":
		return "faux", true
	}
	return "", false
}
