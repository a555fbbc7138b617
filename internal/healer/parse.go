package healer

import "fmt"

// Parse tries the JSON path, then the line path. ok is false when neither
// produced a record; callers then use Placeholders.
func Parse(raw string) (records []QuestionRecord, ok bool) {
	if recs := ParseJSON(raw); len(recs) > 0 {
		return recs, true
	}
	if recs := ParseLines(raw); len(recs) > 0 {
		return recs, true
	}
	return nil, false
}

const DefaultFallbackCount = 3

const placeholderExplanation = "Question de secours : la génération automatique n'a pas produit de contenu exploitable."

// Placeholders builds clearly labelled stand-in questions. count <= 0 falls
// back to DefaultFallbackCount.
func Placeholders(count int) []QuestionRecord {
	if count <= 0 {
		count = DefaultFallbackCount
	}
	out := make([]QuestionRecord, count)
	for i := range out {
		out[i] = QuestionRecord{
			Type:     TypeQCM,
			Question: fmt.Sprintf("[Question de secours] Question par défaut %d ?", i+1),
			Choices: []Choice{
				{Label: "A", Text: "Choix A"},
				{Label: "B", Text: "Choix B"},
				{Label: "C", Text: "Choix C"},
				{Label: "D", Text: "Choix D"},
			},
			AnswerKey:   "A",
			Explanation: placeholderExplanation,
		}
	}
	return out
}
