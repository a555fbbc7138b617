// Package healer turns raw model output into validated question records. It
// repairs near-JSON, falls back to a line-oriented format, and produces
// placeholder questions when neither yields anything.
package healer

const (
	TypeQCM        = "qcm"
	TypeVF         = "vf"
	TypeOuvert     = "ouvert"
	TypeCompletion = "completion"
)

var choiceLabels = [4]string{"A", "B", "C", "D"}

type Choice struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionRecord is the parser's output contract. A qcm record has exactly
// four choices labelled A-D and an AnswerKey among them; a vf record has no
// choices and AnswerKey "vrai" or "faux"; ouvert and completion records have
// no choices and a non-empty free-text key.
type QuestionRecord struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Choices     []Choice `json:"choices,omitempty"`
	AnswerKey   string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// ChoiceText returns the text of the choice labelled label, or "".
func (r QuestionRecord) ChoiceText(label string) string {
	for _, c := range r.Choices {
		if c.Label == label {
			return c.Text
		}
	}
	return ""
}
