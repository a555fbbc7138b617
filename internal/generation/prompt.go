package generation

import (
	"fmt"
	"strings"
)

type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatLines OutputFormat = "lines"
)

func ParseOutputFormat(s string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatLines)) {
		return FormatLines
	}
	return FormatJSON
}

// Truncate keeps the first max runes of text. max <= 0 disables truncation.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}

var typeLabels = map[string]string{
	"qcm":        "QCM à 4 choix (type \"qcm\")",
	"vf":         "vrai/faux (type \"vf\", answer = \"vrai\" ou \"faux\")",
	"ouvert":     "question ouverte (type \"ouvert\", answer = réponse attendue)",
	"completion": "texte à compléter (type \"completion\", answer = mot manquant)",
}

// BuildPrompt renders the instruction prompt for one chunk. The chunk text is
// expected to be truncated already.
func BuildPrompt(req Request, format OutputFormat) string {
	n := req.NbQuestions
	if n <= 0 {
		n = 10
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "intermediaire"
	}
	types := req.QuestionTypes
	if len(types) == 0 || format == FormatLines {
		types = []string{"qcm"}
	}

	var b strings.Builder
	b.WriteString("Tu es une IA experte en génération de QCM universitaires.\n\n")
	fmt.Fprintf(&b, "OBJECTIF : à partir du texte fourni, génère EXACTEMENT %d questions pertinentes, claires et bien formulées.\n", n)
	fmt.Fprintf(&b, "Niveau de difficulté : %s.\n", difficulty)
	b.WriteString("Types de questions autorisés :\n")
	for _, t := range types {
		label, ok := typeLabels[t]
		if !ok {
			continue
		}
		b.WriteString("- " + label + "\n")
	}
	b.WriteString(`
RÈGLES :
- Formuler de VRAIES QUESTIONS (avec "?"), jamais de titres.
- Tester la compréhension du contenu, pas des détails superficiels.
- AUCUNE invention hors du texte.
- Pour un QCM : EXACTEMENT 4 choix A, B, C, D et des distracteurs plausibles.
`)

	switch format {
	case FormatLines:
		b.WriteString(`
FORMAT EXACT ATTENDU (une question par bloc, sans autre texte) :
Q1: Texte de la question ?
A) ...
B) ...
C) ...
D) ...
ANSWER: A
EXPLANATION: Explication ici.
`)
	default:
		b.WriteString(`
FORMAT EXACT ATTENDU (JSON strict) :
{
  "questions": [
    {
      "type": "qcm",
      "question": "Texte de la question ?",
      "choices": ["A) ...", "B) ...", "C) ...", "D) ..."],
      "answer": "A",
      "explanation": "Explication ici."
    }
  ]
}
`)
	}

	b.WriteString("\nTEXTE :\n")
	b.WriteString(req.Text)
	b.WriteString("\n\nRÉPONDS UNIQUEMENT DANS LE FORMAT CI-DESSUS.\n")
	return b.String()
}
