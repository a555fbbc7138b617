package healer

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

const wellFormed = `{"questions": [
  {"type": "qcm", "question": "Quel organite produit l'ATP ?", "choices": ["A) Le noyau", "B) La mitochondrie", "C) Le ribosome", "D) L'appareil de Golgi"], "answer": "B", "explanation": "La respiration cellulaire a lieu dans la mitochondrie."},
  {"type": "qcm", "question": "Où se trouve l'ADN ?", "choices": ["A) Dans le noyau", "B) Dans la membrane", "C) Dans le cytoplasme", "D) Dans la paroi"], "answer": "A", "explanation": "L'ADN est contenu dans le noyau."},
  {"type": "vf", "question": "La cellule végétale possède une paroi.", "answer": "Vrai", "explanation": ""},
  {"type": "completion", "question": "La photosynthèse produit du ___.", "answer": "glucose"}
]}`

func TestParseWellFormedJSONReturnsExactlyN(t *testing.T) {
	recs, ok := Parse(wellFormed)
	if !ok || len(recs) != 4 {
		t.Fatalf("ok=%v len=%d", ok, len(recs))
	}
	want := QuestionRecord{
		Type:     TypeQCM,
		Question: "Quel organite produit l'ATP ?",
		Choices: []Choice{
			{"A", "Le noyau"}, {"B", "La mitochondrie"}, {"C", "Le ribosome"}, {"D", "L'appareil de Golgi"},
		},
		AnswerKey:   "B",
		Explanation: "La respiration cellulaire a lieu dans la mitochondrie.",
	}
	if !reflect.DeepEqual(recs[0], want) {
		t.Fatalf("record 0:\n got %+v\nwant %+v", recs[0], want)
	}
	if recs[1].AnswerKey != "A" || recs[1].ChoiceText("A") != "Dans le noyau" {
		t.Fatalf("record 1: %+v", recs[1])
	}
	if recs[2].Type != TypeVF || recs[2].AnswerKey != "vrai" || recs[2].Choices != nil {
		t.Fatalf("record 2: %+v", recs[2])
	}
	if recs[3].Type != TypeCompletion || recs[3].AnswerKey != "glucose" || recs[3].Explanation != "" {
		t.Fatalf("record 3: %+v", recs[3])
	}
}

func TestParseTruncatedJSON(t *testing.T) {
	raw := `{"questions": [{"type":"qcm","question":"X?","choices":["A) a","B) b","C) c","D) d"],"answer":"B","explanation":"e"`
	recs, ok := Parse(raw)
	if !ok || len(recs) != 1 {
		t.Fatalf("ok=%v recs=%+v", ok, recs)
	}
	if recs[0].AnswerKey != "B" || recs[0].ChoiceText("B") != "b" {
		t.Fatalf("record: %+v", recs[0])
	}
}

func TestParseJSONTruncatedMidElementKeepsCompleteOnes(t *testing.T) {
	raw := `{"questions": [{"type":"qcm","question":"X?","choices":["a","b","c","d"],"answer":"C"},{"type":"qcm","quest`
	recs := ParseJSON(raw)
	if len(recs) != 1 || recs[0].AnswerKey != "C" {
		t.Fatalf("recs=%+v", recs)
	}
}

func TestParseJSONSecondAttemptFindsQuestionsBlock(t *testing.T) {
	raw := `Contexte {"note": "brouillon"} puis la réponse : {"questions": [{"question":"Y?","choices":["A. un","B. deux","C. trois","D. quatre"],"answer":"D) quatre"}]}`
	recs := ParseJSON(raw)
	if len(recs) != 1 {
		t.Fatalf("recs=%+v", recs)
	}
	if recs[0].Type != TypeQCM || recs[0].AnswerKey != "D" || recs[0].ChoiceText("A") != "un" {
		t.Fatalf("record: %+v", recs[0])
	}
}

func TestParseJSONDropsInvalidElements(t *testing.T) {
	raw := `{"questions": [
	  {"type": "qcm", "question": "trois choix", "choices": ["a", "b", "c"], "answer": "A"},
	  {"type": "qcm", "question": "mauvaise clé", "choices": ["a", "b", "c", "d"], "answer": "E"},
	  {"type": "qcm", "question": 42, "choices": ["a", "b", "c", "d"], "answer": "A"},
	  {"type": "vf", "question": "pas de booléen", "answer": "peut-être"},
	  {"type": "essai", "question": "type inconnu", "answer": "x"},
	  {"question": "sans type ni choix", "answer": "x"},
	  {"type": "ouvert", "question": "sans réponse"},
	  {"question": "sans type mais avec choix", "choices": ["a", "b", "c", "d"], "answer": "b"},
	  {"type": "vf", "question": "booléen JSON", "answer": false},
	  {"type": "qcm", "question": "réponse par texte", "choices": ["Paris", "Lyon", "Nice", "Lille"], "answer": "lyon"}
	]}`
	recs := ParseJSON(raw)
	if len(recs) != 3 {
		t.Fatalf("want 3 records, got %d: %+v", len(recs), recs)
	}
	if recs[0].Type != TypeQCM || recs[0].AnswerKey != "B" {
		t.Fatalf("untyped with choices: %+v", recs[0])
	}
	if recs[1].AnswerKey != "faux" {
		t.Fatalf("vf bool: %+v", recs[1])
	}
	if recs[2].AnswerKey != "B" {
		t.Fatalf("answer by text: %+v", recs[2])
	}
}

const linesOutput = `Voici les questions demandées :

Q1: Quel gaz les plantes absorbent-elles ?
A) L'oxygène
B) Le dioxyde de carbone
C) L'azote
D) L'hélium
ANSWER: B
EXPLANATION: Les plantes captent le CO2
pour la photosynthèse.

Q2: Question sans réponse ?
A) un
B) deux
C) trois
D) quatre
EXPLANATION: rien

Q3: Quelle molécule stocke
l'information génétique ?
A) L'ADN
B) Le glucose
C) L'eau
D) Le lipide
ANSWER: A) L'ADN
`

func TestParseLines(t *testing.T) {
	recs := ParseLines(linesOutput)
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %+v", recs)
	}
	if recs[0].Question != "Quel gaz les plantes absorbent-elles ?" || recs[0].AnswerKey != "B" {
		t.Fatalf("record 0: %+v", recs[0])
	}
	if recs[0].Explanation != "Les plantes captent le CO2 pour la photosynthèse." {
		t.Fatalf("wrapped explanation: %q", recs[0].Explanation)
	}
	if recs[1].Question != "Quelle molécule stocke l'information génétique ?" {
		t.Fatalf("wrapped question: %q", recs[1].Question)
	}
	if recs[1].AnswerKey != "A" || recs[1].Explanation != "" || recs[1].ChoiceText("D") != "Le lipide" {
		t.Fatalf("record 1: %+v", recs[1])
	}

	// Parse falls through to the line path when JSON yields nothing
	got, ok := Parse(linesOutput)
	if !ok || !reflect.DeepEqual(got, recs) {
		t.Fatalf("Parse: ok=%v %+v", ok, got)
	}
}

func TestParseLinesRequiresSevenLines(t *testing.T) {
	raw := "Q1: Court ?\nA) a\nB) b\nANSWER: A\nEXPLANATION: x"
	if recs := ParseLines(raw); len(recs) != 0 {
		t.Fatalf("got %+v", recs)
	}
}

func TestGarbageFallsBackToPlaceholders(t *testing.T) {
	raw := `Désolé, je ne peux pas {"answer": ` + "\nQ: pas un bloc\n"
	recs, ok := Parse(raw)
	if ok || recs != nil {
		t.Fatalf("ok=%v recs=%+v", ok, recs)
	}

	placeholders := Placeholders(5)
	if len(placeholders) != 5 {
		t.Fatalf("len=%d", len(placeholders))
	}
	for i, p := range placeholders {
		if p.Type != TypeQCM || len(p.Choices) != 4 || p.AnswerKey != "A" {
			t.Fatalf("placeholder %d invalid: %+v", i, p)
		}
		if !strings.Contains(p.Question, "secours") || p.Explanation == "" {
			t.Fatalf("placeholder %d not labelled: %+v", i, p)
		}
	}
	if n := len(Placeholders(0)); n != DefaultFallbackCount {
		t.Fatalf("default count=%d", n)
	}
}

func TestParseIsTotal(t *testing.T) {
	inputs := []string{"", " ", "{", "}", "[", `"`, `\`, "{\"questions\":", `{"questions": null}`, `{"questions": {}}`, `[{"question":"x"}]`, "Q1:", "Q1:\nQ2:"}
	for i := 0; i <= len(wellFormed); i += 7 {
		inputs = append(inputs, wellFormed[:i])
	}
	rng := rand.New(rand.NewSource(42))
	alphabet := []byte("{}[]\",:\\\n\r\t abcQ1ANSWER)Dé\x00\xff")
	for i := 0; i < 500; i++ {
		b := make([]byte, rng.Intn(200))
		for j := range b {
			b[j] = alphabet[rng.Intn(len(alphabet))]
		}
		inputs = append(inputs, string(b))
	}

	for i, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("input %d %q panicked: %v", i, in, r)
				}
			}()
			recs, ok := Parse(in)
			if ok != (len(recs) > 0) {
				t.Fatalf("input %d: ok=%v but %d records", i, ok, len(recs))
			}
			for _, r := range recs {
				if err := checkInvariants(r); err != nil {
					t.Fatalf("input %d: %v", i, err)
				}
			}
		}()
	}
}

func checkInvariants(r QuestionRecord) error {
	switch r.Type {
	case TypeQCM:
		if len(r.Choices) != 4 {
			return fmt.Errorf("qcm with %d choices", len(r.Choices))
		}
		for i, c := range r.Choices {
			if c.Label != choiceLabels[i] || c.Text == "" {
				return fmt.Errorf("bad choice %+v", c)
			}
		}
		if r.ChoiceText(r.AnswerKey) == "" {
			return fmt.Errorf("answer key %q not a label", r.AnswerKey)
		}
	case TypeVF:
		if r.AnswerKey != "vrai" && r.AnswerKey != "faux" {
			return fmt.Errorf("vf key %q", r.AnswerKey)
		}
	case TypeOuvert, TypeCompletion:
		if r.AnswerKey == "" || len(r.Choices) != 0 {
			return fmt.Errorf("free-text record %+v", r)
		}
	default:
		return fmt.Errorf("unknown type %q", r.Type)
	}
	return nil
}
