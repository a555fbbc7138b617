package quiz

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quizgen/internal/healer"
)

const hintRunes = 100

// Assemble maps parsed records onto meta, in generation order. Each record
// becomes one question (order = position, 1 point) and one flashcard.
func Assemble(meta Quiz, records []healer.QuestionRecord) Quiz {
	q := meta
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	q.Questions = make([]Question, 0, len(records))
	q.Flashcards = make([]Flashcard, 0, len(records))

	for i, r := range records {
		q.Questions = append(q.Questions, Question{
			ID:            uuid.NewString(),
			QuizID:        q.ID,
			Type:          r.Type,
			Text:          r.Question,
			Choices:       r.Choices,
			CorrectAnswer: r.AnswerKey,
			Explanation:   r.Explanation,
			Points:        1,
			Order:         i + 1,
		})
		q.Flashcards = append(q.Flashcards, Flashcard{
			ID:     uuid.NewString(),
			QuizID: q.ID,
			Front:  r.Question,
			Back:   answerText(r),
			Hint:   firstRunes(r.Explanation, hintRunes),
			Order:  i + 1,
		})
	}
	return q
}

// answerText renders the answer for a flashcard back: "B) <choice>" for
// multiple choice, the key itself otherwise.
func answerText(r healer.QuestionRecord) string {
	if r.Type == healer.TypeQCM {
		if t := r.ChoiceText(r.AnswerKey); t != "" {
			return r.AnswerKey + ") " + t
		}
	}
	return r.AnswerKey
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
