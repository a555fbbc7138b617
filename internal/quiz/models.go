package quiz

import (
	"errors"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/healer"
)

var ErrNotFound = errors.New("quiz not found")

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

const (
	DefaultTimeLimit    = 30 // minutes, 0 means unlimited
	DefaultPassingScore = 60
	DefaultDifficulty   = "intermediaire"
)

type Question struct {
	ID            string          `json:"id"`
	QuizID        string          `json:"quiz_id"`
	Type          string          `json:"question_type"`
	Text          string          `json:"question_text"`
	Choices       []healer.Choice `json:"choices,omitempty"`
	CorrectAnswer string          `json:"correct_answer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	Points        int             `json:"points"`
	Order         int             `json:"order"`
}

type Flashcard struct {
	ID     string `json:"id"`
	QuizID string `json:"quiz_id"`
	Front  string `json:"front"`
	Back   string `json:"back"`
	Hint   string `json:"hint"`
	Order  int    `json:"order"`
}

type Quiz struct {
	ID                 string      `json:"id"`
	CourseID           string      `json:"course_id"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	Difficulty         string      `json:"difficulty"`
	Status             Status      `json:"status"`
	TimeLimit          int         `json:"time_limit"`
	PassingScore       int         `json:"passing_score"`
	ShuffleQuestions   bool        `json:"shuffle_questions"`
	ShowCorrectAnswers bool        `json:"show_correct_answers"`
	UsedFallback       bool        `json:"used_fallback"`
	CreatedBy          string      `json:"created_by"`
	DocumentIDs        []string    `json:"document_ids,omitempty"`
	Questions          []Question  `json:"questions,omitempty"`
	Flashcards         []Flashcard `json:"flashcards,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// New returns quiz metadata with the documented defaults filled in.
func New(courseID, title, createdBy string) Quiz {
	return Quiz{
		CourseID:           courseID,
		Title:              title,
		Difficulty:         DefaultDifficulty,
		Status:             StatusDraft,
		TimeLimit:          DefaultTimeLimit,
		PassingScore:       DefaultPassingScore,
		ShuffleQuestions:   true,
		ShowCorrectAnswers: true,
		CreatedBy:          createdBy,
	}
}

// TotalPoints sums the point value of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, qq := range q.Questions {
		total += qq.Points
	}
	return total
}

// Question returns the question with id, if it belongs to this quiz.
func (q Quiz) Question(id string) (Question, bool) {
	for _, qq := range q.Questions {
		if qq.ID == id {
			return qq, true
		}
	}
	return Question{}, false
}

// ForStudent strips answer keys and explanations.
func (q Quiz) ForStudent() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.CorrectAnswer = ""
		qq.Explanation = ""
		out.Questions[i] = qq
	}
	out.Flashcards = nil
	return out
}
