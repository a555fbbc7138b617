package attempt

import (
	"context"
	"sort"
	"sync"
	"time"
)

type answerKey struct{ attemptID, questionID string }

// MemoryStore keeps attempts in process memory; one mutex serialises every
// operation, which gives Complete its atomicity.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts map[string]Attempt
	answers  map[answerKey]UserAnswer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attempts: map[string]Attempt{},
		answers:  map[answerKey]UserAnswer{},
	}
}

func (m *MemoryStore) CreateAttempt(_ context.Context, a Attempt) (Attempt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.activeLocked(a.StudentID, a.QuizID); ok {
		return cur, false, nil
	}
	a.Status = StatusInProgress
	m.attempts[a.ID] = a
	return a, true, nil
}

func (m *MemoryStore) ActiveAttempt(_ context.Context, studentID, quizID string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.activeLocked(studentID, quizID); ok {
		return a, nil
	}
	return Attempt{}, ErrNotFound
}

func (m *MemoryStore) activeLocked(studentID, quizID string) (Attempt, bool) {
	for _, a := range m.attempts {
		if a.StudentID == studentID && a.QuizID == quizID && a.Status == StatusInProgress {
			return a, true
		}
	}
	return Attempt{}, false
}

func (m *MemoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	a.Answers = m.answersLocked(id)
	return a, nil
}

func (m *MemoryStore) answersLocked(attemptID string) []UserAnswer {
	var out []UserAnswer
	for k, ua := range m.answers {
		if k.attemptID == attemptID {
			out = append(out, ua)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

func (m *MemoryStore) ListCompleted(_ context.Context, studentID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.StudentID == studentID && a.Status == StatusCompleted {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(*out[j].CompletedAt) })
	return out, nil
}

func (m *MemoryStore) Complete(_ context.Context, in CompleteInput) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[in.AttemptID]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	if a.Status != StatusInProgress {
		return Attempt{}, ErrNoActiveAttempt
	}

	for _, ua := range in.Answers {
		ua.AttemptID = a.ID
		m.answers[answerKey{a.ID, ua.QuestionID}] = ua
	}
	a.CorrectAnswers, a.PointsEarned = 0, 0
	for _, ua := range m.answersLocked(a.ID) {
		if ua.IsCorrect {
			a.CorrectAnswers++
		}
		a.PointsEarned += ua.PointsEarned
	}
	a.Score = Score(a.CorrectAnswers, a.TotalQuestions)
	a.TimeSpent = in.TimeSpent
	at := in.At
	a.CompletedAt = &at
	a.Status = StatusCompleted
	m.attempts[a.ID] = a

	a.Answers = m.answersLocked(a.ID)
	return a, nil
}

func (m *MemoryStore) MarkStaleAbandoned(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.attempts {
		if a.Status == StatusInProgress && a.StartedAt.Before(cutoff) {
			a.Status = StatusAbandoned
			m.attempts[id] = a
			n++
		}
	}
	return n, nil
}
