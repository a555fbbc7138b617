// Package grading evaluates a submitted answer against a question's stored
// answer. Results depend only on (question, answer) and are never stored as
// independently editable values.
package grading

import "strings"

// Q is the part of a question grading needs.
type Q struct {
	Type          string
	Points        int
	CorrectAnswer string
}

type Result struct {
	Correct bool
	Points  int // Q.Points when correct, else 0
}

// Strategy grades one question type.
type Strategy interface {
	Grade(q Q, answer string) Result
}

type StrategyFunc func(q Q, answer string) Result

func (f StrategyFunc) Grade(q Q, answer string) Result { return f(q, answer) }

// Grader routes by question type to the matching Strategy.
type Grader interface {
	Grade(q Q, answer string) Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

// Grade returns a zero Result for types without a strategy.
func (g *defaultGrader) Grade(q Q, answer string) Result {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}
	}
	return s.Grade(q, answer)
}

type Option func(map[string]Strategy)

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(typ string, s Strategy) Option {
	return func(m map[string]Strategy) { m[typ] = s }
}

// NewDefaultGrader installs the built-in strategies: exact match for qcm and
// vf, trimmed case-insensitive match for ouvert and completion.
func NewDefaultGrader(opts ...Option) Grader {
	m := map[string]Strategy{
		"qcm":        exactStrategy{},
		"vf":         exactStrategy{},
		"ouvert":     foldedStrategy{},
		"completion": foldedStrategy{},
	}
	for _, o := range opts {
		o(m)
	}
	return &defaultGrader{strategies: m}
}

type exactStrategy struct{}

func (exactStrategy) Grade(q Q, answer string) Result {
	return award(q, answer == q.CorrectAnswer)
}

type foldedStrategy struct{}

func (foldedStrategy) Grade(q Q, answer string) Result {
	return award(q, strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)))
}

func award(q Q, correct bool) Result {
	if !correct {
		return Result{}
	}
	return Result{Correct: true, Points: q.Points}
}
