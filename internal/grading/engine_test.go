package grading

import "testing"

func TestDefaultGrader(t *testing.T) {
	g := NewDefaultGrader()
	cases := []struct {
		name   string
		q      Q
		answer string
		want   Result
	}{
		{"qcm exact", Q{"qcm", 2, "B"}, "B", Result{true, 2}},
		{"qcm is case sensitive", Q{"qcm", 2, "B"}, "b", Result{}},
		{"qcm does not trim", Q{"qcm", 1, "B"}, " B", Result{}},
		{"vf exact", Q{"vf", 1, "vrai"}, "vrai", Result{true, 1}},
		{"vf case sensitive", Q{"vf", 1, "vrai"}, "Vrai", Result{}},
		{"completion trimmed", Q{"completion", 1, "Paris"}, " Paris ", Result{true, 1}},
		{"completion folded", Q{"completion", 1, "Paris"}, "paris", Result{true, 1}},
		{"ouvert folded", Q{"ouvert", 3, "  La Mitose"}, "la mitose", Result{true, 3}},
		{"ouvert wrong", Q{"ouvert", 3, "mitose"}, "méiose", Result{}},
		{"unknown type", Q{"essay", 5, "x"}, "x", Result{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.Grade(tc.q, tc.answer); got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestWithStrategyOverrides(t *testing.T) {
	always := StrategyFunc(func(q Q, _ string) Result { return Result{Correct: true, Points: q.Points} })
	g := NewDefaultGrader(WithStrategy("essay", always))
	if got := g.Grade(Q{"essay", 4, ""}, "anything"); got != (Result{true, 4}) {
		t.Fatalf("got %+v", got)
	}
}
