// Package pipeline turns processed documents into a persisted quiz:
// chunk, generate, parse (with fallback), assemble, store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mind-engage/mindengage-quizgen/internal/chunk"
	"github.com/mind-engage/mindengage-quizgen/internal/document"
	"github.com/mind-engage/mindengage-quizgen/internal/generation"
	"github.com/mind-engage/mindengage-quizgen/internal/healer"
	"github.com/mind-engage/mindengage-quizgen/internal/logger"
	"github.com/mind-engage/mindengage-quizgen/internal/metrics"
	"github.com/mind-engage/mindengage-quizgen/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quizgen/internal/sync"
)

var (
	ErrNoDocuments  = errors.New("no processed document available")
	ErrTextTooShort = errors.New("extracted text is too short to generate a quiz")
	ErrInvalid      = errors.New("invalid generation request")
)

const (
	MinTextChars       = 100
	DefaultNbQuestions = 10
	MaxNbQuestions     = 50
	MaxTimeLimit       = 180
)

var (
	difficulties  = map[string]bool{"debutant": true, "intermediaire": true, "avance": true}
	questionTypes = map[string]bool{
		healer.TypeQCM: true, healer.TypeVF: true, healer.TypeOuvert: true, healer.TypeCompletion: true,
	}
)

// Generator is satisfied by *generation.Client.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
}

type DocumentSource interface {
	Processed(ctx context.Context, ids []string) ([]document.Document, error)
	ListByCourse(ctx context.Context, courseID string) ([]document.Document, error)
}

type QuizSink interface {
	CreateQuiz(ctx context.Context, q *quiz.Quiz) error
}

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	MaxChunks    int // chunks sent to the model per request
}

type Pipeline struct {
	cfg     Config
	docs    DocumentSource
	gen     Generator
	quizzes QuizSink
	events  syncx.Recorder
	log     *logger.Logger
}

type Option func(*Pipeline)

func WithEvents(r syncx.Recorder) Option { return func(p *Pipeline) { p.events = r } }

func WithLogger(l *logger.Logger) Option { return func(p *Pipeline) { p.log = logger.OrNop(l) } }

func New(cfg Config, docs DocumentSource, gen Generator, quizzes QuizSink, opts ...Option) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunk.DefaultMaxSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = 1
	}
	p := &Pipeline{
		cfg:     cfg,
		docs:    docs,
		gen:     gen,
		quizzes: quizzes,
		events:  syncx.Nop{},
		log:     logger.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type Request struct {
	CourseID      string
	CourseTitle   string   // used for the default title
	DocumentIDs   []string // empty means every processed document of the course
	Title         string
	NbQuestions   int
	Difficulty    string
	QuestionTypes []string
	TimeLimit     *int // minutes, nil for the default
	CreatedBy     string
}

type Result struct {
	Quiz         quiz.Quiz
	UsedFallback bool
	Chunks       int
}

// Normalize fills defaults and validates ranges and enumerations.
func (r *Request) Normalize() error {
	if r.NbQuestions == 0 {
		r.NbQuestions = DefaultNbQuestions
	}
	if r.NbQuestions < 1 || r.NbQuestions > MaxNbQuestions {
		return fmt.Errorf("%w: nb_questions must be between 1 and %d", ErrInvalid, MaxNbQuestions)
	}
	if r.Difficulty == "" {
		r.Difficulty = quiz.DefaultDifficulty
	}
	if !difficulties[r.Difficulty] {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalid, r.Difficulty)
	}
	if len(r.QuestionTypes) == 0 {
		r.QuestionTypes = []string{healer.TypeQCM, healer.TypeVF}
	}
	for _, t := range r.QuestionTypes {
		if !questionTypes[t] {
			return fmt.Errorf("%w: unknown question type %q", ErrInvalid, t)
		}
	}
	if r.TimeLimit != nil && (*r.TimeLimit < 0 || *r.TimeLimit > MaxTimeLimit) {
		return fmt.Errorf("%w: time_limit must be between 0 and %d", ErrInvalid, MaxTimeLimit)
	}
	return nil
}

// Generate builds a quiz from the request's processed documents and stores it.
func (p *Pipeline) Generate(ctx context.Context, req Request) (Result, error) {
	if err := req.Normalize(); err != nil {
		return Result{}, err
	}
	docs, err := p.sources(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if len(docs) == 0 {
		return Result{}, ErrNoDocuments
	}
	texts := make([]string, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.ExtractedText)
		ids = append(ids, d.ID)
	}
	return p.generate(ctx, req, strings.Join(texts, "\n\n"), ids)
}

func (p *Pipeline) sources(ctx context.Context, req Request) ([]document.Document, error) {
	if len(req.DocumentIDs) > 0 {
		return p.docs.Processed(ctx, req.DocumentIDs)
	}
	all, err := p.docs.ListByCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, d := range all {
		if d.Processed() {
			out = append(out, d)
		}
	}
	return out, nil
}

// GenerateFromText runs the pipeline on text that is already extracted.
func (p *Pipeline) GenerateFromText(ctx context.Context, req Request, text string) (Result, error) {
	if err := req.Normalize(); err != nil {
		return Result{}, err
	}
	return p.generate(ctx, req, text, nil)
}

func (p *Pipeline) generate(ctx context.Context, req Request, text string, docIDs []string) (Result, error) {
	if utf8.RuneCountInString(text) < MinTextChars {
		return Result{}, ErrTextTooShort
	}

	chunks := chunk.Split(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if len(chunks) > p.cfg.MaxChunks {
		chunks = chunks[:p.cfg.MaxChunks]
	}
	counts := distribute(req.NbQuestions, len(chunks))

	start := time.Now()
	var records []healer.QuestionRecord
	for i, c := range chunks {
		if counts[i] == 0 {
			continue
		}
		raw, err := p.gen.Generate(ctx, generation.Request{
			Text:          c,
			NbQuestions:   counts[i],
			Difficulty:    req.Difficulty,
			QuestionTypes: req.QuestionTypes,
		})
		if err != nil {
			var ue *generation.UnavailableError
			if errors.As(err, &ue) {
				metrics.GenerationsTotal.WithLabelValues("unavailable").Inc()
			} else {
				metrics.GenerationsTotal.WithLabelValues("error").Inc()
			}
			p.log.Error("generation failed", "course", req.CourseID, "chunk", i, "err", err)
			return Result{}, err
		}
		recs, ok := healer.Parse(raw)
		if !ok {
			p.log.Warn("unparseable model output", "course", req.CourseID, "chunk", i, "bytes", len(raw))
			continue
		}
		records = append(records, recs...)
	}

	usedFallback := false
	if len(records) == 0 {
		records = healer.Placeholders(req.NbQuestions)
		usedFallback = true
		metrics.GenerationsTotal.WithLabelValues("fallback").Inc()
	} else {
		metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	}
	if len(records) > req.NbQuestions {
		records = records[:req.NbQuestions]
	}

	meta := quiz.New(req.CourseID, req.Title, req.CreatedBy)
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = "Quiz - " + req.CourseTitle
	}
	meta.Difficulty = req.Difficulty
	if req.TimeLimit != nil {
		meta.TimeLimit = *req.TimeLimit
	}
	meta.UsedFallback = usedFallback
	meta.DocumentIDs = docIDs
	q := quiz.Assemble(meta, records)

	if err := p.quizzes.CreateQuiz(ctx, &q); err != nil {
		return Result{}, fmt.Errorf("store quiz: %w", err)
	}

	p.log.Info("quiz generated", "quiz", q.ID, "course", req.CourseID, "questions", len(q.Questions),
		"fallback", usedFallback, "chunks", len(chunks), "elapsed", time.Since(start))
	if err := p.events.Record(ctx, syncx.TypeQuizGenerated, q.ID, map[string]any{
		"course_id":     q.CourseID,
		"questions":     len(q.Questions),
		"used_fallback": usedFallback,
	}); err != nil {
		p.log.Warn("event log append failed", "quiz", q.ID, "err", err)
	}
	return Result{Quiz: q, UsedFallback: usedFallback, Chunks: len(chunks)}, nil
}

// distribute splits total across n slots, earlier slots taking the remainder.
func distribute(total, n int) []int {
	out := make([]int, n)
	if n == 0 {
		return out
	}
	base, rem := total/n, total%n
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}
