package generation

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/logger"
	"github.com/mind-engage/mindengage-quizgen/internal/metrics"
)

const (
	DefaultTimeout        = 300 * time.Second
	DefaultMaxPromptChars = 2000
)

type Config struct {
	BaseURL        string
	Model          string
	Timeout        time.Duration
	OutputFormat   OutputFormat
	MaxPromptChars int
}

type Request struct {
	Text          string
	NbQuestions   int
	Difficulty    string
	QuestionTypes []string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatFragment struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Client talks to an Ollama-compatible /api/chat endpoint. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l *logger.Logger) Option { return func(c *Client) { c.log = l } }

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qcm-generator"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = DefaultMaxPromptChars
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = FormatJSON
	}
	c := &Client{cfg: cfg, http: &http.Client{}}
	for _, o := range opts {
		o(c)
	}
	c.log = logger.OrNop(c.log).With("component", "generation")
	return c
}

func (c *Client) OutputFormat() OutputFormat { return c.cfg.OutputFormat }

// Generate sends one prompt and returns the accumulated streamed content.
// The whole exchange, body included, is bounded by the configured timeout.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	req.Text = Truncate(req.Text, c.cfg.MaxPromptChars)
	prompt := BuildPrompt(req, c.cfg.OutputFormat)

	body, err := json.Marshal(chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	defer func() { metrics.GenerationDuration.Observe(time.Since(start).Seconds()) }()

	c.log.Debug("generation request", "model", c.cfg.Model, "prompt_chars", len(prompt), "questions", req.NbQuestions)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &UnavailableError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}

	out, err := accumulate(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &UnavailableError{Err: fmt.Errorf("read stream: %w", err)}
	}
	c.log.Debug("generation response", "chars", len(out), "elapsed", time.Since(start))
	return out, nil
}

// accumulate folds NDJSON fragments until done or EOF. Lines that are not
// valid fragments are skipped.
func accumulate(r io.Reader) (string, error) {
	var out strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var frag chatFragment
		if err := json.Unmarshal(line, &frag); err != nil {
			continue
		}
		if frag.Message != nil {
			out.WriteString(frag.Message.Content)
		}
		if frag.Done {
			return out.String(), nil
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return out.String(), nil
}
