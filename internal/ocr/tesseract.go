package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrUnavailable means the OCR toolchain is not installed. Callers degrade to
// empty text instead of failing.
var ErrUnavailable = errors.New("ocr engine unavailable")

type Config struct {
	TesseractCmd string
	Langs        string // tesseract -l value, e.g. "fra+eng"
	Timeout      time.Duration
	PDFToPPMCmd  string
	DPI          int
}

type Tesseract struct {
	Cmd     string
	Lang    string
	Timeout time.Duration
}

func NewTesseract(cfg Config) *Tesseract {
	t := &Tesseract{Cmd: cfg.TesseractCmd, Lang: cfg.Langs, Timeout: cfg.Timeout}
	if t.Cmd == "" {
		t.Cmd = "tesseract"
	}
	if t.Lang == "" {
		t.Lang = "fra+eng"
	}
	if t.Timeout <= 0 {
		t.Timeout = 60 * time.Second
	}
	return t
}

// Available reports whether the tesseract binary can be found.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.Cmd)
	return err == nil
}

// ImageText runs OCR over raw image bytes.
func (t *Tesseract) ImageText(ctx context.Context, data []byte) (string, error) {
	f, err := os.CreateTemp("", "scan-*.img")
	if err != nil {
		return "", err
	}
	defer func() { f.Close(); os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return t.PathText(ctx, f.Name())
}

// PathText runs OCR over an image file already on disk.
func (t *Tesseract) PathText(ctx context.Context, inPath string) (string, error) {
	if !t.Available() {
		return "", fmt.Errorf("%w: %s not found", ErrUnavailable, t.Cmd)
	}
	args := []string{inPath, "stdout"}
	if t.Lang != "" {
		args = append(args, "-l", t.Lang)
	}
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.Cmd, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract: %w", ctx.Err())
		}
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return "", fmt.Errorf("tesseract: %w; stderr=%s", err, s)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return out.String(), nil
}
