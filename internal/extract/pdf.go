package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/ocr"
)

// PageTextReader returns the embedded text of each PDF page.
type PageTextReader interface {
	PageTexts(ctx context.Context, pdfPath string) ([]string, error)
}

// PageRasterizer renders PDF pages to image files, in page order.
type PageRasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// PDFToText shells out to poppler's pdftotext.
type PDFToText struct {
	Cmd     string
	Timeout time.Duration
}

func (p PDFToText) PageTexts(ctx context.Context, pdfPath string) ([]string, error) {
	bin := p.Cmd
	if bin == "" {
		bin = "pdftotext"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%s not found: %w", bin, err)
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, bin, "-enc", "UTF-8", "-q", pdfPath, "-")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext: %w; stderr=%s", err, strings.TrimSpace(stderr.String()))
	}
	// pdftotext ends every page with a form feed
	return strings.Split(out.String(), "\f"), nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, Outcome, error) {
	dir, err := os.MkdirTemp("", "quizgen-pdf-*")
	if err != nil {
		return "", "", err
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return "", "", err
	}

	pages, err := e.pdfText.PageTexts(ctx, pdfPath)
	if err != nil {
		return "", "", err
	}
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	text := strings.Join(parts, "\n\n")
	if len([]rune(strings.TrimSpace(text))) >= e.minPDFText {
		return text, OutcomeOK, nil
	}

	e.log.Info("pdf has little embedded text, trying ocr", "chars", len(strings.TrimSpace(text)))
	ocrText, err := e.ocrPDF(ctx, pdfPath, filepath.Join(dir, "pages"))
	if errors.Is(err, ocr.ErrUnavailable) {
		e.log.Warn("ocr unavailable, returning empty text", "error", err)
		return "", OutcomeOCR, nil
	}
	if err != nil {
		return "", "", err
	}
	return ocrText, OutcomeOCR, nil
}

func (e *Extractor) ocrPDF(ctx context.Context, pdfPath, outDir string) (string, error) {
	images, err := e.raster.Rasterize(ctx, pdfPath, outDir)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(images))
	for i, img := range images {
		e.log.Debug("ocr page", "page", i+1)
		txt, err := e.ocr.PathText(ctx, img)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		parts = append(parts, txt)
	}
	return strings.Join(parts, "\n\n"), nil
}
