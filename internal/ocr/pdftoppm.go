package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Rasterizer turns PDF pages into PNG files with poppler's pdftoppm.
type Rasterizer struct {
	Cmd     string
	DPI     int
	Timeout time.Duration
}

func NewRasterizer(cfg Config) *Rasterizer {
	r := &Rasterizer{Cmd: cfg.PDFToPPMCmd, DPI: cfg.DPI, Timeout: cfg.Timeout}
	if r.Cmd == "" {
		r.Cmd = "pdftoppm"
	}
	if r.DPI <= 0 {
		r.DPI = 200
	}
	if r.Timeout <= 0 {
		r.Timeout = 60 * time.Second
	}
	return r
}

// Rasterize writes one PNG per page into outDir and returns the paths in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	if _, err := exec.LookPath(r.Cmd); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnavailable, r.Cmd)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outDir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, r.Cmd, "-r", strconv.Itoa(r.DPI), "-png", pdfPath, prefix)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, string(out))
	}

	paths, err := pagesInOrder(outDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images produced by pdftoppm; out=%s", string(out))
	}
	return paths, nil
}

var pageFileRe = regexp.MustCompile(`^page-(\d+)\.png$`)

// pagesInOrder sorts pdftoppm output by page number, not lexically.
func pagesInOrder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, e := range entries {
		m := pageFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		pages = append(pages, page{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.path)
	}
	return out, nil
}
