package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultDPI renders at 3x the 72 dpi PDF point grid.
const DefaultDPI = 216

// ErrRenderFailed is returned when the first PDF page cannot be rasterized.
var ErrRenderFailed = errors.New("pdf render failed")

// PopplerRenderer shells out to poppler's pdftoppm.
type PopplerRenderer struct {
	Binary  string
	DPI     int
	Timeout time.Duration
}

// NewPopplerRenderer fills in defaults for empty fields.
func NewPopplerRenderer(binary string, dpi int) *PopplerRenderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PopplerRenderer{Binary: binary, DPI: dpi, Timeout: 2 * time.Minute}
}

func (r *PopplerRenderer) args(pdfPath, outPrefix string) []string {
	return []string{
		"-png",
		"-r", strconv.Itoa(r.DPI),
		"-f", "1", "-l", "1",
		"-singlefile",
		pdfPath, outPrefix,
	}
}

// RenderFirstPage validates the PDF with pdfcpu and renders page one.
func (r *PopplerRenderer) RenderFirstPage(ctx context.Context, pdf []byte) (image.Image, error) {
	bin, err := exec.LookPath(r.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %w", ErrRenderFailed, r.Binary, err)
	}

	tmpDir, err := os.MkdirTemp("", "docnorm-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	pages, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	if pages < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRenderFailed)
	}
	if pages > 1 {
		slog.Debug("Ignoring trailing PDF pages", "pages", pages)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	outPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, bin, r.args(pdfPath, outPrefix)...) //nolint:gosec // G204: binary comes from configuration
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w (%s)", ErrRenderFailed, r.Binary, err, bytes.TrimSpace(stderr.Bytes()))
	}
	slog.Debug("Rendered PDF page", "dpi", r.DPI, "duration", time.Since(start))

	f, err := os.Open(outPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	return img, nil
}
