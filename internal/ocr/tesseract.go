// Package ocr extracts text from certificate images and PDFs through the
// tesseract binary. PDFs are rasterized per page with pdftoppm and fanned
// out; confidences come from tesseract's TSV output as the mean of positive
// per-word confidences.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Engine invokes the OCR backend. It holds configuration only and is safe
// to share.
type Engine struct {
	// args are the tesseract flags, e.g. --oem 3 --psm 6 -l por+eng.
	args   []string
	logger *slog.Logger
}

// NewEngine builds an engine from the tesseract config string.
func NewEngine(tesseractConfig string) *Engine {
	return &Engine{
		args:   strings.Fields(tesseractConfig),
		logger: slog.With("component", "ocr"),
	}
}

// ProcessFile runs OCR over a file. PDF pages are processed individually and
// their texts concatenated with a single space; the confidence is the
// arithmetic mean of per-page confidences. Confidence is on a 0-100 scale.
func (e *Engine) ProcessFile(ctx context.Context, content []byte, extension string) (string, float64, error) {
	if strings.EqualFold(extension, "pdf") {
		return e.processPDF(ctx, content)
	}
	return e.processImageBytes(ctx, content, extension)
}

func (e *Engine) processPDF(ctx context.Context, content []byte) (string, float64, error) {
	dir, err := os.MkdirTemp("", "certocr-*")
	if err != nil {
		return "", 0, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, content, 0o600); err != nil {
		return "", 0, fmt.Errorf("write pdf: %w", err)
	}

	// pdf2image-equivalent rasterization; 300 dpi keeps small print legible.
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", "300", pdfPath, filepath.Join(dir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", 0, fmt.Errorf("pdftoppm: %w: %s", err, bytes.TrimSpace(out))
	}

	pages, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil || len(pages) == 0 {
		return "", 0, fmt.Errorf("pdf produced no pages")
	}
	sort.Strings(pages)

	var texts []string
	var confSum float64
	for i, page := range pages {
		text, conf, err := e.processImagePath(ctx, page)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i+1, err)
		}
		e.logger.Info("extracted page", "page", i+1, "chars", len(text))
		texts = append(texts, text)
		confSum += conf
	}

	return strings.Join(texts, " "), confSum / float64(len(pages)), nil
}

func (e *Engine) processImageBytes(ctx context.Context, content []byte, extension string) (string, float64, error) {
	f, err := os.CreateTemp("", "certocr-*."+strings.ToLower(extension))
	if err != nil {
		return "", 0, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("write image: %w", err)
	}
	f.Close()

	return e.processImagePath(ctx, f.Name())
}

func (e *Engine) processImagePath(ctx context.Context, path string) (string, float64, error) {
	args := append([]string{path, "stdout"}, e.args...)
	args = append(args, "tsv")

	cmd := exec.CommandContext(ctx, "tesseract", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", 0, fmt.Errorf("tesseract: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	text, conf := parseTSV(stdout.String())
	return text, conf, nil
}

// parseTSV reconstructs the recognized text from tesseract TSV output and
// computes the mean of positive word confidences. Words on one line are
// joined with spaces, lines with newlines.
func parseTSV(tsv string) (string, float64) {
	const (
		levelWord = "5"
		numFields = 12
	)

	var b strings.Builder
	var confSum float64
	var confCount int
	lastLine := ""

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 { // header
			continue
		}
		fields := strings.Split(row, "\t")
		if len(fields) < numFields || fields[0] != levelWord {
			continue
		}

		word := strings.TrimSpace(fields[11])
		if word == "" {
			continue
		}

		// page:block:par:line identifies the physical line.
		lineKey := fields[1] + ":" + fields[2] + ":" + fields[3] + ":" + fields[4]
		if b.Len() > 0 {
			if lineKey == lastLine {
				b.WriteByte(' ')
			} else {
				b.WriteByte('\n')
			}
		}
		lastLine = lineKey
		b.WriteString(word)

		if conf, err := strconv.ParseFloat(fields[10], 64); err == nil && conf > 0 {
			confSum += conf
			confCount++
		}
	}

	if confCount == 0 {
		return b.String(), 0
	}
	return b.String(), confSum / float64(confCount)
}

// HealthCheck verifies the tesseract binary is installed and runnable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if err := exec.CommandContext(ctx, "tesseract", "--version").Run(); err != nil {
		return fmt.Errorf("tesseract unavailable: %w", err)
	}
	return nil
}
