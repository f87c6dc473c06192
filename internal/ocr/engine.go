// Package ocr wraps a process-wide Tesseract engine for image text
// recognition.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Engine owns a single Tesseract client. The client is expensive to
// initialize and not safe for concurrent use, so one engine is shared
// across all pipelines and every invocation is serialized through its
// mutex.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates the shared OCR engine. Languages default to English when
// none are given.
func New(languages ...string) (*Engine, error) {
	client := gosseract.NewClient()

	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR languages: %w", err)
	}

	// Preprocessed images carry no DPI metadata; tag them at 300.
	if err := client.SetVariable("user_defined_dpi", "300"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR dpi: %w", err)
	}

	return &Engine{client: client}, nil
}

// Close releases the underlying Tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// Recognize runs OCR over img and returns the trimmed recognized text.
// The image is preprocessed (grayscale, downscale, contrast boost)
// before recognition.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prepared := preprocess(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return "", fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to load image into OCR engine: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to recognize text: %w", err)
	}
	text = strings.TrimSpace(text)

	slog.Debug("ocr complete",
		"confidence", e.meanConfidence(),
		"chars", len(text))

	return text, nil
}

// meanConfidence averages per-line recognition confidence for the image
// currently loaded in the client. Caller must hold e.mu.
func (e *Engine) meanConfidence() float64 {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return 0
	}

	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}
