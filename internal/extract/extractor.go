// Package extract turns stored files into document records, one per
// logical unit (a PDF page, an image, a text file).
package extract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/mfenderov/vault/internal/entities"
	"github.com/mfenderov/vault/pkg/models"
)

// textDensityThreshold is the minimum native text length (in characters)
// for a PDF page to be trusted. Below it the page is treated as
// image-dominated and sent through OCR.
const textDensityThreshold = 50

// Recognizer runs OCR over a single image. Implemented by ocr.Engine.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Extractor produces document records from files, dispatching on file
// extension.
type Extractor struct {
	ocr Recognizer
}

// New creates an extractor backed by the given OCR engine.
func New(ocr Recognizer) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract reads the file at path and returns one record per logical
// unit, annotated with extracted entities. Unsupported extensions yield
// zero records and no error. Records may carry empty content (a page
// whose native text and OCR both came up empty); the caller drops those
// before persistence.
func (x *Extractor) Extract(ctx context.Context, path, checksum string) ([]models.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".pdf":
		return x.extractPDF(ctx, path, checksum)
	case ".jpg", ".jpeg", ".png":
		return x.extractImage(ctx, path, ext, checksum)
	case ".txt":
		return x.extractText(path, checksum)
	default:
		slog.Debug("unsupported extension, skipping", "path", path, "ext", ext)
		return nil, nil
	}
}

// extractText reads the whole file as a single page-1 record.
func (x *Extractor) extractText(path, checksum string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	record := newRecord(path, ".txt", checksum, 1, string(data))
	return []models.Document{record}, nil
}

// extractImage OCRs the whole image as one record.
func (x *Extractor) extractImage(ctx context.Context, path, ext, checksum string) ([]models.Document, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	text, err := x.ocr.Recognize(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to OCR image: %w", err)
	}

	var records []models.Document
	records = append(records, newRecord(path, ext, checksum, len(records)+1, text))
	return records, nil
}

// newRecord builds a draft document record for one logical unit.
func newRecord(path, ext, checksum string, page int, content string) models.Document {
	return models.Document{
		ID:             models.NewID(),
		Path:           path,
		ProjectID:      models.DefaultProjectID,
		PageNumber:     page,
		Content:        content,
		Metadata:       models.EncodeMetadata(entities.Extract(content)),
		Status:         models.StatusParsed,
		ContentType:    ext,
		ContentLength:  int64(len(content)),
		ExtractionDate: time.Now().UTC(),
		Checksum:       checksum,
	}
}
