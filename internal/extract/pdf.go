package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/mfenderov/vault/pkg/models"
)

// extractPDF produces one record per page. Pages with enough native
// text keep it; image-dominated pages are rasterized and OCRed. A page
// that fails both ways keeps its (possibly empty) native text so the
// empty-content rule downstream can discard it.
func (x *Extractor) extractPDF(ctx context.Context, path, checksum string) ([]models.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	// The rasterizer is only opened when a page actually needs OCR.
	var raster *fitz.Document
	defer func() {
		if raster != nil {
			raster.Close()
		}
	}()

	var records []models.Document
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("failed to extract native text from pdf page",
				"path", path, "page", i, "error", err)
			text = ""
		}
		text = strings.TrimSpace(text)

		if len(text) < textDensityThreshold {
			ocrText := x.ocrPage(ctx, &raster, path, i)
			if ocrText != "" {
				text = ocrText
			} else {
				slog.Warn("pdf page yielded no text after OCR",
					"path", path, "page", i, "native_chars", len(text))
			}
		}

		records = append(records, newRecord(path, ".pdf", checksum, i, text))
	}

	return records, nil
}

// ocrPage rasterizes page number pageNum (1-based) and runs OCR on it,
// returning "" on any failure. The fitz document is opened lazily on
// first use and reused for later pages of the same file.
func (x *Extractor) ocrPage(ctx context.Context, raster **fitz.Document, path string, pageNum int) string {
	if *raster == nil {
		doc, err := fitz.New(path)
		if err != nil {
			slog.Warn("failed to open pdf for rasterization", "path", path, "error", err)
			return ""
		}
		*raster = doc
	}

	img, err := (*raster).Image(pageNum - 1)
	if err != nil {
		slog.Warn("failed to rasterize pdf page", "path", path, "page", pageNum, "error", err)
		return ""
	}

	text, err := x.ocr.Recognize(ctx, img)
	if err != nil {
		slog.Warn("failed to OCR pdf page", "path", path, "page", pageNum, "error", err)
		return ""
	}
	return text
}
