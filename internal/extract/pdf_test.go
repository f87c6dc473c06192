package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writePDF builds a minimal single-font PDF with one uncompressed text
// page per entry. Texts must not contain parentheses or backslashes.
func writePDF(t *testing.T, pageTexts ...string) string {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pageTexts))
	for i := range pageTexts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	addObj("<< /Type /Catalog /Pages 2 0 R >>")
	addObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(pageTexts)))
	addObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, text := range pageTexts {
		addObj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		addObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write pdf: %v", err)
	}
	return path
}

const densePageText = "This lease agreement is entered into by landlord and tenant for the term of twelve months."

func TestExtract_PDFDensePageKeepsNativeText(t *testing.T) {
	x := New(&stubOCR{text: "ocr noise that must not replace native text"})
	path := writePDF(t, densePageText)

	records, err := x.Extract(context.Background(), path, testChecksum)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if !strings.Contains(rec.Content, "lease agreement") {
		t.Errorf("Content = %q, want native page text", rec.Content)
	}
	if strings.Contains(rec.Content, "ocr noise") {
		t.Error("text-dense page must not take the OCR output")
	}
	if rec.ContentType != ".pdf" {
		t.Errorf("ContentType = %q, want .pdf", rec.ContentType)
	}
	if rec.PageNumber != 1 {
		t.Errorf("PageNumber = %d, want 1", rec.PageNumber)
	}
}

func TestExtract_PDFSparsePageFallsBackToOCR(t *testing.T) {
	x := New(&stubOCR{text: "recovered scan text"})
	path := writePDF(t, densePageText, "stamp")

	records, err := x.Extract(context.Background(), path, testChecksum)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if !strings.Contains(records[0].Content, "lease agreement") {
		t.Errorf("page 1 Content = %q, want native text", records[0].Content)
	}
	if records[1].Content != "recovered scan text" {
		t.Errorf("page 2 Content = %q, want OCR output for a sparse page", records[1].Content)
	}
	if records[1].PageNumber != 2 {
		t.Errorf("page 2 PageNumber = %d, want 2", records[1].PageNumber)
	}
}

func TestExtract_PDFKeepsNativeTextWhenOCRYieldsNothing(t *testing.T) {
	tests := []struct {
		name string
		ocr  *stubOCR
	}{
		{"ocr returns empty", &stubOCR{text: ""}},
		{"ocr fails", &stubOCR{err: errors.New("engine unavailable")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := New(tt.ocr)
			path := writePDF(t, "stamp")

			records, err := x.Extract(context.Background(), path, testChecksum)
			if err != nil {
				t.Fatalf("Extract() error = %v, per-page OCR failures must not fail the file", err)
			}
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if !strings.Contains(records[0].Content, "stamp") {
				t.Errorf("Content = %q, want the sparse native text kept", records[0].Content)
			}
		})
	}
}

func TestExtract_PDFSharedChecksum(t *testing.T) {
	x := New(&stubOCR{})
	path := writePDF(t, densePageText, densePageText)

	records, err := x.Extract(context.Background(), path, testChecksum)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Checksum != testChecksum {
			t.Errorf("record checksum %q differs from source checksum", rec.Checksum)
		}
		if rec.Path != path {
			t.Errorf("record path %q differs from source path %q", rec.Path, path)
		}
	}
}

func TestExtract_CorruptPDF(t *testing.T) {
	x := New(&stubOCR{})
	path := writeFile(t, "broken.pdf", "%PDF-1.4 truncated garbage")

	if _, err := x.Extract(context.Background(), path, testChecksum); err == nil {
		t.Error("expected error for a corrupt pdf")
	}
}
