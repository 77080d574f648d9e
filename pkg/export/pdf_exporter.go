package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin    = 10.0
	pdfTopMargin = 15.0
	fontFamily   = "roster"
)

// PDFExporter renders datasets and daily invigilation sheets. Without a
// font file it falls back to the core Arial font, which only covers Latin
// text; Arabic rosters need FontPath pointing at a TrueType font.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. fontPath may be empty.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// ContentType is the MIME type of rendered output.
func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

// Unicode reports whether a UTF-8 font is configured.
func (e *PDFExporter) Unicode() bool {
	return e.fontPath != ""
}

type document struct {
	pdf    *gofpdf.Fpdf
	family string
	tr     func(string) string
}

func (e *PDFExporter) newDocument(orientation string) *document {
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	doc := &document{pdf: pdf, family: "Arial", tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if e.fontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", e.fontPath)
		pdf.AddUTF8Font(fontFamily, "B", e.fontPath)
		doc.family = fontFamily
		doc.tr = func(s string) string { return s }
	}
	pdf.SetMargins(pdfMargin, pdfTopMargin, pdfMargin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		doc.font("", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return doc
}

func (d *document) font(style string, size float64) {
	d.pdf.SetFont(d.family, style, size)
}

func (d *document) cell(w, h float64, text, border, align string, fill bool) {
	d.pdf.CellFormat(w, h, d.tr(text), border, 0, align, fill, 0, "")
}

func (d *document) usableWidth() float64 {
	width, _ := d.pdf.GetPageSize()
	return width - 2*pdfMargin
}

// fits reports whether a block of height h still fits on the current page.
func (d *document) fits(h float64) bool {
	_, pageHeight := d.pdf.GetPageSize()
	_, bottom := d.pdf.GetAutoPageBreak()
	return d.pdf.GetY()+h <= pageHeight-bottom
}

func (d *document) output() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := d.pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Render creates a PDF document with an optional title and table body. Wide
// datasets switch to landscape and the header row repeats on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	if len(data.Headers) > 6 {
		orientation = "L"
	}
	doc := e.newDocument(orientation)
	doc.pdf.AddPage()

	if title != "" {
		doc.font("B", 14)
		doc.cell(0, 10, title, "", "C", false)
		doc.pdf.Ln(12)
	}

	colWidth := doc.usableWidth() / float64(len(data.Headers))
	drawHeader := func() {
		doc.font("B", 10)
		doc.pdf.SetFillColor(230, 230, 230)
		for _, header := range data.Headers {
			doc.cell(colWidth, 8, header, "1", "C", true)
		}
		doc.pdf.Ln(-1)
		doc.font("", 9)
	}
	drawHeader()

	const rowHeight = 7.0
	for _, row := range data.Rows {
		if !doc.fits(rowHeight) {
			doc.pdf.AddPage()
			drawHeader()
		}
		for _, value := range data.record(row) {
			doc.cell(colWidth, rowHeight, value, "1", "", false)
		}
		doc.pdf.Ln(-1)
	}

	return doc.output()
}
