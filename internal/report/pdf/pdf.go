// Package pdf renders report documents as PDF files using fpdf's core fonts.
package pdf

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/mmynk/hearth/internal/report"
)

const (
	margin    = 36.0
	rowHeight = 16.0
	cellPad   = 6.0
)

type rgb struct{ r, g, b int }

var (
	accents = map[report.Kind]rgb{
		report.KindDebts: {37, 99, 235},
		report.KindBills: {22, 163, 74},
	}
	stripe  = rgb{243, 244, 246}
	muted   = rgb{107, 114, 128}
	ink     = rgb{17, 24, 39}
	rule    = rgb{209, 213, 219}
	neutral = rgb{75, 85, 99}
)

// Renderer writes documents as PDF.
type Renderer struct {
	// Compress enables stream compression. Disable it to inspect output.
	Compress bool
}

// New returns a renderer with compression enabled.
func New() *Renderer {
	return &Renderer{Compress: true}
}

func (r *Renderer) ContentType() string {
	return "application/pdf"
}

// Render writes doc to w.
func (r *Renderer) Render(w io.Writer, doc report.Document) error {
	orientation := "P"
	for _, s := range doc.Sections {
		if len(s.Header) > 4 {
			orientation = "L"
			break
		}
	}

	pdf := fpdf.New(orientation, "pt", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetCreator("hearth", true)
	pdf.SetTitle(doc.Title+" - "+doc.Subtitle, true)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	p := &page{pdf: pdf, tr: tr, accent: accentOf(doc.Kind)}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin + 8)
		setText(pdf, muted)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	p.header(doc)
	for _, s := range doc.Sections {
		p.section(s)
	}

	if pdf.Err() {
		return fmt.Errorf("failed to render report: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func accentOf(k report.Kind) rgb {
	if c, ok := accents[k]; ok {
		return c
	}
	return neutral
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func setDraw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }

type page struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	accent rgb
}

func (p *page) header(doc report.Document) {
	pdf := p.pdf
	w, _ := pdf.GetPageSize()

	setFill(pdf, p.accent)
	pdf.Rect(0, 0, w, 6, "F")

	setText(pdf, ink)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 24, p.tr(doc.Title), "", 1, "L", false, 0, "")

	setText(pdf, p.accent)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 18, p.tr(doc.Subtitle), "", 1, "L", false, 0, "")

	setText(pdf, muted)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 14, p.tr(doc.Filters), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 14, "Generated "+doc.GeneratedAt.UTC().Format("2006-01-02 15:04")+" UTC", "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

func (p *page) section(s report.Section) {
	pdf := p.pdf
	if p.remaining() < 3*rowHeight+20 {
		pdf.AddPage()
	}

	setText(pdf, ink)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 20, p.tr(s.Title), "", 1, "L", false, 0, "")

	widths := p.columns(s)
	p.headerRow(s.Header, widths)

	pdf.SetFont("Helvetica", "", 9)
	if len(s.Rows) == 0 {
		setText(pdf, muted)
		pdf.CellFormat(sum(widths), rowHeight, "No entries", "", 1, "L", false, 0, "")
	}
	for i, row := range s.Rows {
		if p.remaining() < rowHeight {
			pdf.AddPage()
			p.headerRow(s.Header, widths)
			pdf.SetFont("Helvetica", "", 9)
		}
		border := ""
		fill := false
		switch s.Style {
		case report.Grid:
			border = "1"
			setDraw(pdf, rule)
		case report.Striped:
			fill = i%2 == 1
			setFill(pdf, stripe)
		}
		setText(pdf, ink)
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			pdf.CellFormat(widths[j], rowHeight, p.fit(cell, widths[j]), border, 0, align(j), fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(14)
}

func (p *page) headerRow(header []string, widths []float64) {
	pdf := p.pdf
	setFill(pdf, p.accent)
	setText(pdf, rgb{255, 255, 255})
	pdf.SetFont("Helvetica", "B", 9)
	for j, h := range header {
		pdf.CellFormat(widths[j], rowHeight+2, p.fit(h, widths[j]), "", 0, align(j), true, 0, "")
	}
	pdf.Ln(-1)
}

// columns sizes each column to its widest cell, scaled to the usable width.
func (p *page) columns(s report.Section) []float64 {
	pdf := p.pdf
	widths := make([]float64, len(s.Header))

	pdf.SetFont("Helvetica", "B", 9)
	for j, h := range s.Header {
		widths[j] = pdf.GetStringWidth(p.tr(h)) + 2*cellPad
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range s.Rows {
		for j, cell := range row {
			if j < len(widths) {
				widths[j] = max(widths[j], pdf.GetStringWidth(p.tr(cell))+2*cellPad)
			}
		}
	}

	pageW, _ := pdf.GetPageSize()
	usable := pageW - 2*margin
	total := sum(widths)
	if total == 0 {
		return widths
	}
	for j := range widths {
		widths[j] = widths[j] * usable / total
	}
	return widths
}

// fit translates s and truncates it with an ellipsis to fit width w.
func (p *page) fit(s string, w float64) string {
	text := p.tr(s)
	if p.pdf.GetStringWidth(text)+2*cellPad <= w {
		return text
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		text = p.tr(string(r) + "...")
		if p.pdf.GetStringWidth(text)+2*cellPad <= w {
			return text
		}
	}
	return ""
}

func (p *page) remaining() float64 {
	_, h := p.pdf.GetPageSize()
	return h - margin - p.pdf.GetY()
}

// align left-aligns the first column and right-aligns the rest.
func align(col int) string {
	if col == 0 {
		return "LM"
	}
	return "RM"
}

func sum(v []float64) float64 {
	var t float64
	for _, x := range v {
		t += x
	}
	return t
}
