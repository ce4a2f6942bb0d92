package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
)

// Imagens decorativas procuradas em STATIC_PATH/images.
const (
	ImageBrasao = "brasao_ms.png"
	ImageLogo   = "logo nova.jpeg"
	ImageIGPR   = "igpr.png"
)

const (
	rowHeight    = 6.0
	headerHeight = 7.0
	sideMargin   = 10.0
	topMargin    = 35.0
	bottomMargin = 28.0
)

type PDFOptions struct {
	Title     string
	Landscape bool
	// StaticPath raiz dos arquivos estáticos; imagens ausentes são ignoradas.
	StaticPath string
	Location   *time.Location
	Now        time.Time
	// Lines parágrafos exibidos abaixo do título (filtros, totais).
	Lines []string
}

func (o PDFOptions) generatedAt() string {
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.In(loc).Format("02/01/2006 às 15:04")
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDF(opts PDFOptions) *pdfWriter {
	orientation := "P"
	if opts.Landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(sideMargin, topMargin, sideMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	w.decorate(opts.StaticPath)
	return w
}

func (w *pdfWriter) decorate(staticPath string) {
	image := func(name string) string {
		if staticPath == "" {
			return ""
		}
		p := filepath.Join(staticPath, "images", name)
		if _, err := os.Stat(p); err != nil {
			return ""
		}
		return p
	}
	brasao, logo, igpr := image(ImageBrasao), image(ImageLogo), image(ImageIGPR)
	pdf := w.pdf

	pdf.SetHeaderFunc(func() {
		pageW, _ := pdf.GetPageSize()
		if brasao != "" {
			pdf.ImageOptions(brasao, sideMargin, 6, 0, 24, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
		if logo != "" {
			pdf.ImageOptions(logo, pageW-sideMargin-36, 6, 36, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
		pdf.SetY(topMargin)
	})
	pdf.SetFooterFunc(func() {
		pageW, pageH := pdf.GetPageSize()
		if igpr != "" {
			pdf.ImageOptions(igpr, (pageW-36)/2, pageH-24, 36, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 5, w.tr(fmt.Sprintf("Página %d/{nb}", pdf.PageNo())), "", 0, "R", false, 0, "")
	})
}

func (w *pdfWriter) heading(opts PDFOptions) {
	pdf := w.pdf
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0x2c, 0x3e, 0x50)
	pdf.CellFormat(0, 10, w.tr(opts.Title), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, w.tr("Gerado em: "+opts.generatedAt()), "", 1, "C", false, 0, "")
	for _, line := range opts.Lines {
		pdf.MultiCell(0, 5, w.tr(line), "", "L", false)
	}
	pdf.Ln(4)
}

func (w *pdfWriter) columnWidths(t Table) []float64 {
	pageW, _ := w.pdf.GetPageSize()
	usable := pageW - 2*sideMargin
	n := len(t.Headers)
	widths := make([]float64, n)

	total := 0.0
	for i := 0; i < n; i++ {
		if i < len(t.Widths) && t.Widths[i] > 0 {
			total += t.Widths[i]
		} else {
			total++
		}
	}
	for i := 0; i < n; i++ {
		weight := 1.0
		if i < len(t.Widths) && t.Widths[i] > 0 {
			weight = t.Widths[i]
		}
		widths[i] = usable * weight / total
	}
	return widths
}

// fit corta o texto até caber na célula.
func (w *pdfWriter) fit(s string, width float64) string {
	s = w.tr(s)
	limit := width - 2
	if w.pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && w.pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func (w *pdfWriter) tableHeader(t Table, widths []float64) {
	pdf := w.pdf
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	pdf.SetDrawColor(0, 0, 0)
	for i, h := range t.Headers {
		pdf.CellFormat(widths[i], headerHeight, w.fit(h, widths[i]), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func (w *pdfWriter) table(t Table) {
	pdf := w.pdf
	if t.Name != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(0x2c, 0x3e, 0x50)
		pdf.CellFormat(0, 8, w.tr(t.Name), "", 1, "L", false, 0, "")
	}

	widths := w.columnWidths(t)
	w.tableHeader(t, widths)

	_, pageH := pdf.GetPageSize()
	for _, row := range t.Rows {
		if pdf.GetY()+rowHeight > pageH-bottomMargin {
			pdf.AddPage()
			w.tableHeader(t, widths)
		}
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetFillColor(245, 245, 220)
		pdf.SetTextColor(0, 0, 0)
		for i := range widths {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(widths[i], rowHeight, w.fit(value, widths[i]), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func (w *pdfWriter) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("gerar pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF título, linha "Gerado em" e uma tabela por Table.
func PDF(opts PDFOptions, tables ...Table) ([]byte, error) {
	w := newPDF(opts)
	w.pdf.AddPage()
	w.heading(opts)
	for _, t := range tables {
		w.table(t)
	}
	if w.pdf.Err() {
		return nil, fmt.Errorf("gerar pdf: %w", w.pdf.Error())
	}
	return w.bytes()
}

// ErrorPDF documento mínimo informando a falha, sem imagens.
func ErrorPDF(title string, cause error) []byte {
	opts := PDFOptions{Title: title}
	w := newPDF(opts)
	w.pdf.AddPage()
	w.heading(opts)
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.SetTextColor(0xc0, 0x39, 0x2b)
	w.pdf.MultiCell(0, 6, w.tr("Erro ao gerar PDF: "+cause.Error()), "", "L", false)
	out, err := w.bytes()
	if err != nil {
		return nil
	}
	return out
}
