package invoice

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"martelinho/internal/cache"
	"martelinho/internal/core"
	"martelinho/internal/log"
)

type rgb struct{ r, g, b int }

var (
	colorBrand  = rgb{37, 99, 235}   // #2563EB
	colorText   = rgb{55, 65, 81}    // #374151
	colorHeader = rgb{31, 41, 55}    // #1F2937
	colorBorder = rgb{234, 234, 234} // #EAEAEA
	colorFill   = rgb{243, 244, 246} // #F3F4F6
)

const (
	fontFamily = "Helvetica"
	lineHeight = 6.0
)

// Render lays doc out on A4 pages and writes the PDF to w.
func Render(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title+" "+doc.OrderNumber, true)
	pdf.SetCreator(doc.Brand, true)
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		setText(pdf, colorText)
		pdf.CellFormat(0, 5, tr(doc.Footer), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right

	pdf.SetFont(fontFamily, "B", 16)
	setText(pdf, colorBrand)
	pdf.CellFormat(0, 10, tr(doc.Brand), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(fontFamily, "B", 14)
	setText(pdf, colorHeader)
	pdf.CellFormat(0, 8, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	labelValue(pdf, tr, width/2, "Nº do Pedido", doc.OrderNumber, "L", 0)
	labelValue(pdf, tr, width/2, "Data", doc.Date, "R", 1)
	labelValue(pdf, tr, width, "Código de Autenticação", doc.AuthCode, "L", 1)
	pdf.Ln(4)

	for _, s := range doc.Sections {
		renderSection(pdf, tr, width, s)
	}

	if pdf.Err() {
		return fmt.Errorf("layout invoice: %w", pdf.Error())
	}
	return pdf.Output(w)
}

func renderSection(pdf *fpdf.Fpdf, tr func(string) string, width float64, s Section) {
	pdf.Ln(3)
	pdf.SetFont(fontFamily, "B", 11)
	setText(pdf, colorBrand)
	pdf.CellFormat(0, 7, tr(s.Heading), "", 1, "L", false, 0, "")
	setText(pdf, colorText)
	pdf.SetDrawColor(colorBorder.r, colorBorder.g, colorBorder.b)

	if len(s.Fields) > 0 {
		border := ""
		if s.Boxed {
			border = "LR"
		}
		for i, f := range s.Fields {
			b := border
			if s.Boxed && i == 0 {
				b += "T"
			}
			if s.Boxed && i == len(s.Fields)-1 {
				b += "B"
			}
			pdf.SetFont(fontFamily, "B", 10)
			label := tr(f.Label + ": ")
			lw := pdf.GetStringWidth(label) + 2
			pdf.CellFormat(lw, lineHeight, label, trimRight(b), 0, "L", false, 0, "")
			pdf.SetFont(fontFamily, "", 10)
			pdf.CellFormat(width-lw, lineHeight, tr(f.Value), trimLeft(b), 1, "L", false, 0, "")
		}
	}

	if s.Table != nil {
		renderTable(pdf, tr, width, s.Table)
	}

	if s.Total != nil {
		pdf.Ln(2)
		pdf.SetFont(fontFamily, "B", 10)
		pdf.CellFormat(width*0.75, lineHeight+1, tr(s.Total.Label+":"), "", 0, "R", false, 0, "")
		pdf.SetFont(fontFamily, "B", 12)
		setText(pdf, colorBrand)
		pdf.CellFormat(width*0.25, lineHeight+1, tr(s.Total.Value), "", 1, "R", false, 0, "")
		setText(pdf, colorText)
	}

	if len(s.Bullets) > 0 {
		pdf.SetFont(fontFamily, "", 10)
		for _, b := range s.Bullets {
			pdf.CellFormat(6, lineHeight, tr("•"), "", 0, "C", false, 0, "")
			pdf.CellFormat(width-6, lineHeight, tr(b), "", 1, "L", false, 0, "")
		}
	}

	if len(s.Paragraphs) > 0 {
		pdf.SetFont(fontFamily, "", 10)
		border := ""
		if s.Boxed {
			border = "1"
		}
		for _, p := range s.Paragraphs {
			pdf.MultiCell(width, lineHeight-1, tr(p), border, "L", false)
		}
	}

	if len(s.Signatures) > 0 {
		pdf.Ln(16)
		colW := width / float64(len(s.Signatures))
		left, _, _, _ := pdf.GetMargins()
		y := pdf.GetY()
		pdf.SetDrawColor(colorText.r, colorText.g, colorText.b)
		for i := range s.Signatures {
			x := left + float64(i)*colW
			pdf.Line(x+8, y, x+colW-8, y)
		}
		pdf.Ln(1)
		pdf.SetFont(fontFamily, "", 9)
		for _, sig := range s.Signatures {
			pdf.CellFormat(colW, lineHeight, tr(sig), "", 0, "C", false, 0, "")
		}
		pdf.Ln(lineHeight)
	}
}

func renderTable(pdf *fpdf.Fpdf, tr func(string) string, width float64, t *Table) {
	pdf.SetFont(fontFamily, "B", 10)
	setText(pdf, colorHeader)
	pdf.SetFillColor(colorFill.r, colorFill.g, colorFill.b)
	for _, c := range t.Columns {
		pdf.CellFormat(width*c.Width, lineHeight+1, tr(c.Header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", 10)
	setText(pdf, colorText)
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(width*c.Width, lineHeight, tr(cell), "1", 0, string(c.Align), false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func labelValue(pdf *fpdf.Fpdf, tr func(string) string, w float64, label, value, align string, ln int) {
	text := tr(label + ": " + value)
	pdf.SetFont(fontFamily, "", 10)
	setText(pdf, colorText)
	pdf.CellFormat(w, lineHeight, text, "", ln, align, false, 0, "")
}

func setText(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetTextColor(c.r, c.g, c.b)
}

func trimRight(border string) string {
	out := make([]byte, 0, len(border))
	for i := 0; i < len(border); i++ {
		if border[i] != 'R' {
			out = append(out, border[i])
		}
	}
	return string(out)
}

func trimLeft(border string) string {
	out := make([]byte, 0, len(border))
	for i := 0; i < len(border); i++ {
		if border[i] != 'L' {
			out = append(out, border[i])
		}
	}
	return string(out)
}

// Renderer renders invoices and keeps recent PDFs in a cache keyed by
// record id and update time, so an edited record is rendered again.
type Renderer struct {
	cache  cache.Cache[[]byte]
	logger *log.Logger
}

func NewRenderer(c cache.Cache[[]byte], logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Renderer{cache: c, logger: logger.WithComponent(log.ComponentInvoice)}
}

// PDF returns the rendered invoice of rec and its file name.
func (r *Renderer) PDF(rec core.ServiceRecord) ([]byte, string, error) {
	doc := Build(rec)
	key := cacheKey(rec)
	if r.cache != nil {
		if b, ok := r.cache.Get(key); ok {
			return b, doc.FileName, nil
		}
	}

	var buf bytes.Buffer
	if err := Render(doc, &buf); err != nil {
		r.logger.Error("Failed to render invoice",
			log.FieldServiceID, rec.ID,
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		return nil, "", err
	}
	if r.cache != nil {
		r.cache.Set(key, buf.Bytes())
	}
	r.logger.Debug("Invoice rendered", log.FieldServiceID, rec.ID, log.FieldAuthCode, rec.AuthCode, "bytes", buf.Len())
	return buf.Bytes(), doc.FileName, nil
}

// Invalidate drops every cached rendering of the record id.
func (r *Renderer) Invalidate(id string) {
	if r.cache != nil {
		r.cache.DeletePrefix(id + "@")
	}
}

func cacheKey(rec core.ServiceRecord) string {
	return rec.ID + "@" + rec.UpdatedAt.UTC().Format(time.RFC3339Nano)
}
