package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/samber/lo"
)

const (
	pdfPageWidth   = 277.0
	pdfHeaderLine  = 8.0
	pdfRowLine     = 7.0
	pdfBottomLimit = 190.0
)

// PDFExporter renders datasets as a landscape A4 table. The header row is
// repeated on every page.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays the table out with column widths proportional to the
// longest cell of each column.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, data.Title, "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	widths := columnWidths(data)
	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, title := range data.Headers {
			pdf.CellFormat(widths[i], pdfHeaderLine, title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()
	for _, row := range data.Rows {
		if pdf.GetY()+pdfRowLine > pdfBottomLimit {
			pdf.AddPage()
			header()
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], pdfRowLine, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(data.Rows) == 0 {
		pdf.CellFormat(lo.Sum(widths), pdfRowLine, "No entries", "1", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(data Dataset) []float64 {
	weights := lo.Map(data.Headers, func(header string, i int) float64 {
		longest := len(header)
		for _, row := range data.Rows {
			longest = max(longest, len(row[i]))
		}
		return float64(max(longest, 4))
	})
	total := lo.Sum(weights)
	return lo.Map(weights, func(w float64, _ int) float64 { return pdfPageWidth * w / total })
}
