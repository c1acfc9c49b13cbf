package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders timetable grids into a landscape PDF. The first header
// is treated as the row label column (class or teacher) and gets extra width
// so slot cells stay readable across a full week.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

const (
	pdfPageWidth   = 277.0
	pdfLabelFactor = 1.6
)

// Render creates a PDF document with an optional title above the grid.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	labelWidth, cellWidth := columnWidths(len(data.Headers))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		width := cellWidth
		if i == 0 {
			width = labelWidth
		}
		pdf.CellFormat(width, 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			width := cellWidth
			align := "C"
			if i == 0 {
				width = labelWidth
				align = "L"
			}
			pdf.CellFormat(width, 7, row[header], "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(headers int) (label, cell float64) {
	if headers == 1 {
		return pdfPageWidth, 0
	}
	cell = pdfPageWidth / (float64(headers-1) + pdfLabelFactor)
	return cell * pdfLabelFactor, cell
}
