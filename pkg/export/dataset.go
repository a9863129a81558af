// Package export renders timetables as CSV or PDF documents.
package export

import "fmt"

// Format selects the output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset is an ordered table. Every row has one cell per header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}

// Render encodes the dataset in the requested format.
func Render(format Format, data Dataset) ([]byte, error) {
	switch format {
	case FormatCSV:
		return NewCSVExporter().Render(data)
	case FormatPDF:
		return NewPDFExporter().Render(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
