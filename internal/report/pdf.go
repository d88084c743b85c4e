package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const footerText = "Home Bot Admin Panel"

// FormatPDF renders s as an A4 PDF: heading, generation time, total,
// then one numbered block per record.
func FormatPDF(s Snapshot) (*Document, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(s.GeneratedAt)
	pdf.SetTitle(fmt.Sprintf("Home Bot %s Report", s.Kind.Title()), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s - Page %d", footerText, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, fmt.Sprintf("Home Bot %s Report", s.Kind.Title()), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Generated on: "+s.GeneratedAt.UTC().Format(generatedLayout), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total %s: %d", s.Kind, len(s.Records)))
	pdf.Ln(10)

	for i, rec := range s.Records {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 7, tr(fmt.Sprintf("%d. %s", i+1, rec.Title)))
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 10)
		for _, f := range rec.Fields {
			pdf.CellFormat(35, 6, f.Label+":", "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(f.Value), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return &Document{
		Filename:    s.filename(PDF),
		ContentType: ContentTypePDF,
		Data:        buf.Bytes(),
	}, nil
}
