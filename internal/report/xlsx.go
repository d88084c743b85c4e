package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// headerRow is the spreadsheet row holding column titles. Rows above it
// carry the heading, generation time and total.
const headerRow = 5

// FormatXLSX renders s as a single-sheet workbook named after the kind,
// one row per record.
func FormatXLSX(s Snapshot) (*Document, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := string(s.Kind)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Home Bot %s Report", s.Kind.Title()))
	_ = f.SetCellValue(sheet, "A2", "Generated on: "+s.GeneratedAt.UTC().Format(generatedLayout))
	_ = f.SetCellValue(sheet, "A3", fmt.Sprintf("Total %s: %d", s.Kind, len(s.Records)))

	header := []any{"#", "Name"}
	if len(s.Records) > 0 {
		for _, fld := range s.Records[0].Fields {
			header = append(header, fld.Label)
		}
	}
	if err := setRow(f, sheet, headerRow, header); err != nil {
		return nil, err
	}

	for i, rec := range s.Records {
		row := []any{i + 1, rec.Title}
		for _, fld := range rec.Fields {
			row = append(row, fld.Value)
		}
		if err := setRow(f, sheet, headerRow+1+i, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("rendering xlsx: %w", err)
	}
	return &Document{
		Filename:    s.filename(XLSX),
		ContentType: ContentTypeXLSX,
		Data:        buf.Bytes(),
	}, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("addressing row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}
