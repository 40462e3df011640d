package output

import (
	"context"
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// maxSheetName is the sheet name limit of the XLSX format.
const maxSheetName = 31

// Workbook collects tables as sheets of one XLSX file, saved on Close.
// It implements pipeline.Sink.
type Workbook struct {
	path string

	mu          sync.Mutex
	file        *excelize.File
	headerStyle int
	sheets      map[string]string // sheet name -> heading
}

// NewWorkbook prepares an empty workbook that will be saved to path.
func NewWorkbook(path string) (*Workbook, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &Workbook{
		path:        path,
		file:        f,
		headerStyle: style,
		sheets:      make(map[string]string),
	}, nil
}

// SheetName derives the sheet name of a section: the file stem, cut to the
// format's limit.
func SheetName(s domain.Section) string {
	name := []rune(s.Stem())
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return string(name)
}

// WriteTable adds the table as a new sheet. The first sheet replaces the
// default empty one.
func (w *Workbook) WriteTable(ctx context.Context, t domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	sheet := SheetName(t.Section)
	if prev, ok := w.sheets[sheet]; ok {
		return fmt.Errorf("sheet %q already holds %q", sheet, prev)
	}

	if len(w.sheets) == 0 {
		if err := w.file.SetSheetName(w.file.GetSheetName(0), sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}
	w.sheets[sheet] = t.Section.Heading()

	header := Header()
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.file.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := w.file.SetCellStyle(sheet, "A1", last, w.headerStyle); err != nil {
		return err
	}

	for i, row := range t.Rows {
		values := make([]any, 0, len(header))
		values = append(values, row.Year)
		for _, cell := range row.Cells {
			if cell.Valid {
				values = append(values, cell.Value)
			} else {
				values = append(values, nil)
			}
		}
		start, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.file.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, row.Year, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	return w.file.SetColWidth(sheet, "A", lastCol, 14)
}

// Close saves the workbook. A workbook with no tables is not written.
func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.file.Close()

	if len(w.sheets) == 0 {
		return nil
	}
	w.file.SetActiveSheet(0)
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	return nil
}
