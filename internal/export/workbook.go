package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/cashflow/internal/model"
)

const (
	dateFormat  = "yyyy-mm-dd"
	moneyFormat = "#,##0.00"
)

// WriteWorkbook writes the projection as an xlsx workbook with one sheet
// per table.
func WriteWorkbook(w io.Writer, p model.Projection) error {
	f, err := buildWorkbook(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes the projection workbook to path.
func SaveWorkbook(path string, p model.Projection) error {
	f, err := buildWorkbook(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(p model.Projection) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#3AA99F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	datePattern := dateFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &datePattern})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating date style: %w", err)
	}
	moneyPattern := moneyFormat
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyPattern})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating money style: %w", err)
	}

	for i, t := range Tables(p) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", t.Sheet, err)
		}

		if err := writeTable(f, t, headerStyle, dateStyle, moneyStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", t.Sheet, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeTable(f *excelize.File, t Table, headerStyle, dateStyle, moneyStyle int) error {
	headers := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(t.Sheet, "A1", &headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.Sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(t.Rows) > 0 {
		for _, c := range t.DateColumns {
			if err := styleColumn(f, t.Sheet, c, len(t.Rows), dateStyle); err != nil {
				return err
			}
		}
		for _, c := range t.MoneyColumns {
			if err := styleColumn(f, t.Sheet, c, len(t.Rows), moneyStyle); err != nil {
				return err
			}
		}
	}

	for i, h := range t.Headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(len(h)) + 4
		if width < 12 {
			width = 12
		}
		if err := f.SetColWidth(t.Sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// styleColumn styles rows 2..n+1 of a zero-based column.
func styleColumn(f *excelize.File, sheet string, col, n, style int) error {
	top, err := excelize.CoordinatesToCellName(col+1, 2)
	if err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(col+1, n+1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, top, bottom, style)
}

// ReadWorkbook reads a workbook written by WriteWorkbook. Structured
// credits and charges are not stored in the sheets, so only the labels
// come back.
func ReadWorkbook(r io.Reader) (model.Projection, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.Projection{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var p model.Projection
	if p.Ledger, err = readDays(f, SheetLedger); err != nil {
		return model.Projection{}, err
	}
	if p.Critical, err = readDays(f, SheetCritical); err != nil {
		return model.Projection{}, err
	}
	if p.Summary, err = readSummary(f); err != nil {
		return model.Projection{}, err
	}
	if p.Recommendations, err = readRecommendations(f); err != nil {
		return model.Projection{}, err
	}
	return p, nil
}

// dataRows returns the sheet's rows after the header, with raw cell values.
func dataRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}
	return rows[1:], nil
}

// rowReader decodes cells of one row, remembering the first error.
type rowReader struct {
	sheet string
	line  int
	row   []string
	err   error
}

// cell returns column i, or "" when trailing empty cells were trimmed.
func (rr *rowReader) cell(i int) string {
	if i < len(rr.row) {
		return rr.row[i]
	}
	return ""
}

func (rr *rowReader) fail(col int, what string, err error) {
	if rr.err == nil {
		rr.err = fmt.Errorf("%s row %d column %d: %s: %w", rr.sheet, rr.line, col+1, what, err)
	}
}

func (rr *rowReader) float(i int) float64 {
	s := rr.cell(i)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		rr.fail(i, "number", err)
	}
	return v
}

func (rr *rowReader) int(i int) int {
	return int(rr.float(i))
}

func (rr *rowReader) date(i int) time.Time {
	// Whole days only; rounding absorbs float error in the serial.
	serial := math.Round(rr.float(i))
	d, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		rr.fail(i, "date", err)
		return time.Time{}
	}
	return dateOnly(d)
}

func readDays(f *excelize.File, sheet string) ([]model.DayRecord, error) {
	rows, err := dataRows(f, sheet)
	if err != nil {
		return nil, err
	}
	days := make([]model.DayRecord, 0, len(rows))
	for i, row := range rows {
		rr := rowReader{sheet: sheet, line: i + 2, row: row}
		d := model.DayRecord{
			Date:         rr.date(0),
			Day:          rr.int(1),
			Month:        rr.int(2),
			Weekday:      rr.cell(3),
			Income:       rr.float(4),
			IncomeLabel:  rr.cell(5),
			Expense:      rr.float(6),
			ExpenseLabel: rr.cell(7),
			Balance:      rr.float(8),
		}
		if rr.err != nil {
			return nil, rr.err
		}
		days = append(days, d)
	}
	return days, nil
}

func readSummary(f *excelize.File) ([]model.ReductionSummary, error) {
	rows, err := dataRows(f, SheetSummary)
	if err != nil {
		return nil, err
	}
	out := make([]model.ReductionSummary, 0, len(rows))
	for i, row := range rows {
		rr := rowReader{sheet: SheetSummary, line: i + 2, row: row}
		s := model.ReductionSummary{
			Category:        rr.cell(0),
			Original:        rr.float(1),
			AdjustedAverage: rr.float(2),
			TotalReduced:    rr.float(3),
		}
		if rr.err != nil {
			return nil, rr.err
		}
		out = append(out, s)
	}
	return out, nil
}

func readRecommendations(f *excelize.File) ([]model.Recommendation, error) {
	rows, err := dataRows(f, SheetRecommendations)
	if err != nil {
		return nil, err
	}
	out := make([]model.Recommendation, 0, len(rows))
	for i, row := range rows {
		rr := rowReader{sheet: SheetRecommendations, line: i + 2, row: row}
		rec := model.Recommendation{Date: rr.date(0), Message: rr.cell(1)}
		if rr.err != nil {
			return nil, rr.err
		}
		out = append(out, rec)
	}
	return out, nil
}
