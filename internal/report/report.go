// Package report exports ledger summaries to XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"scrap-ledger/internal/core"
)

// Workbook collects report sheets before they are written out.
type Workbook struct {
	f          *excelize.File
	headStyle  int
	moneyStyle int
	sheets     int
}

// New starts an empty workbook.
func New() (*Workbook, error) {
	f := excelize.NewFile()
	head, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create money style: %w", err)
	}
	return &Workbook{f: f, headStyle: head, moneyStyle: money}, nil
}

// Close releases the workbook's resources.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// sheet returns a fresh sheet called name, reusing the default first sheet.
func (w *Workbook) sheet(name string) (string, error) {
	w.sheets++
	if w.sheets == 1 {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return "", err
		}
		return name, nil
	}
	if _, err := w.f.NewSheet(name); err != nil {
		return "", err
	}
	return name, nil
}

func (w *Workbook) writeTable(sheet string, header []any, rows [][]any, moneyFrom, moneyTo int) error {
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.headStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(rows) > 0 && moneyFrom > 0 {
		from, _ := excelize.CoordinatesToCellName(moneyFrom, 2)
		to, _ := excelize.CoordinatesToCellName(moneyTo, len(rows)+1)
		if err := w.f.SetCellStyle(sheet, from, to, w.moneyStyle); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	return w.f.SetColWidth(sheet, "A", lastCol, 16)
}

func money(d decimal.Decimal) float64 {
	return core.RoundMoney(d).InexactFloat64()
}

// AddSummary writes one row per group plus a total row.
func (w *Workbook) AddSummary(name string, groups []core.PeriodSummary) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	header := []any{"Key", "Label", "Transactions", "Items", "Weight (kg)", "Total", "Paid", "Pending"}
	rows := make([][]any, 0, len(groups)+1)
	all := append(slices.Clone(groups), core.GrandTotal(groups))
	for _, g := range all {
		rows = append(rows, []any{
			g.Key, g.Label, g.TransactionCount, g.ItemCount,
			g.Weight.InexactFloat64(), money(g.Total), money(g.Paid), money(g.Pending),
		})
	}
	if err := w.writeTable(sheet, header, rows, 6, 8); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}
	return nil
}

// AddSalaries writes the monthly salary summary.
func (w *Workbook) AddSalaries(name string, salaries []core.WorkerSalary) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return fmt.Errorf("add salary sheet: %w", err)
	}
	header := []any{"Code", "Name", "Type", "Month", "Total Days", "Days Worked", "Kg", "Earned", "Paid", "Pending"}
	rows := make([][]any, 0, len(salaries))
	for _, s := range salaries {
		rows = append(rows, []any{
			s.Code, s.Name, string(s.WorkerType), fmt.Sprintf("%02d/%d", int(s.Month), s.Year),
			s.TotalDays, s.DaysWorked.InexactFloat64(), s.KgHandled.InexactFloat64(),
			money(s.Earned), money(s.Paid), money(s.Pending),
		})
	}
	if err := w.writeTable(sheet, header, rows, 8, 10); err != nil {
		return fmt.Errorf("write salary sheet: %w", err)
	}
	return nil
}

// SaveAs writes the workbook to path.
func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// WriteTo streams the workbook to out.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.f.WriteTo(out)
}
