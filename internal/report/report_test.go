package report_test

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"scrap-ledger/internal/core"
	"scrap-ledger/internal/report"
)

func raw(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func TestAddSummary_WritesGroupsAndTotal(t *testing.T) {
	groups := []core.PeriodSummary{
		{Key: "AL", Label: "Aluminium", TransactionCount: 1, ItemCount: 1, Weight: decimal.RequireFromString("20"), Total: decimal.RequireFromString("3000")},
		{Key: "CU", Label: "Copper", TransactionCount: 3, ItemCount: 3, Weight: decimal.RequireFromString("17"), Total: decimal.RequireFromString("8700.5")},
	}

	wb, err := report.New()
	require.NoError(t, err)
	defer wb.Close()
	require.NoError(t, wb.AddSummary("April", groups))

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, wb.SaveAs(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"April"}, f.GetSheetList())
	assert.Equal(t, "Key", raw(t, f, "April", "A1"))
	assert.Equal(t, "AL", raw(t, f, "April", "A2"))
	assert.Equal(t, "Copper", raw(t, f, "April", "B3"))
	assert.Equal(t, "total", raw(t, f, "April", "A4"))
	assert.Equal(t, "4", raw(t, f, "April", "C4"))
	assert.Equal(t, "37", raw(t, f, "April", "E4"))
	assert.Equal(t, "11700.5", raw(t, f, "April", "F4"))
	assert.Len(t, groups, 2)
}

func TestAddSalaries_SecondSheet(t *testing.T) {
	wb, err := report.New()
	require.NoError(t, err)
	defer wb.Close()

	require.NoError(t, wb.AddSummary("Summary", nil))
	require.NoError(t, wb.AddSalaries("Salaries", []core.WorkerSalary{{
		Code: "L1", Name: "Suresh", WorkerType: core.WorkerLabour,
		Year: 2026, Month: time.April, TotalDays: 30,
		DaysWorked: decimal.RequireFromString("1.5"), KgHandled: decimal.RequireFromString("100"),
		Earned: decimal.RequireFromString("1100"), Paid: decimal.RequireFromString("800"), Pending: decimal.RequireFromString("300"),
	}}))

	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Salaries"}, f.GetSheetList())
	assert.Equal(t, "04/2026", raw(t, f, "Salaries", "D2"))
	assert.Equal(t, "1.5", raw(t, f, "Salaries", "F2"))
	assert.Equal(t, "300", raw(t, f, "Salaries", "J2"))
	assert.Equal(t, "total", raw(t, f, "Summary", "A2"))
}
