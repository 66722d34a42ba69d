package rowsource

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, header []string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, name := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, name))
	}
	for r, row := range rows {
		for i, value := range row {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	path := filepath.Join(t.TempDir(), "orders.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXSourceReadsRows(t *testing.T) {
	row := []string{
		"O1", "2024-03-05", "C1", "Alice", "alice@example.com",
		"555-0100", "1 Main St", "Springfield", "IL", "62701",
		"P1", "Apple", "CAT1", "Fruits",
		"2.50", "4", "10.00",
		"5.00", "15.00", "Shipped", "PayPal",
	}
	path := writeWorkbook(t, requiredColumns, [][]string{row})

	records, err := NewXLSXSource(path).Records()
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 1, rec.Row)
	assert.Equal(t, "O1", rec.OrderID)
	assert.Equal(t, "alice@example.com", rec.Email)
	assert.Equal(t, "Fruits", rec.CategoryName)
	assert.Equal(t, "PayPal", rec.PaymentMethod)
}

func TestXLSXSourceShortRowsPadEmpty(t *testing.T) {
	// trailing cells absent from the row come back as empty strings
	row := []string{"O1", "2024-03-05", "C1"}
	path := writeWorkbook(t, requiredColumns, [][]string{row})

	records, err := NewXLSXSource(path).Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "C1", records[0].CustomerID)
	assert.Empty(t, records[0].Email)
}

func TestXLSXSourceRejectsMissingColumns(t *testing.T) {
	header := append([]string{}, requiredColumns[:len(requiredColumns)-1]...)
	path := writeWorkbook(t, header, nil)

	_, err := NewXLSXSource(path).Records()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PaymentMethod")
}

func TestXLSXSourceMissingFile(t *testing.T) {
	_, err := NewXLSXSource(filepath.Join(t.TempDir(), "nope.xlsx")).Records()
	assert.Error(t, err)
}

func TestSliceSourceReturnsCopy(t *testing.T) {
	src := SliceSource{{Row: 1, OrderID: "O1"}}

	records, err := src.Records()
	require.NoError(t, err)
	records[0].OrderID = "mutated"

	again, err := src.Records()
	require.NoError(t, err)
	assert.Equal(t, "O1", again[0].OrderID)
}
