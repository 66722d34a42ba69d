package rowsource

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Column headers expected on the first sheet, matching the mock data
// generator's output.
var requiredColumns = []string{
	"OrderID", "OrderDate", "CustomerID", "CustomerName", "Email",
	"PhoneNumber", "Address", "City", "State", "ZipCode",
	"ProductID", "ProductName", "CategoryID", "CategoryName",
	"Price", "Quantity", "TotalProductPrice",
	"ShippingCost", "TotalOrderValue", "OrderStatus", "PaymentMethod",
}

// XLSXSource reads records from the first sheet of an .xlsx workbook.
// Cells are read raw, so date cells arrive as spreadsheet serial numbers.
type XLSXSource struct {
	Path string
}

func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{Path: path}
}

func (s *XLSXSource) Records() ([]Record, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.Path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", s.Path)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("sheet %s is missing column %q", sheets[0], name)
		}
	}

	records := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		cell := func(name string) string {
			i := index[name]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}
		records = append(records, Record{
			Row:               n + 1,
			OrderID:           cell("OrderID"),
			OrderDate:         cell("OrderDate"),
			CustomerID:        cell("CustomerID"),
			CustomerName:      cell("CustomerName"),
			Email:             cell("Email"),
			PhoneNumber:       cell("PhoneNumber"),
			Address:           cell("Address"),
			City:              cell("City"),
			State:             cell("State"),
			ZipCode:           cell("ZipCode"),
			ProductID:         cell("ProductID"),
			ProductName:       cell("ProductName"),
			CategoryID:        cell("CategoryID"),
			CategoryName:      cell("CategoryName"),
			Price:             cell("Price"),
			Quantity:          cell("Quantity"),
			TotalProductPrice: cell("TotalProductPrice"),
			ShippingCost:      cell("ShippingCost"),
			TotalOrderValue:   cell("TotalOrderValue"),
			OrderStatus:       cell("OrderStatus"),
			PaymentMethod:     cell("PaymentMethod"),
		})
	}

	return records, nil
}
