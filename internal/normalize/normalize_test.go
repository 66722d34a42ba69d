package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dualstore-benchmark/internal/rowsource"
)

func record(row int) rowsource.Record {
	return rowsource.Record{
		Row:               row,
		OrderID:           "O1",
		OrderDate:         "2024-03-05",
		CustomerID:        "C1",
		CustomerName:      "Alice",
		Email:             "alice@example.com",
		PhoneNumber:       "555-0100",
		Address:           "1 Main St",
		City:              "Springfield",
		State:             "IL",
		ZipCode:           "62701",
		ProductID:         "P1",
		ProductName:       "Apple",
		CategoryID:        "CAT1",
		CategoryName:      "Fruits",
		Price:             "2.50",
		Quantity:          "4",
		TotalProductPrice: "10.00",
		ShippingCost:      "5.00",
		TotalOrderValue:   "15.00",
		OrderStatus:       "Shipped",
		PaymentMethod:     "PayPal",
	}
}

func TestRowsDeduplicatesByNaturalKey(t *testing.T) {
	r1 := record(1)
	r2 := record(2)
	r2.ProductID = "P2"
	r2.ProductName = "Banana"

	ds := Rows([]rowsource.Record{r1, r2})

	assert.Len(t, ds.Categories, 1)
	assert.Len(t, ds.Customers, 1)
	assert.Len(t, ds.Products, 2)
	assert.Len(t, ds.Orders, 1)
	assert.Len(t, ds.LineItems, 2)
	assert.Empty(t, ds.RowErrors)
	assert.Zero(t, ds.Conflicts)
}

func TestRowsOneLineItemPerRow(t *testing.T) {
	// same (order, product) pair twice stays two line items
	ds := Rows([]rowsource.Record{record(1), record(2)})

	assert.Len(t, ds.Orders, 1)
	require.Len(t, ds.LineItems, 2)
	assert.Equal(t, ds.LineItems[0].CompositeKey(), ds.LineItems[1].CompositeKey())
}

func TestRowsCountsConflictingDuplicates(t *testing.T) {
	r1 := record(1)
	r2 := record(2)
	r2.Price = "3.99" // same product id, different price

	ds := Rows([]rowsource.Record{r1, r2})

	require.Len(t, ds.Products, 1)
	assert.Equal(t, 2.50, ds.Products[0].Price, "first occurrence wins")
	assert.Equal(t, 1, ds.Conflicts)
}

func TestRowsRepointsOrderAtDeduplicatedCustomer(t *testing.T) {
	r1 := record(1)
	r2 := record(2)
	r2.OrderID = "O2"
	r2.CustomerID = "C2" // same email, different external id

	ds := Rows([]rowsource.Record{r1, r2})

	require.Len(t, ds.Customers, 1)
	require.Len(t, ds.Orders, 2)
	assert.Equal(t, "C1", ds.Orders[1].CustomerID)
	assert.Equal(t, 1, ds.Conflicts)
	assert.True(t, ds.HasCustomer("C1"))
	assert.False(t, ds.HasCustomer("C2"))
}

func TestRowsSkipsMalformedRows(t *testing.T) {
	bad := record(2)
	bad.Quantity = "four"
	missing := record(3)
	missing.OrderID = ""

	ds := Rows([]rowsource.Record{record(1), bad, missing})

	assert.Len(t, ds.LineItems, 1)
	require.Len(t, ds.RowErrors, 2)
	assert.Equal(t, 2, ds.RowErrors[0].Row)
	assert.Equal(t, "Quantity", ds.RowErrors[0].Field)
	assert.Equal(t, 3, ds.RowErrors[1].Row)
	assert.Equal(t, "OrderID", ds.RowErrors[1].Field)
}

func TestParseDateFormats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-06-15T12:30:00Z", time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)},
		// spreadsheet serial for 2024-01-01
		{"45292", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		// fractional serial carries time of day
		{"45292.5", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(tt.want), "%s: got %s want %s", tt.in, got, tt.want)
	}

	_, err := ParseDate("not-a-date")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestRowsStampsEntityTimesFromOrderDate(t *testing.T) {
	ds := Rows([]rowsource.Record{record(1)})

	require.Len(t, ds.Orders, 1)
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	assert.True(t, ds.Orders[0].OrderDate.Equal(want))
	assert.True(t, ds.Customers[0].CreatedAt.Equal(want))
	assert.True(t, ds.Products[0].UpdatedAt.Equal(want))
	assert.True(t, ds.LineItems[0].CreatedAt.Equal(want))
}
