// Package rowsource produces the flat order-line records consumed by the
// normalizer. Each record is one spreadsheet row with every attribute
// needed to derive a category, customer, product, order and line item.
package rowsource

// Record carries raw cell values as strings; typed parsing is the
// normalizer's job. Row is the 1-based position in the source, header
// excluded.
type Record struct {
	Row int

	OrderID           string
	OrderDate         string
	CustomerID        string
	CustomerName      string
	Email             string
	PhoneNumber       string
	Address           string
	City              string
	State             string
	ZipCode           string
	ProductID         string
	ProductName       string
	CategoryID        string
	CategoryName      string
	Price             string
	Quantity          string
	TotalProductPrice string
	ShippingCost      string
	TotalOrderValue   string
	OrderStatus       string
	PaymentMethod     string
}

// Source is a finite, ordered, restartable sequence of records. Records
// may be called more than once and returns the same sequence each time.
type Source interface {
	Records() ([]Record, error)
}

// SliceSource serves a fixed record slice, mostly for tests and seeding.
type SliceSource []Record

func (s SliceSource) Records() ([]Record, error) {
	out := make([]Record, len(s))
	copy(out, s)
	return out, nil
}
