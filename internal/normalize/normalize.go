// Package normalize turns the flat spreadsheet row sequence into
// deduplicated entity sets plus one line item per row. It is a pure
// transformation: no store access.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dualstore-benchmark/internal/model"
	"dualstore-benchmark/internal/rowsource"
)

// spreadsheet serial dates count days since 1899-12-30
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// RowError marks a single malformed row. The row is skipped; the batch
// continues.
type RowError struct {
	Row   int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: field %s: %v", e.Row, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Dataset is the normalized output. Entity slices preserve first-occurrence
// insertion order; LineItems holds one entry per surviving row and is never
// deduplicated here.
type Dataset struct {
	Categories []model.Category
	Customers  []model.Customer
	Products   []model.Product
	Orders     []model.Order
	LineItems  []model.LineItem

	// RowErrors lists rows dropped during parsing.
	RowErrors []*RowError
	// Conflicts counts later rows whose duplicate natural key carried
	// different field values than the first occurrence. First wins; the
	// divergence is surfaced, not merged.
	Conflicts int

	categoryIDs    map[string]model.Category
	customerEmails map[string]model.Customer
	customerIDs    map[string]struct{}
	productIDs     map[string]model.Product
	orderIDs       map[string]model.Order
}

// HasCategory reports whether id is a known parent category.
func (d *Dataset) HasCategory(id string) bool {
	_, ok := d.categoryIDs[id]
	return ok
}

// HasCustomer reports whether id belongs to a normalized customer.
func (d *Dataset) HasCustomer(id string) bool {
	_, ok := d.customerIDs[id]
	return ok
}

// HasProduct reports whether id is a known parent product.
func (d *Dataset) HasProduct(id string) bool {
	_, ok := d.productIDs[id]
	return ok
}

// HasOrder reports whether id is a known parent order.
func (d *Dataset) HasOrder(id string) bool {
	_, ok := d.orderIDs[id]
	return ok
}

// Rows builds a Dataset from records in order. Dedup policy: first
// occurrence wins per natural key (category id, customer email, product id,
// order id). Orders are re-pointed at the deduplicated customer's id, the
// same resolution the per-row upsert path performs against the store.
func Rows(records []rowsource.Record) *Dataset {
	d := &Dataset{
		categoryIDs:    make(map[string]model.Category),
		customerEmails: make(map[string]model.Customer),
		customerIDs:    make(map[string]struct{}),
		productIDs:     make(map[string]model.Product),
		orderIDs:       make(map[string]model.Order),
	}

	for _, rec := range records {
		parsed, rowErr := parseRecord(rec)
		if rowErr != nil {
			d.RowErrors = append(d.RowErrors, rowErr)
			continue
		}
		d.add(parsed)
	}

	return d
}

type parsedRow struct {
	category model.Category
	customer model.Customer
	product  model.Product
	order    model.Order
	item     model.LineItem
}

func (d *Dataset) add(p parsedRow) {
	if existing, ok := d.categoryIDs[p.category.ID]; !ok {
		d.categoryIDs[p.category.ID] = p.category
		d.Categories = append(d.Categories, p.category)
	} else if existing.Name != p.category.Name {
		d.Conflicts++
	}

	customer := p.customer
	if existing, ok := d.customerEmails[customer.Email]; !ok {
		d.customerEmails[customer.Email] = customer
		d.customerIDs[customer.ID] = struct{}{}
		d.Customers = append(d.Customers, customer)
	} else {
		if !sameCustomer(existing, customer) {
			d.Conflicts++
		}
		customer = existing
	}

	if existing, ok := d.productIDs[p.product.ID]; !ok {
		d.productIDs[p.product.ID] = p.product
		d.Products = append(d.Products, p.product)
	} else if !sameProduct(existing, p.product) {
		d.Conflicts++
	}

	order := p.order
	order.CustomerID = customer.ID
	if existing, ok := d.orderIDs[order.ID]; !ok {
		d.orderIDs[order.ID] = order
		d.Orders = append(d.Orders, order)
	} else if !sameOrder(existing, order) {
		d.Conflicts++
	}

	d.LineItems = append(d.LineItems, p.item)
}

func sameCustomer(a, b model.Customer) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Phone == b.Phone &&
		a.Address == b.Address && a.City == b.City && a.State == b.State &&
		a.ZipCode == b.ZipCode
}

func sameProduct(a, b model.Product) bool {
	return a.Name == b.Name && a.CategoryID == b.CategoryID && a.Price == b.Price
}

func sameOrder(a, b model.Order) bool {
	return a.OrderDate.Equal(b.OrderDate) && a.CustomerID == b.CustomerID &&
		a.ShippingCost == b.ShippingCost && a.TotalOrderValue == b.TotalOrderValue &&
		a.Status == b.Status && a.PaymentMethod == b.PaymentMethod
}

func parseRecord(rec rowsource.Record) (parsedRow, *RowError) {
	var p parsedRow

	required := []struct {
		field string
		value string
	}{
		{"OrderID", rec.OrderID},
		{"OrderDate", rec.OrderDate},
		{"CustomerID", rec.CustomerID},
		{"Email", rec.Email},
		{"ProductID", rec.ProductID},
		{"CategoryID", rec.CategoryID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return p, &RowError{Row: rec.Row, Field: r.field, Err: fmt.Errorf("required field is empty")}
		}
	}

	orderDate, err := ParseDate(rec.OrderDate)
	if err != nil {
		return p, &RowError{Row: rec.Row, Field: "OrderDate", Err: err}
	}
	price, err := parseFloat(rec.Price)
	if err != nil {
		return p, &RowError{Row: rec.Row, Field: "Price", Err: err}
	}
	quantity, err := parseInt(rec.Quantity)
	if err != nil {
		return p, &RowError{Row: rec.Row, Field: "Quantity", Err: err}
	}
	totalProductPrice, err := parseFloat(rec.TotalProductPrice)
	if err != nil {
		return p, &RowError{Row: rec.Row, Field: "TotalProductPrice", Err: err}
	}
	shippingCost, err := parseFloat(rec.ShippingCost)
	if err != nil {
		return p, &RowError{Row: rec.Row, Field: "ShippingCost", Err: err}
	}
	totalOrderValue, err := parseFloat(rec.TotalOrderValue)
	if err != nil {
		return p, &RowError{Row: rec.Row, Field: "TotalOrderValue", Err: err}
	}

	p.category = model.Category{
		ID:   rec.CategoryID,
		Name: rec.CategoryName,
	}
	p.customer = model.Customer{
		ID:        rec.CustomerID,
		Name:      rec.CustomerName,
		Email:     rec.Email,
		Phone:     rec.PhoneNumber,
		Address:   rec.Address,
		City:      rec.City,
		State:     rec.State,
		ZipCode:   rec.ZipCode,
		CreatedAt: orderDate,
		UpdatedAt: orderDate,
	}
	p.product = model.Product{
		ID:         rec.ProductID,
		Name:       rec.ProductName,
		CategoryID: rec.CategoryID,
		Price:      price,
		CreatedAt:  orderDate,
		UpdatedAt:  orderDate,
	}
	p.order = model.Order{
		ID:              rec.OrderID,
		OrderDate:       orderDate,
		CustomerID:      rec.CustomerID,
		ShippingCost:    shippingCost,
		TotalOrderValue: totalOrderValue,
		Status:          rec.OrderStatus,
		PaymentMethod:   rec.PaymentMethod,
		CreatedAt:       orderDate,
		UpdatedAt:       orderDate,
	}
	p.item = model.LineItem{
		OrderID:    rec.OrderID,
		ProductID:  rec.ProductID,
		Quantity:   quantity,
		TotalPrice: totalProductPrice,
		CreatedAt:  orderDate,
		UpdatedAt:  orderDate,
	}

	return p, nil
}

// ParseDate accepts 2006-01-02, RFC3339, or a numeric spreadsheet serial
// (days since 1899-12-30, fractional part carries time of day).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	days := int(serial)
	frac := serial - float64(days)
	return serialEpoch.AddDate(0, 0, days).
		Add(time.Duration(frac * float64(24*time.Hour))), nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
