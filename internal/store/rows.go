package store

import (
	"fmt"

	"github.com/google/uuid"

	"dualstore-benchmark/internal/normalize"
)

// Row builders shared by the relational backends. Values are ordered to
// match the column lists passed to bulkInsert.

func categoryRows(ds *normalize.Dataset) [][]any {
	rows := make([][]any, 0, len(ds.Categories))
	for _, c := range ds.Categories {
		rows = append(rows, []any{c.ID, c.Name})
	}
	return rows
}

func customerRows(ds *normalize.Dataset) [][]any {
	rows := make([][]any, 0, len(ds.Customers))
	for _, c := range ds.Customers {
		rows = append(rows, []any{
			c.ID, c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode,
			c.CreatedAt, c.UpdatedAt,
		})
	}
	return rows
}

func productRows(ds *normalize.Dataset) [][]any {
	rows := make([][]any, 0, len(ds.Products))
	for _, p := range ds.Products {
		rows = append(rows, []any{p.ID, p.Name, p.CategoryID, p.Price, p.CreatedAt, p.UpdatedAt})
	}
	return rows
}

func orderRows(ds *normalize.Dataset) [][]any {
	rows := make([][]any, 0, len(ds.Orders))
	for _, o := range ds.Orders {
		rows = append(rows, []any{
			o.ID, o.OrderDate, o.CustomerID, o.ShippingCost, o.TotalOrderValue,
			o.Status, o.PaymentMethod, o.CreatedAt, o.UpdatedAt,
		})
	}
	return rows
}

func lineItemRows(ds *normalize.Dataset) [][]any {
	occurrence := make(map[string]int, len(ds.LineItems))
	rows := make([][]any, 0, len(ds.LineItems))
	for _, li := range ds.LineItems {
		pair := li.OrderID + "|" + li.ProductID
		ordinal := occurrence[pair]
		occurrence[pair]++
		rows = append(rows, []any{
			lineItemID(li.OrderID, li.ProductID, ordinal),
			li.OrderID, li.ProductID, li.Quantity, li.TotalPrice,
			li.CreatedAt, li.UpdatedAt,
		})
	}
	return rows
}

// lineItemID derives a stable surrogate id per (order, product, ordinal),
// so re-running the bulk import hits the same primary keys instead of
// growing the table, while repeated pairs inside one dataset still get
// independent rows.
func lineItemID(orderID, productID string, ordinal int) string {
	name := fmt.Sprintf("%s|%s|%d", orderID, productID, ordinal)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
