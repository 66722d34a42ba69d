// Package store holds the two persistence models behind common interfaces:
// a relational store (postgres or mysql backend) and a document store
// (mongo). Both load the same normalized dataset and expose equivalent
// query, update and deletion operations.
package store

import (
	"context"
	"fmt"
	"time"

	"dualstore-benchmark/internal/canonical"
	"dualstore-benchmark/internal/normalize"
)

// Relational is the SQL side. ImportStrict fails fast on an already
// imported order id; ImportBulk silently skips conflicting natural keys.
type Relational interface {
	EnsureSchema(ctx context.Context) error
	ImportStrict(ctx context.Context, ds *normalize.Dataset) (*ImportReport, error)
	ImportBulk(ctx context.Context, ds *normalize.Dataset) (*ImportReport, error)
	FilteredOrders(ctx context.Context, categoryName, status string) ([]canonical.RelationalRecord, error)
	UpdateStaleOrders(ctx context.Context, policy StalePolicy) (*StaleReport, error)
	DeleteAgedOrders(ctx context.Context, cutoff time.Time) (*EntityCounts, error)
	DeleteAll(ctx context.Context) error
	DatabaseSize(ctx context.Context) (*SizeReport, error)
	Close()
}

// Document is the mongo side. Natural-key conflicts always update in
// place; there is no strict path.
type Document interface {
	EnsureIndexes(ctx context.Context) error
	ImportBulk(ctx context.Context, ds *normalize.Dataset) (*ImportReport, error)
	FilteredOrders(ctx context.Context, categoryName, status string) ([]canonical.DocumentRecord, error)
	UpdateStaleOrders(ctx context.Context, policy StalePolicy) (*StaleReport, error)
	DeleteAgedOrders(ctx context.Context, cutoff time.Time) (*EntityCounts, error)
	DeleteAll(ctx context.Context) error
	DatabaseSize(ctx context.Context) (*SizeReport, error)
	Close(ctx context.Context) error
}

type EntityCounts struct {
	Categories int64 `json:"categories"`
	Customers  int64 `json:"customers"`
	Products   int64 `json:"products"`
	Orders     int64 `json:"orders"`
	LineItems  int64 `json:"lineItems"`
}

func (c EntityCounts) Total() int64 {
	return c.Categories + c.Customers + c.Products + c.Orders + c.LineItems
}

// ImportReport describes one import call against one store. Written counts
// reflect rows the store accepted; with skip-on-conflict semantics they can
// be lower than Attempted.
type ImportReport struct {
	Store     string        `json:"store"`
	Attempted EntityCounts  `json:"attempted"`
	Written   EntityCounts  `json:"written"`
	Duration  time.Duration `json:"duration"`
}

type StaleReport struct {
	OrdersUpdated    int64 `json:"ordersUpdated"`
	CustomersUpdated int64 `json:"customersUpdated"`
}

// StalePolicy selects Pending orders inside the inclusive date window with
// a total value above the threshold, and carries the replacement address
// written to their customers.
type StalePolicy struct {
	WindowStart   time.Time
	WindowEnd     time.Time
	MinOrderValue float64
	Address       string
	City          string
	State         string
	ZipCode       string
}

type SizeReport struct {
	Store      string           `json:"store"`
	Tables     map[string]int64 `json:"tables"`
	TotalBytes int64            `json:"totalBytes"`
}

// DuplicateOrderError aborts the strict relational import before any write.
type DuplicateOrderError struct {
	OrderID string
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("order with ID %s already imported", e.OrderID)
}

// ReferentialGapError reports a child whose declared parent natural key is
// absent from the normalized parent set. Normalization prevents this; the
// importers still check before writing.
type ReferentialGapError struct {
	Entity string
	Key    string
	Parent string
}

func (e *ReferentialGapError) Error() string {
	return fmt.Sprintf("%s %s references missing parent %s", e.Entity, e.Key, e.Parent)
}

// checkReferences verifies parents-before-children integrity of a dataset.
func checkReferences(ds *normalize.Dataset) error {
	for _, p := range ds.Products {
		if !ds.HasCategory(p.CategoryID) {
			return &ReferentialGapError{Entity: "product", Key: p.ID, Parent: p.CategoryID}
		}
	}
	for _, o := range ds.Orders {
		if !ds.HasCustomer(o.CustomerID) {
			return &ReferentialGapError{Entity: "order", Key: o.ID, Parent: o.CustomerID}
		}
	}
	for _, li := range ds.LineItems {
		if !ds.HasOrder(li.OrderID) {
			return &ReferentialGapError{Entity: "line item", Key: li.CompositeKey(), Parent: li.OrderID}
		}
		if !ds.HasProduct(li.ProductID) {
			return &ReferentialGapError{Entity: "line item", Key: li.CompositeKey(), Parent: li.ProductID}
		}
	}
	return nil
}

// chunkSlice splits items into consecutive batches of at most size,
// preserving order.
func chunkSlice[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func attempted(ds *normalize.Dataset) EntityCounts {
	return EntityCounts{
		Categories: int64(len(ds.Categories)),
		Customers:  int64(len(ds.Customers)),
		Products:   int64(len(ds.Products)),
		Orders:     int64(len(ds.Orders)),
		LineItems:  int64(len(ds.LineItems)),
	}
}
