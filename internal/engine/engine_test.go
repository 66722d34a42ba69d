package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dualstore-benchmark/internal/canonical"
	"dualstore-benchmark/internal/normalize"
	"dualstore-benchmark/internal/rowsource"
	"dualstore-benchmark/internal/store"
)

// fakeRelational tracks imported order ids to mimic the strict/bulk split.
type fakeRelational struct {
	imported    map[string]bool
	strictCalls int
	bulkCalls   int
	records     []canonical.RelationalRecord
	staleReport store.StaleReport
	deletedAll  bool
}

func newFakeRelational() *fakeRelational {
	return &fakeRelational{imported: map[string]bool{}}
}

func (f *fakeRelational) EnsureSchema(context.Context) error { return nil }

func (f *fakeRelational) ImportStrict(_ context.Context, ds *normalize.Dataset) (*store.ImportReport, error) {
	f.strictCalls++
	for _, o := range ds.Orders {
		if f.imported[o.ID] {
			return nil, &store.DuplicateOrderError{OrderID: o.ID}
		}
	}
	return f.write(ds), nil
}

func (f *fakeRelational) ImportBulk(_ context.Context, ds *normalize.Dataset) (*store.ImportReport, error) {
	f.bulkCalls++
	return f.write(ds), nil
}

func (f *fakeRelational) write(ds *normalize.Dataset) *store.ImportReport {
	report := &store.ImportReport{Store: "fake-relational"}
	for _, o := range ds.Orders {
		report.Attempted.Orders++
		if f.imported[o.ID] {
			continue
		}
		f.imported[o.ID] = true
		report.Written.Orders++
	}
	return report
}

func (f *fakeRelational) FilteredOrders(context.Context, string, string) ([]canonical.RelationalRecord, error) {
	return f.records, nil
}

func (f *fakeRelational) UpdateStaleOrders(context.Context, store.StalePolicy) (*store.StaleReport, error) {
	return &f.staleReport, nil
}

func (f *fakeRelational) DeleteAgedOrders(context.Context, time.Time) (*store.EntityCounts, error) {
	return &store.EntityCounts{Orders: 1, LineItems: 2}, nil
}

func (f *fakeRelational) DeleteAll(context.Context) error {
	f.deletedAll = true
	f.imported = map[string]bool{}
	return nil
}

func (f *fakeRelational) DatabaseSize(context.Context) (*store.SizeReport, error) {
	return &store.SizeReport{Store: "fake-relational"}, nil
}

func (f *fakeRelational) Close() {}

type fakeDocument struct {
	bulkCalls  int
	records    []canonical.DocumentRecord
	deletedAll bool
}

func (f *fakeDocument) EnsureIndexes(context.Context) error { return nil }

func (f *fakeDocument) ImportBulk(_ context.Context, ds *normalize.Dataset) (*store.ImportReport, error) {
	f.bulkCalls++
	report := &store.ImportReport{Store: "fake-document"}
	report.Attempted.Orders = int64(len(ds.Orders))
	report.Written.Orders = int64(len(ds.Orders))
	return report, nil
}

func (f *fakeDocument) FilteredOrders(context.Context, string, string) ([]canonical.DocumentRecord, error) {
	return f.records, nil
}

func (f *fakeDocument) UpdateStaleOrders(context.Context, store.StalePolicy) (*store.StaleReport, error) {
	return &store.StaleReport{}, nil
}

func (f *fakeDocument) DeleteAgedOrders(context.Context, time.Time) (*store.EntityCounts, error) {
	return &store.EntityCounts{}, nil
}

func (f *fakeDocument) DeleteAll(context.Context) error {
	f.deletedAll = true
	return nil
}

func (f *fakeDocument) DatabaseSize(context.Context) (*store.SizeReport, error) {
	return &store.SizeReport{Store: "fake-document"}, nil
}

func (f *fakeDocument) Close(context.Context) error { return nil }

func sourceRows(orderIDs ...string) rowsource.SliceSource {
	src := make(rowsource.SliceSource, 0, len(orderIDs))
	for i, id := range orderIDs {
		src = append(src, rowsource.Record{
			Row:               i + 1,
			OrderID:           id,
			OrderDate:         "2024-01-01",
			CustomerID:        "C1",
			CustomerName:      "Alice",
			Email:             "alice@example.com",
			ProductID:         "P1",
			ProductName:       "Apple",
			CategoryID:        "CAT1",
			CategoryName:      "Fruits",
			Price:             "20",
			Quantity:          "2",
			TotalProductPrice: "40",
			ShippingCost:      "5",
			TotalOrderValue:   "45",
			OrderStatus:       "Shipped",
			PaymentMethod:     "PayPal",
		})
	}
	return src
}

func newTestEngine(rel store.Relational, doc store.Document) *Engine {
	return New(rel, doc, store.StalePolicy{}, zap.NewNop())
}

func TestParseTarget(t *testing.T) {
	for _, s := range []string{"relational", "document", "dual"} {
		target, err := ParseTarget(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(target))
	}
	_, err := ParseTarget("both")
	assert.Error(t, err)
}

func TestImportDualRefusesReimport(t *testing.T) {
	rel := newFakeRelational()
	doc := &fakeDocument{}
	eng := newTestEngine(rel, doc)

	reports, err := eng.Import(context.Background(), sourceRows("O1"), TargetDual)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 1, rel.strictCalls)
	assert.Equal(t, 1, doc.bulkCalls)

	_, err = eng.Import(context.Background(), sourceRows("O1"), TargetDual)
	var dup *store.DuplicateOrderError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "O1", dup.OrderID)
	assert.Equal(t, 1, doc.bulkCalls, "document store untouched after the strict refusal")
}

func TestImportRelationalBulkIsIdempotent(t *testing.T) {
	rel := newFakeRelational()
	eng := newTestEngine(rel, &fakeDocument{})

	first, err := eng.Import(context.Background(), sourceRows("O1", "O2"), TargetRelational)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(2), first[0].Written.Orders)

	second, err := eng.Import(context.Background(), sourceRows("O1", "O2"), TargetRelational)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second[0].Written.Orders)
	assert.Equal(t, 2, rel.bulkCalls)
	assert.Equal(t, 0, rel.strictCalls)
}

func TestImportDocumentOnly(t *testing.T) {
	rel := newFakeRelational()
	doc := &fakeDocument{}
	eng := newTestEngine(rel, doc)

	reports, err := eng.Import(context.Background(), sourceRows("O1"), TargetDocument)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "fake-document", reports[0].Store)
	assert.Equal(t, 0, rel.strictCalls+rel.bulkCalls)
}

func TestFilteredOrdersCanonicalizesBothStores(t *testing.T) {
	orderDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rel := newFakeRelational()
	rel.records = []canonical.RelationalRecord{{
		OrderID: "O1", OrderDate: orderDate, ShippingCost: 5, TotalOrderValue: 45,
		Status: "Shipped", PaymentMethod: "PayPal",
		CustomerID: "C1", CustomerName: "Alice", CustomerEmail: "alice@example.com",
		ProductID: "P1", ProductName: "Apple", CategoryID: "CAT1", CategoryName: "Fruits",
		Price: 20, Quantity: 2, TotalPrice: 40,
	}}
	doc := &fakeDocument{records: []canonical.DocumentRecord{{
		ID: "O1", OrderDate: orderDate, ShippingCost: 5, TotalOrderValue: 45,
		Status: "Shipped", PaymentMethod: "PayPal",
		Customer: canonical.DocumentCustomer{ID: "C1", Name: "Alice", Email: "alice@example.com"},
		Items: []canonical.DocumentItem{{
			ProductID: "P1", ProductName: "Apple", CategoryID: "CAT1", CategoryName: "Fruits",
			Price: 20, Quantity: 2, TotalPrice: 40,
		}},
	}}}
	eng := newTestEngine(rel, doc)

	results, err := eng.FilteredOrders(context.Background(), TargetDual, "Fruits", "Shipped")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, results["relational"], results["document"])
}

func TestDeleteAllDispatchesByTarget(t *testing.T) {
	rel := newFakeRelational()
	doc := &fakeDocument{}
	eng := newTestEngine(rel, doc)

	require.NoError(t, eng.DeleteAll(context.Background(), TargetRelational))
	assert.True(t, rel.deletedAll)
	assert.False(t, doc.deletedAll)

	require.NoError(t, eng.DeleteAll(context.Background(), TargetDual))
	assert.True(t, doc.deletedAll)
}

func TestDatabaseSizeDual(t *testing.T) {
	eng := newTestEngine(newFakeRelational(), &fakeDocument{})

	reports, err := eng.DatabaseSize(context.Background(), TargetDual)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "fake-relational", reports[0].Store)
	assert.Equal(t, "fake-document", reports[1].Store)
}

func TestNormalizeSurfacesRowErrors(t *testing.T) {
	src := sourceRows("O1")
	bad := src[0]
	bad.Row = 2
	bad.Quantity = "many"
	src = append(src, bad)

	eng := newTestEngine(newFakeRelational(), &fakeDocument{})
	ds, err := eng.Normalize(src)
	require.NoError(t, err)
	assert.Len(t, ds.LineItems, 1)
	assert.Len(t, ds.RowErrors, 1)
}
