// Package engine dispatches each operation to the relational store, the
// document store, or both, and reduces their differently shaped results
// into the canonical output types.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dualstore-benchmark/internal/canonical"
	"dualstore-benchmark/internal/normalize"
	"dualstore-benchmark/internal/rowsource"
	"dualstore-benchmark/internal/store"
)

// Target selects which store(s) an operation runs against.
type Target string

const (
	TargetRelational Target = "relational"
	TargetDocument   Target = "document"
	TargetDual       Target = "dual"
)

func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetRelational, TargetDocument, TargetDual:
		return Target(s), nil
	}
	return "", fmt.Errorf("unknown store %q (want relational, document or dual)", s)
}

func (t Target) Relational() bool { return t == TargetRelational || t == TargetDual }
func (t Target) Document() bool   { return t == TargetDocument || t == TargetDual }

type Engine struct {
	rel   store.Relational
	doc   store.Document
	stale store.StalePolicy
	log   *zap.Logger
}

func New(rel store.Relational, doc store.Document, stale store.StalePolicy, log *zap.Logger) *Engine {
	return &Engine{rel: rel, doc: doc, stale: stale, log: log}
}

// Normalize reads every record from the source and builds the deduplicated
// dataset, logging dropped rows and natural-key conflicts.
func (e *Engine) Normalize(src rowsource.Source) (*normalize.Dataset, error) {
	records, err := src.Records()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	ds := normalize.Rows(records)
	for _, rowErr := range ds.RowErrors {
		e.log.Warn("row skipped", zap.Int("row", rowErr.Row),
			zap.String("field", rowErr.Field), zap.Error(rowErr.Err))
	}
	if ds.Conflicts > 0 {
		e.log.Warn("conflicting duplicate rows, first occurrence kept",
			zap.Int("conflicts", ds.Conflicts))
	}
	e.log.Info("rows normalized",
		zap.Int("rows", len(records)),
		zap.Int("skipped", len(ds.RowErrors)),
		zap.Int("orders", len(ds.Orders)),
		zap.Int("customers", len(ds.Customers)),
		zap.Int("products", len(ds.Products)),
		zap.Int("categories", len(ds.Categories)))
	return ds, nil
}

// Import normalizes once and loads the chosen store(s). The dual path runs
// the strict relational import first, then the document upsert; a duplicate
// order aborts before either store is touched further.
func (e *Engine) Import(ctx context.Context, src rowsource.Source, target Target) ([]*store.ImportReport, error) {
	ds, err := e.Normalize(src)
	if err != nil {
		return nil, err
	}

	var reports []*store.ImportReport
	switch target {
	case TargetDual:
		rel, err := e.rel.ImportStrict(ctx, ds)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rel)
		doc, err := e.doc.ImportBulk(ctx, ds)
		if err != nil {
			return reports, err
		}
		reports = append(reports, doc)
	case TargetRelational:
		rel, err := e.rel.ImportBulk(ctx, ds)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rel)
	case TargetDocument:
		doc, err := e.doc.ImportBulk(ctx, ds)
		if err != nil {
			return nil, err
		}
		reports = append(reports, doc)
	}
	return reports, nil
}

// FilteredOrders returns the canonical result per store, keyed by store
// name. Running dual surfaces any divergence between the two.
func (e *Engine) FilteredOrders(ctx context.Context, target Target, categoryName, status string) (map[string][]canonical.Order, error) {
	results := make(map[string][]canonical.Order)
	if target.Relational() {
		records, err := e.rel.FilteredOrders(ctx, categoryName, status)
		if err != nil {
			return nil, err
		}
		results["relational"] = canonical.FromRelational(records)
	}
	if target.Document() {
		records, err := e.doc.FilteredOrders(ctx, categoryName, status)
		if err != nil {
			return nil, err
		}
		results["document"] = canonical.FromDocument(records)
	}
	return results, nil
}

func (e *Engine) UpdateStaleOrders(ctx context.Context, target Target) (map[string]*store.StaleReport, error) {
	results := make(map[string]*store.StaleReport)
	if target.Relational() {
		report, err := e.rel.UpdateStaleOrders(ctx, e.stale)
		if err != nil {
			return nil, err
		}
		results["relational"] = report
	}
	if target.Document() {
		report, err := e.doc.UpdateStaleOrders(ctx, e.stale)
		if err != nil {
			return nil, err
		}
		results["document"] = report
	}
	return results, nil
}

func (e *Engine) DeleteAgedOrders(ctx context.Context, target Target, cutoff time.Time) (map[string]*store.EntityCounts, error) {
	results := make(map[string]*store.EntityCounts)
	if target.Relational() {
		counts, err := e.rel.DeleteAgedOrders(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		results["relational"] = counts
	}
	if target.Document() {
		counts, err := e.doc.DeleteAgedOrders(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		results["document"] = counts
	}
	return results, nil
}

func (e *Engine) DeleteAll(ctx context.Context, target Target) error {
	if target.Relational() {
		if err := e.rel.DeleteAll(ctx); err != nil {
			return err
		}
	}
	if target.Document() {
		if err := e.doc.DeleteAll(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) DatabaseSize(ctx context.Context, target Target) ([]*store.SizeReport, error) {
	var reports []*store.SizeReport
	if target.Relational() {
		report, err := e.rel.DatabaseSize(ctx)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if target.Document() {
		report, err := e.doc.DatabaseSize(ctx)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
