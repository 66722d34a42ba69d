package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dualstore-benchmark/internal/canonical"
	"dualstore-benchmark/internal/metrics"
	"dualstore-benchmark/internal/normalize"
)

// PostgresStore is the primary relational backend.
type PostgresStore struct {
	pool      *pgxpool.Pool
	batchSize int
	obs       metrics.Observer
	log       *zap.Logger
}

func ConnectPostgres(ctx context.Context, dsn string, batchSize int, obs metrics.Observer, log *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if obs == nil {
		obs = metrics.NopObserver{}
	}
	return &PostgresStore{pool: pool, batchSize: batchSize, obs: obs, log: log}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	defer metrics.Track(s.obs, "postgres", "ensure-schema", len(schemaStatements()))()
	for _, stmt := range schemaStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// ImportStrict refuses the whole call when any incoming order id is already
// present, before performing any write. Parent entity types still use
// skip-on-conflict inserts so re-imported customers and products are
// tolerated; orders and line items insert plainly.
func (s *PostgresStore) ImportStrict(ctx context.Context, ds *normalize.Dataset) (*ImportReport, error) {
	start := time.Now()

	ids := make([]string, 0, len(ds.Orders))
	for _, o := range ds.Orders {
		ids = append(ids, o.ID)
	}
	if len(ids) > 0 {
		var existing string
		err := s.pool.QueryRow(ctx,
			"SELECT id FROM orders WHERE id = ANY($1) LIMIT 1", ids).Scan(&existing)
		switch {
		case err == nil:
			return nil, &DuplicateOrderError{OrderID: existing}
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("check imported orders: %w", err)
		}
	}
	if err := checkReferences(ds); err != nil {
		return nil, err
	}

	report, err := s.runImport(ctx, ds, false)
	if err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	return report, nil
}

// ImportBulk skips every conflicting natural key silently. Calling it twice
// with the same input leaves the store unchanged the second time.
func (s *PostgresStore) ImportBulk(ctx context.Context, ds *normalize.Dataset) (*ImportReport, error) {
	start := time.Now()
	if err := checkReferences(ds); err != nil {
		return nil, err
	}
	report, err := s.runImport(ctx, ds, true)
	if err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	return report, nil
}

// runImport walks the entity types in foreign-key order. No transaction
// spans the types: a failure partway leaves earlier types committed.
func (s *PostgresStore) runImport(ctx context.Context, ds *normalize.Dataset, skipConflicts bool) (*ImportReport, error) {
	const skip = " ON CONFLICT DO NOTHING"
	childClause := ""
	if skipConflicts {
		childClause = skip
	}

	report := &ImportReport{Store: "postgres", Attempted: attempted(ds)}

	n, err := s.bulkInsert(ctx, "categories",
		[]string{"id", "name"}, categoryRows(ds), skip)
	if err != nil {
		return nil, err
	}
	report.Written.Categories = n

	n, err = s.bulkInsert(ctx, "customers",
		[]string{"id", "name", "email", "phone", "address", "city", "state", "zip_code", "created_at", "updated_at"},
		customerRows(ds), skip)
	if err != nil {
		return nil, err
	}
	report.Written.Customers = n

	n, err = s.bulkInsert(ctx, "products",
		[]string{"id", "name", "category_id", "price", "created_at", "updated_at"},
		productRows(ds), skip)
	if err != nil {
		return nil, err
	}
	report.Written.Products = n

	n, err = s.bulkInsert(ctx, "orders",
		[]string{"id", "order_date", "customer_id", "shipping_cost", "total_order_value", "status", "payment_method", "created_at", "updated_at"},
		orderRows(ds), childClause)
	if err != nil {
		return nil, err
	}
	report.Written.Orders = n

	n, err = s.bulkInsert(ctx, "order_line_items",
		[]string{"id", "order_id", "product_id", "quantity", "total_price", "created_at", "updated_at"},
		lineItemRows(ds), childClause)
	if err != nil {
		return nil, err
	}
	report.Written.LineItems = n

	s.log.Info("relational import complete",
		zap.String("backend", "postgres"),
		zap.Int64("attempted", report.Attempted.Total()),
		zap.Int64("written", report.Written.Total()))
	return report, nil
}

func (s *PostgresStore) bulkInsert(ctx context.Context, table string, cols []string, rows [][]any, conflictClause string) (int64, error) {
	defer metrics.Track(s.obs, "postgres", "insert-"+table, len(rows))()

	var written int64
	for _, batch := range chunkSlice(rows, s.batchSize) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO ")
		sb.WriteString(table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(cols, ", "))
		sb.WriteString(") VALUES ")

		args := make([]any, 0, len(batch)*len(cols))
		for i, row := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(")
			for j := range row {
				if j > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "$%d", len(args)+1)
				args = append(args, row[j])
			}
			sb.WriteString(")")
		}
		sb.WriteString(conflictClause)

		tag, err := s.pool.Exec(ctx, sb.String(), args...)
		if err != nil {
			return written, fmt.Errorf("insert %s: %w", table, err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}

func (s *PostgresStore) FilteredOrders(ctx context.Context, categoryName, status string) ([]canonical.RelationalRecord, error) {
	defer metrics.Track(s.obs, "postgres", "filtered-orders", 1)()

	rows, err := s.pool.Query(ctx, filteredOrdersQueryPg, categoryName, status)
	if err != nil {
		return nil, fmt.Errorf("filtered orders: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[canonical.RelationalRecord])
	if err != nil {
		return nil, fmt.Errorf("scan filtered orders: %w", err)
	}
	return records, nil
}

// UpdateStaleOrders is two sequential bulk statements, not one atomic
// operation: orders first, then the distinct referenced customers.
func (s *PostgresStore) UpdateStaleOrders(ctx context.Context, policy StalePolicy) (*StaleReport, error) {
	defer metrics.Track(s.obs, "postgres", "update-stale-orders", 1)()

	rows, err := s.pool.Query(ctx, `
		UPDATE orders
		SET status = 'Updated', updated_at = NOW()
		WHERE status = 'Pending'
		  AND order_date BETWEEN $1 AND $2
		  AND total_order_value > $3
		RETURNING customer_id`,
		policy.WindowStart, policy.WindowEnd, policy.MinOrderValue)
	if err != nil {
		return nil, fmt.Errorf("update stale orders: %w", err)
	}
	customerIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect stale customer ids: %w", err)
	}

	report := &StaleReport{OrdersUpdated: int64(len(customerIDs))}

	distinct := make([]string, 0, len(customerIDs))
	seen := make(map[string]struct{}, len(customerIDs))
	for _, id := range customerIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}
	if len(distinct) == 0 {
		return report, nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE customers
		SET address = $1, city = $2, state = $3, zip_code = $4, updated_at = NOW()
		WHERE id = ANY($5)`,
		policy.Address, policy.City, policy.State, policy.ZipCode, distinct)
	if err != nil {
		return nil, fmt.Errorf("update stale customers: %w", err)
	}
	report.CustomersUpdated = tag.RowsAffected()
	return report, nil
}

func (s *PostgresStore) DeleteAgedOrders(ctx context.Context, cutoff time.Time) (*EntityCounts, error) {
	defer metrics.Track(s.obs, "postgres", "delete-aged-orders", 1)()

	counts := &EntityCounts{}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM order_line_items
		WHERE order_id IN (SELECT id FROM orders WHERE order_date < $1)`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete aged line items: %w", err)
	}
	counts.LineItems = tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, "DELETE FROM orders WHERE order_date < $1", cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete aged orders: %w", err)
	}
	counts.Orders = tag.RowsAffected()
	return counts, nil
}

// DeleteAll removes every row in child-before-parent order. Safe to call
// on an empty store.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	defer metrics.Track(s.obs, "postgres", "delete-all", len(relationalTables))()

	for i := len(relationalTables) - 1; i >= 0; i-- {
		if _, err := s.pool.Exec(ctx, "DELETE FROM "+relationalTables[i]); err != nil {
			return fmt.Errorf("delete all %s: %w", relationalTables[i], err)
		}
	}
	return nil
}

func (s *PostgresStore) DatabaseSize(ctx context.Context) (*SizeReport, error) {
	report := &SizeReport{Store: "postgres", Tables: make(map[string]int64, len(relationalTables))}
	for _, table := range relationalTables {
		var size int64
		if err := s.pool.QueryRow(ctx,
			"SELECT pg_total_relation_size($1::regclass)", table).Scan(&size); err != nil {
			return nil, fmt.Errorf("size of %s: %w", table, err)
		}
		report.Tables[table] = size
		report.TotalBytes += size
	}
	return report, nil
}
