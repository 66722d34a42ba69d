package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"dualstore-benchmark/internal/canonical"
	"dualstore-benchmark/internal/metrics"
	"dualstore-benchmark/internal/normalize"
)

// MySQLStore is the secondary relational backend. Same semantics as
// PostgresStore with INSERT IGNORE standing in for ON CONFLICT DO NOTHING.
type MySQLStore struct {
	db        *sqlx.DB
	batchSize int
	obs       metrics.Observer
	log       *zap.Logger
}

func ConnectMySQL(ctx context.Context, dsn string, batchSize int, obs metrics.Observer, log *zap.Logger) (*MySQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if obs == nil {
		obs = metrics.NopObserver{}
	}
	return &MySQLStore{db: db, batchSize: batchSize, obs: obs, log: log}, nil
}

func (s *MySQLStore) Close() {
	_ = s.db.Close()
}

func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	defer metrics.Track(s.obs, "mysql", "ensure-schema", len(schemaStatements()))()
	for _, stmt := range schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *MySQLStore) ImportStrict(ctx context.Context, ds *normalize.Dataset) (*ImportReport, error) {
	start := time.Now()

	ids := make([]string, 0, len(ds.Orders))
	for _, o := range ds.Orders {
		ids = append(ids, o.ID)
	}
	if len(ids) > 0 {
		query, args, err := sqlx.In("SELECT id FROM orders WHERE id IN (?) LIMIT 1", ids)
		if err != nil {
			return nil, fmt.Errorf("build imported-orders check: %w", err)
		}
		var existing string
		err = s.db.GetContext(ctx, &existing, s.db.Rebind(query), args...)
		switch {
		case err == nil:
			return nil, &DuplicateOrderError{OrderID: existing}
		case !errors.Is(err, sql.ErrNoRows):
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

func (s *MySQLStore) ImportBulk(ctx context.Context, ds *normalize.Dataset) (*ImportReport, error) {
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

func (s *MySQLStore) runImport(ctx context.Context, ds *normalize.Dataset, skipConflicts bool) (*ImportReport, error) {
	childVerb := "INSERT INTO"
	if skipConflicts {
		childVerb = "INSERT IGNORE INTO"
	}

	report := &ImportReport{Store: "mysql", Attempted: attempted(ds)}

	n, err := s.bulkInsert(ctx, "INSERT IGNORE INTO", "categories",
		[]string{"id", "name"}, categoryRows(ds))
	if err != nil {
		return nil, err
	}
	report.Written.Categories = n

	n, err = s.bulkInsert(ctx, "INSERT IGNORE INTO", "customers",
		[]string{"id", "name", "email", "phone", "address", "city", "state", "zip_code", "created_at", "updated_at"},
		customerRows(ds))
	if err != nil {
		return nil, err
	}
	report.Written.Customers = n

	n, err = s.bulkInsert(ctx, "INSERT IGNORE INTO", "products",
		[]string{"id", "name", "category_id", "price", "created_at", "updated_at"},
		productRows(ds))
	if err != nil {
		return nil, err
	}
	report.Written.Products = n

	n, err = s.bulkInsert(ctx, childVerb, "orders",
		[]string{"id", "order_date", "customer_id", "shipping_cost", "total_order_value", "status", "payment_method", "created_at", "updated_at"},
		orderRows(ds))
	if err != nil {
		return nil, err
	}
	report.Written.Orders = n

	n, err = s.bulkInsert(ctx, childVerb, "order_line_items",
		[]string{"id", "order_id", "product_id", "quantity", "total_price", "created_at", "updated_at"},
		lineItemRows(ds))
	if err != nil {
		return nil, err
	}
	report.Written.LineItems = n

	s.log.Info("relational import complete",
		zap.String("backend", "mysql"),
		zap.Int64("attempted", report.Attempted.Total()),
		zap.Int64("written", report.Written.Total()))
	return report, nil
}

func (s *MySQLStore) bulkInsert(ctx context.Context, verb, table string, cols []string, rows [][]any) (int64, error) {
	defer metrics.Track(s.obs, "mysql", "insert-"+table, len(rows))()

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	var written int64
	for _, batch := range chunkSlice(rows, s.batchSize) {
		var sb strings.Builder
		sb.WriteString(verb)
		sb.WriteString(" ")
		sb.WriteString(table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(cols, ", "))
		sb.WriteString(") VALUES ")

		args := make([]any, 0, len(batch)*len(cols))
		for i, row := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
			args = append(args, row...)
		}

		result, err := s.db.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return written, fmt.Errorf("insert %s: %w", table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return written, fmt.Errorf("insert %s: %w", table, err)
		}
		written += affected
	}
	return written, nil
}

func (s *MySQLStore) FilteredOrders(ctx context.Context, categoryName, status string) ([]canonical.RelationalRecord, error) {
	defer metrics.Track(s.obs, "mysql", "filtered-orders", 1)()

	var records []canonical.RelationalRecord
	if err := s.db.SelectContext(ctx, &records, filteredOrdersQuery, categoryName, status); err != nil {
		return nil, fmt.Errorf("filtered orders: %w", err)
	}
	return records, nil
}

func (s *MySQLStore) UpdateStaleOrders(ctx context.Context, policy StalePolicy) (*StaleReport, error) {
	defer metrics.Track(s.obs, "mysql", "update-stale-orders", 1)()

	// mysql has no UPDATE ... RETURNING; capture the customer set first.
	var customerIDs []string
	err := s.db.SelectContext(ctx, &customerIDs, `
		SELECT DISTINCT customer_id FROM orders
		WHERE status = 'Pending'
		  AND order_date BETWEEN ? AND ?
		  AND total_order_value > ?`,
		policy.WindowStart, policy.WindowEnd, policy.MinOrderValue)
	if err != nil {
		return nil, fmt.Errorf("select stale customers: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'Updated', updated_at = NOW()
		WHERE status = 'Pending'
		  AND order_date BETWEEN ? AND ?
		  AND total_order_value > ?`,
		policy.WindowStart, policy.WindowEnd, policy.MinOrderValue)
	if err != nil {
		return nil, fmt.Errorf("update stale orders: %w", err)
	}
	ordersUpdated, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update stale orders: %w", err)
	}

	report := &StaleReport{OrdersUpdated: ordersUpdated}
	if len(customerIDs) == 0 {
		return report, nil
	}

	query, args, err := sqlx.In(`
		UPDATE customers
		SET address = ?, city = ?, state = ?, zip_code = ?, updated_at = NOW()
		WHERE id IN (?)`,
		policy.Address, policy.City, policy.State, policy.ZipCode, customerIDs)
	if err != nil {
		return nil, fmt.Errorf("build stale customers update: %w", err)
	}
	result, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("update stale customers: %w", err)
	}
	customersUpdated, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update stale customers: %w", err)
	}
	report.CustomersUpdated = customersUpdated
	return report, nil
}

func (s *MySQLStore) DeleteAgedOrders(ctx context.Context, cutoff time.Time) (*EntityCounts, error) {
	defer metrics.Track(s.obs, "mysql", "delete-aged-orders", 1)()

	counts := &EntityCounts{}
	result, err := s.db.ExecContext(ctx, `
		DELETE li FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.order_date < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete aged line items: %w", err)
	}
	counts.LineItems, err = result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete aged line items: %w", err)
	}

	result, err = s.db.ExecContext(ctx, "DELETE FROM orders WHERE order_date < ?", cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete aged orders: %w", err)
	}
	counts.Orders, err = result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete aged orders: %w", err)
	}
	return counts, nil
}

func (s *MySQLStore) DeleteAll(ctx context.Context) error {
	defer metrics.Track(s.obs, "mysql", "delete-all", len(relationalTables))()

	for i := len(relationalTables) - 1; i >= 0; i-- {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+relationalTables[i]); err != nil {
			return fmt.Errorf("delete all %s: %w", relationalTables[i], err)
		}
	}
	return nil
}

func (s *MySQLStore) DatabaseSize(ctx context.Context) (*SizeReport, error) {
	report := &SizeReport{Store: "mysql", Tables: make(map[string]int64, len(relationalTables))}
	for _, table := range relationalTables {
		var size int64
		err := s.db.GetContext(ctx, &size, `
			SELECT COALESCE(data_length + index_length, 0)
			FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_name = ?`, table)
		if err != nil {
			return nil, fmt.Errorf("size of %s: %w", table, err)
		}
		report.Tables[table] = size
		report.TotalBytes += size
	}
	return report, nil
}
