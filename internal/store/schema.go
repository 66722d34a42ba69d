package store

import "github.com/jmoiron/sqlx"

// relationalTables lists the five entity tables in parent-before-child
// order. Deletion walks it in reverse.
var relationalTables = []string{
	"categories",
	"customers",
	"products",
	"orders",
	"order_line_items",
}

// schemaStatements is DDL accepted by both postgres and mysql. Foreign
// keys are declared as named constraints because mysql ignores inline
// REFERENCES clauses.
func schemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(255) NOT NULL,
			address VARCHAR(255) NOT NULL,
			city VARCHAR(255) NOT NULL,
			state VARCHAR(255) NOT NULL,
			zip_code VARCHAR(32) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT customers_email_key UNIQUE (email)
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category_id VARCHAR(255) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT products_category_fk FOREIGN KEY (category_id) REFERENCES categories (id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(255) PRIMARY KEY,
			order_date TIMESTAMP NOT NULL,
			customer_id VARCHAR(255) NOT NULL,
			shipping_cost DECIMAL(10, 2) NOT NULL,
			total_order_value DECIMAL(10, 2) NOT NULL,
			status VARCHAR(64) NOT NULL,
			payment_method VARCHAR(64) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT orders_customer_fk FOREIGN KEY (customer_id) REFERENCES customers (id)
		)`,
		`CREATE TABLE IF NOT EXISTS order_line_items (
			id VARCHAR(255) PRIMARY KEY,
			order_id VARCHAR(255) NOT NULL,
			product_id VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			total_price DECIMAL(10, 2) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT line_items_order_fk FOREIGN KEY (order_id) REFERENCES orders (id),
			CONSTRAINT line_items_product_fk FOREIGN KEY (product_id) REFERENCES products (id)
		)`,
	}
}

// filteredOrdersQuery is shared by both relational backends; only the
// placeholder style differs. Inner joins drop orders left with no matching
// items after the category/status filter.
const filteredOrdersQuery = `
	SELECT o.id AS order_id, o.order_date, o.shipping_cost, o.total_order_value,
	       o.status, o.payment_method,
	       c.id AS customer_id, c.name AS customer_name, c.email AS customer_email,
	       c.phone AS customer_phone, c.address AS customer_address,
	       c.city AS customer_city, c.state AS customer_state, c.zip_code AS customer_zip_code,
	       p.id AS product_id, p.name AS product_name,
	       cat.id AS category_id, cat.name AS category_name,
	       p.price, li.quantity, li.total_price
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
	JOIN order_line_items li ON li.order_id = o.id
	JOIN products p ON p.id = li.product_id
	JOIN categories cat ON cat.id = p.category_id
	WHERE cat.name = ? AND o.status = ?
	ORDER BY o.order_date, o.id, p.id`

// filteredOrdersQueryPg is the same query with numbered placeholders for pgx.
var filteredOrdersQueryPg = sqlx.Rebind(sqlx.DOLLAR, filteredOrdersQuery)
