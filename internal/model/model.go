package model

import "time"

// Order statuses as they appear in the source spreadsheet, plus the
// status stamped by the update-stale operation.
const (
	StatusPending   = "Pending"
	StatusShipped   = "Shipped"
	StatusDelivered = "Delivered"
	StatusCancelled = "Cancelled"
	StatusUpdated   = "Updated"
)

// Category is referenced by products. Natural key: id.
type Category struct {
	ID   string `db:"id" bson:"id"`
	Name string `db:"name" bson:"name"`
}

// Customer is deduplicated by email; the externally supplied id is carried
// for reference and is not re-checked for global uniqueness.
type Customer struct {
	ID        string    `db:"id" bson:"id"`
	Name      string    `db:"name" bson:"name"`
	Email     string    `db:"email" bson:"email"`
	Phone     string    `db:"phone" bson:"phone"`
	Address   string    `db:"address" bson:"address"`
	City      string    `db:"city" bson:"city"`
	State     string    `db:"state" bson:"state"`
	ZipCode   string    `db:"zip_code" bson:"zipCode"`
	CreatedAt time.Time `db:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" bson:"updatedAt"`
}

// Product belongs to one category. Natural key: id.
type Product struct {
	ID         string    `db:"id" bson:"id"`
	Name       string    `db:"name" bson:"name"`
	CategoryID string    `db:"category_id" bson:"categoryId"`
	Price      float64   `db:"price" bson:"price"`
	CreatedAt  time.Time `db:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" bson:"updatedAt"`
}

// Order belongs to one customer and has many line items. Natural key: id.
type Order struct {
	ID              string    `db:"id" bson:"id"`
	OrderDate       time.Time `db:"order_date" bson:"orderDate"`
	CustomerID      string    `db:"customer_id" bson:"customerId"`
	ShippingCost    float64   `db:"shipping_cost" bson:"shippingCost"`
	TotalOrderValue float64   `db:"total_order_value" bson:"totalOrderValue"`
	Status          string    `db:"status" bson:"status"`
	PaymentMethod   string    `db:"payment_method" bson:"paymentMethod"`
	CreatedAt       time.Time `db:"created_at" bson:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" bson:"updatedAt"`
}

// LineItem is one spreadsheet row. The relational store assigns a surrogate
// uuid per row; the document store keys it by "{orderId}-{productId}", so a
// repeated pair overwrites there. The divergence is intentional, see
// DESIGN.md.
type LineItem struct {
	ID         string    `db:"id" bson:"id"`
	OrderID    string    `db:"order_id" bson:"orderId"`
	ProductID  string    `db:"product_id" bson:"productId"`
	Quantity   int       `db:"quantity" bson:"quantity"`
	TotalPrice float64   `db:"total_price" bson:"totalPrice"`
	CreatedAt  time.Time `db:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" bson:"updatedAt"`
}

// CompositeKey is the document-store line item identity.
func (li LineItem) CompositeKey() string {
	return li.OrderID + "-" + li.ProductID
}
