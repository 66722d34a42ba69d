// Package canonical reconciles the two stores' differing field naming and
// nesting into one fixed output shape. Each source store has its own
// explicit mapper; there is no runtime shape probing.
package canonical

import "time"

// Order is the canonical filtered-orders output. Missing source fields map
// to empty strings and zeros so the shape stays stable across stores.
type Order struct {
	OrderID         string    `json:"orderId"`
	OrderDate       time.Time `json:"orderDate"`
	Customer        Customer  `json:"customer"`
	ShippingCost    float64   `json:"shippingCost"`
	TotalOrderValue float64   `json:"totalOrderValue"`
	Status          string    `json:"status"`
	PaymentMethod   string    `json:"paymentMethod"`
	Items           []Item    `json:"items"`
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type Item struct {
	ProductID   string   `json:"productId"`
	ProductName string   `json:"productName"`
	Category    Category `json:"category"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	TotalPrice  float64  `json:"totalPrice"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RelationalRecord is one joined row from the relational filtered-orders
// query: order, customer, product and category columns flattened, one row
// per matching line item.
type RelationalRecord struct {
	OrderID         string    `db:"order_id"`
	OrderDate       time.Time `db:"order_date"`
	ShippingCost    float64   `db:"shipping_cost"`
	TotalOrderValue float64   `db:"total_order_value"`
	Status          string    `db:"status"`
	PaymentMethod   string    `db:"payment_method"`

	CustomerID      string `db:"customer_id"`
	CustomerName    string `db:"customer_name"`
	CustomerEmail   string `db:"customer_email"`
	CustomerPhone   string `db:"customer_phone"`
	CustomerAddress string `db:"customer_address"`
	CustomerCity    string `db:"customer_city"`
	CustomerState   string `db:"customer_state"`
	CustomerZip     string `db:"customer_zip_code"`

	ProductID    string  `db:"product_id"`
	ProductName  string  `db:"product_name"`
	CategoryID   string  `db:"category_id"`
	CategoryName string  `db:"category_name"`
	Price        float64 `db:"price"`
	Quantity     int     `db:"quantity"`
	TotalPrice   float64 `db:"total_price"`
}

// DocumentRecord is one order document produced by the document store's
// aggregation pipeline, with the looked-up customer and item subdocuments
// attached.
type DocumentRecord struct {
	ID              string           `bson:"id"`
	OrderDate       time.Time        `bson:"orderDate"`
	ShippingCost    float64          `bson:"shippingCost"`
	TotalOrderValue float64          `bson:"totalOrderValue"`
	Status          string           `bson:"status"`
	PaymentMethod   string           `bson:"paymentMethod"`
	Customer        DocumentCustomer `bson:"customer"`
	Items           []DocumentItem   `bson:"items"`
}

type DocumentCustomer struct {
	ID      string `bson:"id"`
	Name    string `bson:"name"`
	Email   string `bson:"email"`
	Phone   string `bson:"phone"`
	Address string `bson:"address"`
	City    string `bson:"city"`
	State   string `bson:"state"`
	ZipCode string `bson:"zipCode"`
}

type DocumentItem struct {
	ProductID    string  `bson:"productId"`
	ProductName  string  `bson:"productName"`
	CategoryID   string  `bson:"categoryId"`
	CategoryName string  `bson:"categoryName"`
	Price        float64 `bson:"price"`
	Quantity     int     `bson:"quantity"`
	TotalPrice   float64 `bson:"totalPrice"`
}

// FromRelational groups joined rows by order id, preserving the order ids'
// first appearance. Rows arrive one per line item, so every group has at
// least one item.
func FromRelational(records []RelationalRecord) []Order {
	orders := make([]Order, 0)
	index := make(map[string]int)

	for _, r := range records {
		i, ok := index[r.OrderID]
		if !ok {
			orders = append(orders, Order{
				OrderID:         r.OrderID,
				OrderDate:       r.OrderDate,
				ShippingCost:    r.ShippingCost,
				TotalOrderValue: r.TotalOrderValue,
				Status:          r.Status,
				PaymentMethod:   r.PaymentMethod,
				Customer: Customer{
					ID:      r.CustomerID,
					Name:    r.CustomerName,
					Email:   r.CustomerEmail,
					Phone:   r.CustomerPhone,
					Address: r.CustomerAddress,
					City:    r.CustomerCity,
					State:   r.CustomerState,
					ZipCode: r.CustomerZip,
				},
				Items: []Item{},
			})
			i = len(orders) - 1
			index[r.OrderID] = i
		}
		orders[i].Items = append(orders[i].Items, Item{
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Category: Category{
				ID:   r.CategoryID,
				Name: r.CategoryName,
			},
			Price:      r.Price,
			Quantity:   r.Quantity,
			TotalPrice: r.TotalPrice,
		})
	}

	return orders
}

// FromDocument maps aggregation output documents one to one. Orders whose
// item list came back empty after filtering are dropped, matching the
// relational inner join.
func FromDocument(records []DocumentRecord) []Order {
	orders := make([]Order, 0, len(records))

	for _, r := range records {
		if len(r.Items) == 0 {
			continue
		}
		items := make([]Item, 0, len(r.Items))
		for _, it := range r.Items {
			items = append(items, Item{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Category: Category{
					ID:   it.CategoryID,
					Name: it.CategoryName,
				},
				Price:      it.Price,
				Quantity:   it.Quantity,
				TotalPrice: it.TotalPrice,
			})
		}
		orders = append(orders, Order{
			OrderID:         r.ID,
			OrderDate:       r.OrderDate,
			ShippingCost:    r.ShippingCost,
			TotalOrderValue: r.TotalOrderValue,
			Status:          r.Status,
			PaymentMethod:   r.PaymentMethod,
			Customer: Customer{
				ID:      r.Customer.ID,
				Name:    r.Customer.Name,
				Email:   r.Customer.Email,
				Phone:   r.Customer.Phone,
				Address: r.Customer.Address,
				City:    r.Customer.City,
				State:   r.Customer.State,
				ZipCode: r.Customer.ZipCode,
			},
			Items: items,
		})
	}

	return orders
}
