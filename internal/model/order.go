package model

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Order is a row of the orders table of a shop
type Order struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	UserID    int64       `json:"user_id" gorm:"not null"`
	Amount    float64     `json:"amount" gorm:"not null"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(20);not null"`
	OrderDate Date        `json:"order_date" gorm:"type:date;not null"`
}

// OrderSummary aggregates orders over a date window
type OrderSummary struct {
	TotalOrders     int64   `json:"total_orders"`
	TotalIncome     float64 `json:"total_income"`
	CompletedOrders int64   `json:"completed_orders"`
}
