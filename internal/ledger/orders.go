// Package ledger reads and writes the orders and transactions of one shop database.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-service/internal/model"
	"ledger-service/pkg/database"
	"ledger-service/prometheus"

	"gorm.io/gorm"
)

const (
	DefaultLatestLimit = 5
	MaxLatestLimit     = 100
)

var (
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRange       = errors.New("invalid range")
)

// Range names a reporting window
type Range string

const (
	RangeDaily   Range = "daily"
	RangeWeekly  Range = "weekly"
	RangeMonthly Range = "monthly"
	RangeAll     Range = "all"
)

// Window returns the first day covered by r, or nil when r is unbounded.
// daily covers today, weekly the last 7 days, monthly the current month.
func (r Range) Window(today time.Time) (*model.Date, error) {
	day := model.NewDate(today)
	var from model.Date
	switch r {
	case RangeDaily:
		from = day
	case RangeWeekly:
		from = model.Date{Time: day.AddDate(0, 0, -7)}
	case RangeMonthly:
		from = model.Date{Time: day.AddDate(0, 0, 1-day.Day())}
	case RangeAll:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, string(r))
	}
	return &from, nil
}

// OrderInput is the body of an add-order request
type OrderInput struct {
	UserID    int64   `json:"user_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	OrderDate string  `json:"order_date"`
}

// Validate checks the input and builds the order row. An empty date means today.
func (in OrderInput) Validate(today time.Time) (*model.Order, error) {
	if in.UserID <= 0 {
		return nil, fmt.Errorf("%w: user_id must be greater than 0", ErrInvalidOrder)
	}
	if !(in.Amount > 0) {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidOrder)
	}
	status := model.OrderStatus(in.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be pending, completed or cancelled", ErrInvalidOrder)
	}

	date := model.NewDate(today)
	if in.OrderDate != "" {
		parsed, err := model.ParseDate(in.OrderDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}
		date = parsed
	}

	return &model.Order{
		UserID:    in.UserID,
		Amount:    in.Amount,
		Status:    status,
		OrderDate: date,
	}, nil
}

// Summary aggregates the orders of a range
type Summary struct {
	Range    Range  `json:"range"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	model.OrderSummary
}

// Store works on the tables of one shop database
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a store over a shop database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock returns a copy that reads the current date from now
func (s *Store) WithClock(now func() time.Time) *Store {
	cp := *s
	cp.now = now
	return &cp
}

// AddOrder validates and inserts an order
func (s *Store) AddOrder(ctx context.Context, in OrderInput) (*model.Order, error) {
	order, err := in.Validate(s.now())
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("insert_order")(time.Now())
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, database.StorageError("insert order", err)
	}
	return order, nil
}

// ClampLimit maps a requested row count onto [1, MaxLatestLimit], defaulting to DefaultLatestLimit
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLatestLimit
	case n > MaxLatestLimit:
		return MaxLatestLimit
	}
	return n
}

// LatestOrders returns the newest orders first
func (s *Store) LatestOrders(ctx context.Context, limit int) ([]model.Order, error) {
	defer prometheus.TrackDBOperation("latest_orders")(time.Now())

	orders := []model.Order{}
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(ClampLimit(limit)).Find(&orders).Error; err != nil {
		return nil, database.StorageError("list orders", err)
	}
	return orders, nil
}

// Summarize counts orders, income and completed orders of a weekly or monthly range.
// Empty ranges report zeros.
func (s *Store) Summarize(ctx context.Context, r Range) (*Summary, error) {
	if r != RangeWeekly && r != RangeMonthly {
		return nil, fmt.Errorf("%w: %q (want weekly or monthly)", ErrInvalidRange, string(r))
	}
	today := s.now()
	from, err := r.Window(today)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("summarize_orders")(time.Now())

	var totals model.OrderSummary
	err = s.db.WithContext(ctx).Raw(`SELECT
	COUNT(*) AS total_orders,
	COALESCE(SUM(amount), 0) AS total_income,
	COUNT(CASE WHEN status = ? THEN 1 END) AS completed_orders
FROM orders
WHERE order_date >= ?`, string(model.OrderCompleted), from.String()).Scan(&totals).Error
	if err != nil {
		return nil, database.StorageError("summarize orders", err)
	}

	return &Summary{
		Range:        r,
		FromDate:     from.String(),
		ToDate:       model.NewDate(today).String(),
		OrderSummary: totals,
	}, nil
}
