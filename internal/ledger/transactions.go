package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledger-service/internal/model"
	"ledger-service/pkg/database"
	"ledger-service/prometheus"
)

// TransactionInput is the body of a new ledger entry
type TransactionInput struct {
	Date     string  `json:"date"`
	ItemName string  `json:"item_name"`
	Company  *string `json:"company,omitempty"`
	Amount   float64 `json:"amount"`
	Type     string  `json:"type"`
	Notes    *string `json:"notes,omitempty"`
}

// Validate checks the input and builds the transaction row. An empty date means today.
func (in TransactionInput) Validate(today time.Time) (*model.Transaction, error) {
	item := strings.TrimSpace(in.ItemName)
	if item == "" {
		return nil, fmt.Errorf("%w: item_name is required", ErrInvalidTransaction)
	}
	if len(item) > 100 {
		return nil, fmt.Errorf("%w: item_name is longer than 100 characters", ErrInvalidTransaction)
	}
	if !(in.Amount > 0) {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidTransaction)
	}
	typ := model.TransactionType(strings.ToLower(in.Type))
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: type must be credit or debit", ErrInvalidTransaction)
	}

	date := model.NewDate(today)
	if in.Date != "" {
		parsed, err := model.ParseDate(in.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
		}
		date = parsed
	}

	return &model.Transaction{
		Date:     date,
		ItemName: item,
		Company:  blankToNil(in.Company),
		Amount:   in.Amount,
		Type:     typ,
		Notes:    blankToNil(in.Notes),
	}, nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// AddTransaction validates and inserts a ledger entry
func (s *Store) AddTransaction(ctx context.Context, in TransactionInput) (*model.Transaction, error) {
	txn, err := in.Validate(s.now())
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("insert_transaction")(time.Now())
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, database.StorageError("insert transaction", err)
	}
	return txn, nil
}

// Transactions returns every ledger entry, newest first
func (s *Store) Transactions(ctx context.Context) ([]model.Transaction, error) {
	defer prometheus.TrackDBOperation("list_transactions")(time.Now())

	txns := []model.Transaction{}
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&txns).Error; err != nil {
		return nil, database.StorageError("list transactions", err)
	}
	return txns, nil
}
