package ledger

import (
	"context"
	"time"

	"ledger-service/pkg/database"
	"ledger-service/prometheus"
)

// Table is a query result with its column order kept
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// OrderRows returns every column of the orders in a daily, monthly or all range
func (s *Store) OrderRows(ctx context.Context, r Range) (*Table, error) {
	if r != RangeDaily && r != RangeMonthly && r != RangeAll {
		return nil, ErrInvalidRange
	}
	from, err := r.Window(s.now())
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("order_rows")(time.Now())

	query := s.db.WithContext(ctx).Table("orders").Order("id")
	switch {
	case r == RangeDaily:
		query = query.Where("order_date = ?", from.String())
	case from != nil:
		query = query.Where("order_date >= ?", from.String())
	}

	rows, err := query.Rows()
	if err != nil {
		return nil, database.StorageError("query orders", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, database.StorageError("read columns", err)
	}

	table := &Table{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, database.StorageError("scan order", err)
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, database.StorageError("read orders", err)
	}
	return table, nil
}
