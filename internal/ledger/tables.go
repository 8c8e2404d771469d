package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-service/pkg/database"
	"ledger-service/prometheus"
)

// ErrTableExists is returned when a created table is already present
var ErrTableExists = errors.New("table already exists")

// CreateTable runs a CREATE TABLE statement built by the schema package
func (s *Store) CreateTable(ctx context.Context, ddl string) error {
	defer prometheus.TrackDBOperation("create_table")(time.Now())

	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		if database.HasCode(err, database.CodeDuplicateTable) {
			return fmt.Errorf("%w: %v", ErrTableExists, err)
		}
		return database.StorageError("create table", err)
	}
	return nil
}
