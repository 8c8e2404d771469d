// Package localledger keeps ledger transactions in a single SQLite file.
package localledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger-service/internal/ledger"
	"ledger-service/internal/model"

	"github.com/jmoiron/sqlx"
	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	// sqlite is used as underlying driver
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDSN is used when no DSN is configured
const DefaultDSN = "sqlite3://~/.smart-ledger/ledger.db"

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  date TEXT NOT NULL,
  item_name TEXT NOT NULL,
  company TEXT,
  amount REAL NOT NULL CHECK (amount > 0),
  type TEXT NOT NULL CHECK (type IN ('credit', 'debit')),
  notes TEXT
)`

// Store is a transactions table in a SQLite database
type Store struct {
	db  *sqlx.DB
	now func() time.Time
	log *zap.Logger
}

// Open parses the DSN and opens the database it names. Supported DSN are:
//
//	sqlite3:///home/me/ledger.db
//	sqlite3://~/.smart-ledger/ledger.db
//	sqlite3://:memory:
//
// If no DSN is specified, DefaultDSN is used instead.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dsn == "" {
		dsn = DefaultDSN
	}

	scheme, target, ok := strings.Cut(dsn, "://")
	if !ok || target == "" {
		return nil, fmt.Errorf("invalid ledger DSN: %s", dsn)
	}
	if scheme != "sqlite3" {
		return nil, fmt.Errorf("unsupported ledger DSN: %s", dsn)
	}

	var (
		db  *sqlx.DB
		err error
	)
	if target == ":memory:" {
		db, err = sqlx.ConnectContext(ctx, "sqlite3", ":memory:")
		if err != nil {
			return nil, fmt.Errorf("open in-memory ledger: %w", err)
		}
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		log.Debug("Opened sqlite3 ledger", zap.Bool("in_memory", true))
	} else {
		path, err := homedir.Expand(target)
		if err != nil {
			return nil, fmt.Errorf("expand ledger path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		db, err = sqlx.ConnectContext(ctx, "sqlite3", path)
		if err != nil {
			return nil, fmt.Errorf("open ledger %s: %w", path, err)
		}
		log.Debug("Opened sqlite3 ledger", zap.String("path", path))
	}

	return &Store{db: db, now: time.Now, log: log}, nil
}

// WithClock returns a copy that reads the current date from now
func (s *Store) WithClock(now func() time.Time) *Store {
	cp := *s
	cp.now = now
	return &cp
}

// Init creates the transactions table when missing
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}
	return nil
}

// Add validates and inserts a transaction
func (s *Store) Add(ctx context.Context, in ledger.TransactionInput) (*model.Transaction, error) {
	txn, err := in.Validate(s.now())
	if err != nil {
		return nil, err
	}

	res, err := sqlx.NamedExecContext(ctx, s.db, `
INSERT INTO transactions
  (date, item_name, company, amount, type, notes)
VALUES
  (:date, :item_name, :company, :amount, :type, :notes)
`, txn)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read transaction id: %w", err)
	}
	txn.ID = uint(id)
	return txn, nil
}

// List returns every transaction, newest first
func (s *Store) List(ctx context.Context) ([]model.Transaction, error) {
	txns := []model.Transaction{}
	if err := s.db.SelectContext(ctx, &txns, `
SELECT id, date, item_name, company, amount, type, notes
FROM transactions
ORDER BY id DESC
`); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
