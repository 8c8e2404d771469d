// Package shop provisions tenant databases and manages the users stored in them.
package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledger-service/internal/model"
	"ledger-service/pkg/database"
	"ledger-service/prometheus"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidShopName    = errors.New("invalid shop name")
	ErrShopExists         = errors.New("shop already exists")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidUser        = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Databases hands out database handles; *database.Registry implements it
type Databases interface {
	Admin() (*gorm.DB, error)
	Get(name string) (*gorm.DB, error)
}

// bootstrapTables is run inside every new tenant database
var bootstrapTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username VARCHAR(100) UNIQUE NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS orders (
	id SERIAL PRIMARY KEY,
	user_id INT NOT NULL CHECK (user_id > 0),
	amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
	status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'completed', 'cancelled')),
	order_date DATE NOT NULL DEFAULT CURRENT_DATE
)`,
	`CREATE TABLE IF NOT EXISTS transactions (
	id SERIAL PRIMARY KEY,
	date DATE NOT NULL,
	item_name VARCHAR(100) NOT NULL,
	company VARCHAR(100),
	amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
	type VARCHAR(10) NOT NULL CHECK (type IN ('credit', 'debit')),
	notes TEXT
)`,
}

// Provisioner creates tenant databases and their users
type Provisioner struct {
	dbs      Databases
	prefix   string
	hashCost int
	log      *zap.Logger
}

// NewProvisioner creates a provisioner deriving tenant names with prefix
func NewProvisioner(dbs Databases, prefix string, log *zap.Logger) *Provisioner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provisioner{dbs: dbs, prefix: prefix, hashCost: bcrypt.DefaultCost, log: log}
}

// WithHashCost returns a copy hashing passwords with the given bcrypt cost
func (p *Provisioner) WithHashCost(cost int) *Provisioner {
	cp := *p
	cp.hashCost = cost
	return &cp
}

// Identifier derives the tenant database name of a shop
func (p *Provisioner) Identifier(name string) (string, error) {
	return NormalizeName(p.prefix, name)
}

// Ping checks that the database server answers
func (p *Provisioner) Ping(ctx context.Context) error {
	admin, err := p.dbs.Admin()
	if err != nil {
		return database.StorageError("connect to admin database", err)
	}
	sqlDB, err := admin.DB()
	if err != nil {
		return database.StorageError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return database.StorageError("ping", err)
	}
	return nil
}

// Exists reports whether the named database exists on the server
func (p *Provisioner) Exists(ctx context.Context, ident string) (bool, error) {
	defer prometheus.TrackDBOperation("database_exists")(time.Now())

	admin, err := p.dbs.Admin()
	if err != nil {
		return false, database.StorageError("connect to admin database", err)
	}

	var exists bool
	err = admin.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)", ident).
		Scan(&exists).Error
	if err != nil {
		return false, database.StorageError("look up database", err)
	}
	return exists, nil
}

// CreateDatabase creates the tenant database. An existing database yields ErrShopExists.
func (p *Provisioner) CreateDatabase(ctx context.Context, ident string) error {
	if !ValidDatabaseName(ident) {
		return fmt.Errorf("%w: %q", ErrInvalidShopName, ident)
	}

	exists, err := p.Exists(ctx, ident)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrShopExists, ident)
	}

	defer prometheus.TrackDBOperation("create_database")(time.Now())

	admin, err := p.dbs.Admin()
	if err != nil {
		return database.StorageError("connect to admin database", err)
	}
	// CREATE DATABASE takes no bind parameters
	if err := admin.WithContext(ctx).Exec("CREATE DATABASE " + pq.QuoteIdentifier(ident)).Error; err != nil {
		if database.HasCode(err, database.CodeDuplicateDatabase) {
			return fmt.Errorf("%w: %s", ErrShopExists, ident)
		}
		return database.StorageError("create database", err)
	}

	p.log.Info("Shop database created", zap.String("database", ident))
	return nil
}

// List returns the tenant databases, sorted by name
func (p *Provisioner) List(ctx context.Context) ([]string, error) {
	defer prometheus.TrackDBOperation("list_databases")(time.Now())

	admin, err := p.dbs.Admin()
	if err != nil {
		return nil, database.StorageError("connect to admin database", err)
	}

	var names []string
	err = admin.WithContext(ctx).
		Raw(`SELECT datname FROM pg_database WHERE datname LIKE ? ESCAPE '\' AND NOT datistemplate ORDER BY datname`,
			escapeLike(p.prefix)+"%").
		Scan(&names).Error
	if err != nil {
		return nil, database.StorageError("list databases", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Bootstrap creates the users, orders and transactions tables when missing
func (p *Provisioner) Bootstrap(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(bootstrap)
}

// RegisterShop creates the tenant database of a shop, its tables and its first user,
// and returns the database name. A database left behind by an earlier failed
// registration is reused as long as it holds no user yet.
func (p *Provisioner) RegisterShop(ctx context.Context, name, username, password string) (string, error) {
	ident, err := p.Identifier(name)
	if err != nil {
		return "", err
	}
	hash, err := p.hashPassword(username, password)
	if err != nil {
		return "", err
	}

	resumed := false
	if err := p.CreateDatabase(ctx, ident); err != nil {
		if !errors.Is(err, ErrShopExists) {
			return "", err
		}
		resumed = true
	}

	db, err := p.dbs.Get(ident)
	if err != nil {
		return "", err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bootstrap(tx); err != nil {
			return err
		}
		if resumed {
			var users int64
			if err := tx.Model(&model.User{}).Count(&users).Error; err != nil {
				return database.StorageError("count users", err)
			}
			if users > 0 {
				return fmt.Errorf("%w: %s", ErrShopExists, ident)
			}
			p.log.Info("Completing unfinished shop registration", zap.String("database", ident))
		}
		return insertUser(tx, username, hash, nil)
	})
	if err != nil {
		return "", err
	}

	p.log.Info("Shop registered", zap.String("database", ident), zap.String("username", username))
	return ident, nil
}

// AddUser creates another user in a shop database
func (p *Provisioner) AddUser(ctx context.Context, db *gorm.DB, username, password string) (*model.User, error) {
	hash, err := p.hashPassword(username, password)
	if err != nil {
		return nil, err
	}
	user := &model.User{}
	if err := insertUser(db.WithContext(ctx), username, hash, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username and password against a shop database.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (p *Provisioner) Authenticate(ctx context.Context, db *gorm.DB, username, password string) (*model.User, error) {
	defer prometheus.TrackDBOperation("find_user")(time.Now())

	var user model.User
	err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, p.RejectLogin(password)
	}
	if err != nil {
		return nil, database.StorageError("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// RejectLogin spends the time of a password comparison and returns ErrInvalidCredentials
func (p *Provisioner) RejectLogin(password string) error {
	bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
	return ErrInvalidCredentials
}

func (p *Provisioner) hashPassword(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrInvalidUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is longer than 72 bytes", ErrInvalidUser)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func bootstrap(tx *gorm.DB) error {
	defer prometheus.TrackDBOperation("bootstrap_tables")(time.Now())

	for _, ddl := range bootstrapTables {
		if err := tx.Exec(ddl).Error; err != nil {
			return database.StorageError("create tables", err)
		}
	}
	return nil
}

func insertUser(db *gorm.DB, username, hash string, out *model.User) error {
	defer prometheus.TrackDBOperation("create_user")(time.Now())

	user := model.User{Username: username, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		if database.HasCode(err, database.CodeUniqueViolation) {
			return fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return database.StorageError("create user", err)
	}
	if out != nil {
		*out = user
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// dummyHash is compared against when a login names an unknown user
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ledger-dummy-password"), bcrypt.DefaultCost)
