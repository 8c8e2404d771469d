package database

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegistryConfig bounds the tenant handle cache
type RegistryConfig struct {
	AdminName  string
	Size       int
	TTL        time.Duration
	CloseGrace time.Duration // delay before an evicted handle is closed
}

// Registry maps tenant database names to open gorm handles.
// Handles are kept in a size-bounded LRU whose entries expire TTL after they were opened.
type Registry struct {
	open   Opener
	config RegistryConfig
	log    *zap.Logger

	mu      sync.Mutex // serializes opens so a tenant is opened once
	cache   *expirable.LRU[string, *gorm.DB]
	closing atomic.Bool

	adminMu sync.Mutex // guards admin; a failed open is retried on the next call
	admin   *gorm.DB
}

// NewRegistry creates a tenant registry
func NewRegistry(open Opener, config RegistryConfig, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{open: open, config: config, log: log}
	r.cache = expirable.NewLRU[string, *gorm.DB](config.Size, r.evicted, config.TTL)
	return r
}

// Admin returns the maintenance database handle. It is never evicted.
func (r *Registry) Admin() (*gorm.DB, error) {
	r.adminMu.Lock()
	defer r.adminMu.Unlock()

	if r.admin != nil {
		return r.admin, nil
	}
	db, err := r.open(r.config.AdminName)
	if err != nil {
		return nil, connectError(r.config.AdminName, err)
	}
	r.admin = db
	return db, nil
}

// Get returns the handle for a tenant database, opening it on first use
func (r *Registry) Get(name string) (*gorm.DB, error) {
	if r.closing.Load() {
		return nil, errors.New("tenant registry closed")
	}
	if name == r.config.AdminName {
		return r.Admin()
	}

	if db, ok := r.cache.Get(name); ok {
		return db, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.cache.Get(name); ok {
		return db, nil
	}
	// Drop an expired entry still waiting for the cleanup tick so its pool gets closed
	r.cache.Remove(name)

	db, err := r.open(name)
	if err != nil {
		return nil, connectError(name, err)
	}
	r.cache.Add(name, db)
	r.log.Debug("Tenant database opened", zap.String("tenant", name), zap.Int("cached", r.cache.Len()))
	return db, nil
}

// Len returns the number of cached tenant handles
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close closes every cached handle and the admin handle
func (r *Registry) Close() error {
	r.closing.Store(true)
	r.cache.Purge()

	r.adminMu.Lock()
	defer r.adminMu.Unlock()
	if r.admin != nil {
		return Close(r.admin)
	}
	return nil
}

func connectError(name string, err error) error {
	if errors.Is(err, ErrTenantNotFound) {
		return err
	}
	return StorageError("connect to "+name, err)
}

func (r *Registry) evicted(name string, db *gorm.DB) {
	closeFn := func() {
		if err := Close(db); err != nil {
			r.log.Warn("Failed to close tenant database", zap.String("tenant", name), zap.Error(err))
			return
		}
		r.log.Debug("Tenant database closed", zap.String("tenant", name))
	}

	if r.config.CloseGrace <= 0 || r.closing.Load() {
		closeFn()
		return
	}
	// In-flight requests may still hold the handle
	time.AfterFunc(r.config.CloseGrace, closeFn)
}
