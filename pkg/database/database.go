package database

import (
	"fmt"

	"ledger-service/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Opener opens a gorm handle for the named database
type Opener func(dbName string) (*gorm.DB, error)

// NewOpener returns an Opener connecting to PostgreSQL with the given configuration
func NewOpener(dbConfig *config.DBConfig) Opener {
	return func(dbName string) (*gorm.DB, error) {
		return Open(dbConfig, dbName)
	}
}

// Open connects to one database of the configured server
func Open(dbConfig *config.DBConfig, dbName string) (*gorm.DB, error) {
	pgConfig := postgres.Config{
		DSN:                  dbConfig.DSNFor(dbName),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(dbConfig.LogLevel),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("connect to %s: %w", dbName, err), dbName)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database object for %s: %w", dbName, err)
	}

	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	}

	return db, nil
}

// Close releases the pool behind a gorm handle
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
