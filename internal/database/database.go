package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shuweic/mp3/internal/config"
	"github.com/shuweic/mp3/internal/store"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects the document store selected by cfg.StoreDriver and prepares
// its schema: indexes for MongoDB, migrations for SQL backends.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMongo {
		s, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		log.Info("MongoDB connection established", "database", cfg.MongoDB)

		if err := s.CreateIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		return s, nil
	}

	dialector, err := Dialector(cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(gormLogLevel(cfg.GinMode)),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established", "driver", cfg.StoreDriver)

	s := store.NewSQL(db)
	log.Info("Running database migrations...")
	if err := s.Migrate(); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	log.Info("Database migrations completed")

	return s, nil
}

// Dialector returns the gorm dialector for a SQL driver name.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

func gormLogLevel(ginMode string) logger.LogLevel {
	if ginMode == "debug" {
		return logger.Info
	}
	return logger.Warn
}
