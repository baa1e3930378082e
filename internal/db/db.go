package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ficehub/internal/config"
	"ficehub/internal/logger"
	"ficehub/internal/models"
	"ficehub/internal/utils"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sqliteDriver is go-sqlite3 with LOWER replaced by a Unicode-aware version, so
// case-insensitive search folds non-ASCII letters the way Postgres does.
const sqliteDriver = "sqlite3_ficehub"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
}

// Open connects to the configured database. It does not migrate.
func Open(cfg config.Database, log *zap.Logger, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.New(sqlite.Config{DriverName: sqliteDriver, DSN: cfg.DSN})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Gorm(log, debug),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer; one connection keeps transactions from tripping SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnLifetime)
	}

	log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

// Migrate creates or updates every table the services use.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Group{},
		&models.User{},
		&models.Credential{},
		&models.Profile{},
		&models.Category{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Seed inserts the default groups and categories into an empty database.
func Seed(db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.Group{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		groups := []models.Group{{Name: "students"}, {Name: "teachers"}}
		if err := db.Create(&groups).Error; err != nil {
			return fmt.Errorf("failed to seed groups: %w", err)
		}
		log.Info("Initial groups created")
	}

	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Debug("Categories already seeded, skipping")
		return nil
	}

	// the namespace is empty, so the normalized names are already unique
	categories := []models.Category{
		{Name: "General", Description: "Anything that fits nowhere else"},
		{Name: "Lectures", Description: "Notes and discussion on lectures"},
		{Name: "Projects", Description: "Show your work"},
	}
	for i := range categories {
		categories[i].Slug = utils.Slugify(categories[i].Name)
	}
	if err := db.Create(&categories).Error; err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	log.Info("Initial categories created")
	return nil
}

// Health pings the database with a short deadline.
func Health(ctx context.Context, db *gorm.DB) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats := make(map[string]string)

	sqlDB, err := db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	dbStats := sqlDB.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)
	return stats
}
