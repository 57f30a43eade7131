package database

import (
	"fmt"
	"time"

	"github.com/zfogg/unify/internal/config"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the process-wide database handle
var DB *gorm.DB

// Connect opens a gorm handle for cfg without touching DB
func Connect(cfg config.DatabaseConfig, verbose bool) (*gorm.DB, error) {
	gormLog := gormlogger.Default.LogMode(gormlogger.Warn)
	if verbose {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}
	gormCfg := &gorm.Config{
		Logger: gormLog,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// one writer; shared in-memory databases vanish with their last connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Initialize connects and installs the global handle
func Initialize(cfg config.DatabaseConfig, verbose bool) error {
	db, err := Connect(cfg, verbose)
	if err != nil {
		return err
	}
	DB = db
	logger.Log.Info("Database connected", zap.String("driver", cfg.Driver))
	return nil
}

// OpenInMemory returns a migrated sqlite database private to name.
// Used by tests and by the seed command's dry runs.
func OpenInMemory(name string) (*gorm.DB, error) {
	db, err := Connect(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=0", name),
	}, false)
	if err != nil {
		return nil, err
	}
	db.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	if err := MigrateDB(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate migrates the global handle
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return MigrateDB(DB)
}

// MigrateDB creates or updates every table and the secondary indexes
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, stmt := range indexStatements(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Log.Warn("Failed to create index", zap.String("sql", stmt), zap.Error(err))
		}
	}
	logger.Log.Info("Database migrations completed")
	return nil
}

func indexStatements(dialect string) []string {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
		"CREATE INDEX IF NOT EXISTS idx_friendships_user1_status ON friendships (user1_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_friendships_user2_status ON friendships (user2_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_stories_user_expires ON stories (user_id, expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread ON messages (receiver_id, is_read)",
		"CREATE INDEX IF NOT EXISTS idx_group_members_pending ON group_members (user_id) WHERE joined_at IS NULL",
	}
	if dialect == "postgres" {
		stmts = append(stmts,
			"CREATE INDEX IF NOT EXISTS idx_groups_name_lower ON groups (LOWER(name))",
			"CREATE INDEX IF NOT EXISTS idx_pages_name_lower ON pages (LOWER(name))",
		)
	}
	return stmts
}

// Close closes the global handle
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health pings the database
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
