package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"project-management-api/internal/config"
	"project-management-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Options controls how the connection is opened.
type Options struct {
	Driver   string // "sqlite" | "postgres"
	DSN      string
	LogLevel logger.LogLevel
	NowFunc  func() time.Time
}

// OptionsFromConfig maps the application config onto connection options.
func OptionsFromConfig(cfg config.DatabaseConfig) Options {
	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}
	return Options{Driver: cfg.Driver, DSN: cfg.DSN, LogLevel: level}
}

// Open opens the database connection for the configured driver. Unique
// constraint violations are translated to gorm.ErrDuplicatedKey.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(opts.Driver) {
	case "", "sqlite":
		dsn := opts.DSN
		if dsn == "" {
			dsn = "project-management.db"
		}
		// glebarez/sqlite is a pure Go implementation (no CGO required)
		dialector = sqlite.Open(withForeignKeys(dsn))
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
	}
	if opts.NowFunc != nil {
		gormCfg.NowFunc = opts.NowFunc
	}
	return gorm.Open(dialector, gormCfg)
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// InitDB opens the connection, runs migrations and seeds the default roles.
func InitDB(opts Options) (*gorm.DB, error) {
	db, err := Open(opts)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema and seeds the default roles.
func Migrate(db *gorm.DB) error {
	// Auto-migrate the schema (it will create tables if they don't exist)
	err := db.AutoMigrate(
		&models.Role{},
		&models.Employee{},
		&models.Team{},
		&models.TeamMember{},
		&models.Project{},
		&models.Task{},
		&models.SubTask{},
		&models.TaskAttachment{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return SeedRoles(db, models.RoleAdmin, models.RoleManager, models.RoleMember)
}

// SeedRoles inserts the named roles, leaving existing ones untouched.
func SeedRoles(db *gorm.DB, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	roles := make([]models.Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, models.Role{Name: n})
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&roles).Error
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err comes from a unique index. Inside
// transactions gorm does not always translate the driver error, so the raw
// sqlite and postgres messages are checked as well.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
