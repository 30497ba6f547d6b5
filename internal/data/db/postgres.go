package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

// Config selects the archive database. Driver is "postgres" or "sqlite";
// DSN is a postgres URL or a sqlite path (":memory:" works for tests).
type Config struct {
	Driver string
	DSN    string
}

type ArchiveDB struct {
	db  *gorm.DB
	log *logger.Logger
}

func Open(logg *logger.Logger, cfg Config) (*ArchiveDB, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	serviceLog := logg.With("service", "ArchiveDB", "driver", cfg.Driver)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres archive requires a DSN")
		}
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "dudesk_archive.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	if err := AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("archive migrate: %w", err)
	}
	serviceLog.Info("Archive database ready")
	return &ArchiveDB{db: db, log: serviceLog}, nil
}

// PostgresDSN builds a URL from the discrete POSTGRES_* settings.
func PostgresDSN(host, port, user, password, name string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
}

func (s *ArchiveDB) DB() *gorm.DB { return s.db }

func (s *ArchiveDB) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
