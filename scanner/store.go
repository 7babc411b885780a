package scanner

import (
	"context"
	"fmt"
	"net/url"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store is the shared database holding the registry (pi_devices) and the
// event log (scan_log).
type Store struct {
	db *gorm.DB
}

// Dialect picks the gorm dialector for the configured driver.
func Dialect(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	case DriverSQLite:
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func postgresDSN(cfg DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.password()),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
		q.Set("connect_timeout", fmt.Sprint(secs))
	}
	q.Set("TimeZone", "UTC")
	u.RawQuery = q.Encode()
	return u.String()
}

// OpenStore opens a connection pool. It does not contact a postgres server
// until the first query, so an unreachable database is reported by the
// first resolution or submission rather than here.
func OpenStore(cfg DatabaseConfig, log zerolog.Logger) (*Store, error) {
	dialect, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialect, &gorm.Config{
		Logger:                 NewGormLogger(log, DefaultGormLoggerConfig()),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer; a single connection serializes the
		// transactions instead of failing them with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}
	return &Store{db: db}, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// EnsureSchema creates pi_devices and scan_log when they are missing.
// Existing tables are left untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	m := s.db.WithContext(ctx).Migrator()
	for _, model := range []any{&DeviceRecord{}, &ScanEvent{}} {
		if m.HasTable(model) {
			continue
		}
		if err := m.CreateTable(model); err != nil {
			return newStoreError("ensure schema", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection; used at start-up for a log line only.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return newStoreError("ping", err)
	}
	return nil
}

// RedactedDSN describes the database target with the password masked, for logs.
func RedactedDSN(cfg DatabaseConfig) string {
	if cfg.Driver == DriverSQLite {
		return "sqlite:" + cfg.Path
	}
	u, err := url.Parse(postgresDSN(cfg))
	if err != nil {
		return "postgres://" + cfg.Host
	}
	return u.Redacted()
}
