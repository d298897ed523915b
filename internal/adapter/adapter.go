// Package adapter executes generated DDL scripts against database targets.
// Targets register themselves by name; `leapmodel apply` looks them up from
// the configured target type.
package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"
)

var errNotConnected = errors.New("database connection not established")

// Config holds the connection settings of a target.
type Config struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
	// Params holds target-specific settings, decoded by each adapter.
	Params map[string]any
}

// Adapter is a database the DDL can be applied to.
type Adapter interface {
	// Name returns the registered target type.
	Name() string

	Connect(ctx context.Context, cfg Config) error
	Close() error
	Exec(ctx context.Context, sql string) error
	IsConnected() bool

	// AddsForeignKeys reports whether ALTER TABLE ... ADD FOREIGN KEY is
	// supported after table creation.
	AddsForeignKeys() bool
}

// BaseSQLAdapter holds the database/sql plumbing shared by adapters.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database connection")
	}
	err := b.DB.Close()
	b.DB = nil
	return err
}

// Exec executes a statement that returns no rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return errNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// IsConnected returns true once Connect succeeded.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// open opens and pings a database/sql connection.
func (b *BaseSQLAdapter) open(ctx context.Context, driver, dsn string, cfg Config) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	b.DB = db
	b.Cfg = cfg
	return nil
}

// DecodeParams decodes cfg.Params into out. Unknown keys are an error so a
// typo in the config file does not pass silently.
func DecodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid target params: %w", err)
	}
	return nil
}
