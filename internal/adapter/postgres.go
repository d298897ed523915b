package adapter

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

func init() {
	Register("postgres", func(l *slog.Logger) Adapter { return NewPostgresAdapter(l) })
}

// PostgresParams are the postgres target params.
type PostgresParams struct {
	ApplicationName string `mapstructure:"application_name"`
	// ConnectTimeout is in seconds.
	ConnectTimeout int `mapstructure:"connect_timeout"`
}

// PostgresAdapter applies DDL to a PostgreSQL database.
type PostgresAdapter struct {
	BaseSQLAdapter
}

// NewPostgresAdapter creates a PostgreSQL adapter. A nil logger discards output.
func NewPostgresAdapter(logger *slog.Logger) *PostgresAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

// Name returns "postgres".
func (a *PostgresAdapter) Name() string { return "postgres" }

// AddsForeignKeys is true.
func (a *PostgresAdapter) AddsForeignKeys() bool { return true }

// Connect establishes a connection to PostgreSQL.
func (a *PostgresAdapter) Connect(ctx context.Context, cfg Config) error {
	var params PostgresParams
	if err := DecodeParams(cfg.Params, &params); err != nil {
		return err
	}
	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return a.open(ctx, "pgx", buildPostgresDSN(cfg, params), cfg)
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg Config, params PostgresParams) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += " user=" + cfg.Username
	}
	if cfg.Password != "" {
		dsn += " password=" + cfg.Password
	}
	if params.ApplicationName != "" {
		dsn += " application_name=" + params.ApplicationName
	}
	if params.ConnectTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", params.ConnectTimeout)
	}
	return dsn
}

var _ Adapter = (*PostgresAdapter)(nil)
