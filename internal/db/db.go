package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/gratefultolord/insurance_bot/internal/config"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

const connectTimeout = 10 * time.Second

// The ledger writes one row per delivered policy, so a small pool is enough.
const (
	maxOpenConns    = 4
	maxIdleConns    = 1
	connMaxLifetime = 30 * time.Minute
)

type DB struct {
	Conn *sqlx.DB
}

func dataSourceName(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

// New connects to the policy ledger database and verifies it answers.
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := sqlx.ConnectContext(ctx, "postgres", dataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("db.New: cannot connect to %s/%s: %w", cfg.DBHost, cfg.DBName, err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	logx.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("connected to policy ledger")

	return &DB{Conn: conn}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.Conn.PingContext(ctx); err != nil {
		return fmt.Errorf("DB.Ping: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.Conn.Close()
}
