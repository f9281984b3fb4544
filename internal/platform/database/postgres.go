package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

const (
	defaultConnectAttempts = 10
	connectRetryWait       = 2 * time.Second
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string

	// ConnectAttempts bounds the startup ping loop; zero means the default.
	ConnectAttempts int

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the database and waits for it to become reachable, retrying
// the ping until the attempt budget or the context runs out.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = defaultConnectAttempts
	}

	for attempt := 1; ; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if attempt >= attempts {
			db.Close()
			return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempts, err)
		}

		log.Printf("Database not ready (attempt %d/%d), retrying in %s...", attempt, attempts, connectRetryWait)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(connectRetryWait):
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	log.Println("Database connected.")
	return db, nil
}
