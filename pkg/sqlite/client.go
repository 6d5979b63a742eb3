package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// Client is a read-only handle on a SQLite file holding the dashboard tables.
type Client struct {
	db   *sql.DB
	path string
}

// Open opens path in read-only mode. The file must already exist.
func Open(ctx context.Context, path string) (*Client, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite stat: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps reads serialised on one file handle
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return &Client{db: db, path: path}, nil
}

// DB returns *sql.DB for direct use.
func (c *Client) DB() *sql.DB { return c.db }

func (c *Client) Path() string { return c.path }

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
