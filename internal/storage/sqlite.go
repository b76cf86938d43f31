package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// NewSQLiteStorage opens (creating if needed) an embedded database at path.
func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	return newSQLStorage(db, rebindSQLite, logger.With(zap.String("driver", "sqlite")))
}

// rebindSQLite turns $N placeholders into SQLite's ?N form.
func rebindSQLite(query string) string {
	return placeholderRe.ReplaceAllString(query, "?$1")
}
