package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sqlitePragmas ride on the DSN so every pooled connection gets them.
// busy_timeout papers over writer contention between the HTTP handlers
// and the maintenance sweeper sharing one file.
const (
	memorySQLiteDSN = "file::memory:?cache=shared&_foreign_keys=1"
	fileSQLiteDSN   = "file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000"
)

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		built, err := sqliteDSN(strings.TrimSpace(cfg.Path))
		if err != nil {
			return nil, err
		}
		dsn = built
	}

	return gorm.Open(sqlite.Open(dsn), gormConfig())
}

// sqliteDSN maps a configured path to a connection string. An empty or
// ":memory:" path selects a shared in-memory database, so every
// connection in the process sees one schema; the test helpers rely on
// that.
func sqliteDSN(path string) (string, error) {
	if path == "" || strings.EqualFold(path, ":memory:") {
		return memorySQLiteDSN, nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf(fileSQLiteDSN, filepath.ToSlash(path)), nil
}
