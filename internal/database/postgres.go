package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultPostgresHost = "localhost"
	defaultPostgresPort = 5432
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	return tunePool(db)
}

// buildPostgresDSN assembles a keyword/value connection string. SSL is off
// unless the options say otherwise; deployments sit behind a private
// network or set sslmode explicitly.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "host=%s port=%d user=%s dbname=%s", host, port, cfg.User, cfg.Name)
	if cfg.Password != "" {
		fmt.Fprintf(&sb, " password=%s", cfg.Password)
	}
	for _, pair := range mergedOptions(map[string]string{"sslmode": "disable"}, cfg.Options) {
		sb.WriteByte(' ')
		sb.WriteString(pair)
	}

	return sb.String(), nil
}
