package sqlstore

import (
	"database/sql"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// NewPostgresDB opens a bun handle over lib/pq for production wiring.
// Tests and local tooling use the sqlite path through go-persistence-bun.
func NewPostgresDB(dsn string) (*bun.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, storeBadInput("sqlstore: postgres dsn is required", nil)
	}
	sqlDB, err := sql.Open("postgres", trimmed)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}
