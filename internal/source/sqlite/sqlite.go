// Package sqlite loads a table or query result from a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/source/sqlsource"
	"github.com/vnragavan/schema-generator/internal/table"
)

// Kind is the source kind this package registers.
const Kind = "sqlite"

func init() {
	source.Register(Kind, open)
}

// open reads cfg.Query (or all of cfg.Table). The DSN falls back to Path so
// that a plain database file can be passed with --data.
func open(ctx context.Context, cfg source.Config) (*table.Table, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = cfg.Path
	}
	query, err := sqlsource.SelectSQL(cfg, sqlsource.DoubleQuote)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	name, desc := sqlsource.Describe(Kind, cfg)
	return sqlsource.ReadAll(ctx, db, query, name, desc, nil)
}
