// Package mssql loads a table or query result from SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/source/sqlsource"
	"github.com/vnragavan/schema-generator/internal/table"
)

// Kind is the source kind this package registers.
const Kind = "mssql"

func init() {
	source.Register(Kind, open)
}

func open(ctx context.Context, cfg source.Config) (*table.Table, error) {
	query, err := sqlsource.SelectSQL(cfg, sqlsource.BracketQuote)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	name, desc := sqlsource.Describe(Kind, cfg)
	return sqlsource.ReadAll(ctx, db, query, name, desc, normalize)
}

// normalize renders UNIQUEIDENTIFIER columns in canonical GUID text. The
// driver hands them over as 16 raw bytes in SQL Server's mixed-endian order.
func normalize(v any, dbType string) any {
	if b, ok := v.([]byte); ok && dbType == "UNIQUEIDENTIFIER" && len(b) == 16 {
		var u mssqldb.UniqueIdentifier
		if err := u.Scan(b); err == nil {
			return u.String()
		}
	}
	return sqlsource.Normalize(v, dbType)
}
