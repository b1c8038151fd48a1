// Package postgres loads a table or query result from PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/source/sqlsource"
	"github.com/vnragavan/schema-generator/internal/table"
)

// Kind is the source kind this package registers.
const Kind = "postgres"

func init() {
	source.Register(Kind, open)
}

func open(ctx context.Context, cfg source.Config) (*table.Table, error) {
	query, err := sqlsource.SelectSQL(cfg, quote)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	names := make([]string, len(fds))
	for i, fd := range fds {
		names[i] = fd.Name
	}

	b := sqlsource.NewBuilder(names)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("values: %w", err)
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		b.Append(vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	name, desc := sqlsource.Describe(Kind, cfg)
	return b.Table(name, desc), nil
}

func quote(s string) string {
	return pgx.Identifier{s}.Sanitize()
}

// normalize maps the pgx default Go types onto table values.
func normalize(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Interval:
		if !x.Valid {
			return nil
		}
		return intervalDuration(x)
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		return time.Duration(x.Microseconds) * time.Microsecond
	default:
		return sqlsource.Normalize(v, "")
	}
}

// intervalDuration flattens an interval using 24h days and 30 day months.
func intervalDuration(iv pgtype.Interval) time.Duration {
	d := time.Duration(iv.Microseconds) * time.Microsecond
	d += time.Duration(iv.Days) * 24 * time.Hour
	d += time.Duration(iv.Months) * 30 * 24 * time.Hour
	return d
}
