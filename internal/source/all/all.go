// Package all registers every source backend.
package all

import (
	_ "github.com/vnragavan/schema-generator/internal/source/csvfile"
	_ "github.com/vnragavan/schema-generator/internal/source/htmltable"
	_ "github.com/vnragavan/schema-generator/internal/source/jsonrecords"
	_ "github.com/vnragavan/schema-generator/internal/source/mssql"
	_ "github.com/vnragavan/schema-generator/internal/source/postgres"
	_ "github.com/vnragavan/schema-generator/internal/source/sqlite"
)
