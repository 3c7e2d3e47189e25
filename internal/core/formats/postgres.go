package formats

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/enade/internal/core"
	"github.com/JonMunkholm/enade/internal/schema"
)

// DefaultTable receives the dataset when no table is configured.
const DefaultTable = "enade_evaluations"

func init() {
	core.Register(core.FormatDefinition{
		Key:     "postgres",
		Label:   "PostgreSQL table",
		WriteDB: writePostgres,
	})
}

// TableIdentifier parses a possibly schema-qualified table name.
func TableIdentifier(table string) pgx.Identifier {
	if table == "" {
		table = DefaultTable
	}
	return pgx.Identifier(strings.Split(table, "."))
}

// CopyColumns are the table columns in schema.OutputColumns order.
var CopyColumns = func() []string {
	cols := make([]string, len(schema.OutputColumns))
	for i, c := range schema.OutputColumns {
		cols[i] = strings.ToLower(c)
	}
	return cols
}()

// CreateTableSQL returns the DDL for the dataset table.
func CreateTableSQL(ident pgx.Identifier) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", ident.Sanitize())
	for i, col := range schema.Output {
		typ := "text"
		switch col.Kind {
		case schema.KindInt:
			typ = "bigint"
		case schema.KindFloat:
			typ = "double precision"
		}
		if !col.Nullable {
			typ += " NOT NULL"
		}
		sep := ","
		if i == len(schema.Output)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "\t%s %s%s\n", pgx.Identifier{CopyColumns[i]}.Sanitize(), typ, sep)
	}
	b.WriteString(")")
	return b.String()
}

// writePostgres copies rows into the target table inside one transaction, so
// readers see either the previous contents or the complete new dataset.
func writePostgres(ctx context.Context, db core.DB, target core.Target, rows []core.Evaluation) error {
	ident := TableIdentifier(target.Table)

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if target.CreateTable {
		if _, err := tx.Exec(ctx, CreateTableSQL(ident)); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	if target.Truncate {
		if _, err := tx.Exec(ctx, "TRUNCATE "+ident.Sanitize()); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}

	n, err := tx.CopyFrom(ctx, ident, CopyColumns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		if i%core.ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		return rows[i].Values(), nil
	}))
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy: wrote %d of %d rows", n, len(rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
