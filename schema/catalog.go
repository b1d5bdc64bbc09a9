// Package schema reads a relational schema and turns its rows into a mongo
// shell script, embedding or referencing related tables as chosen per table.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// FK maps the referencing Columns of a table to the ForeignColumns of the
// referenced table, position by position.
type FK struct {
	Columns        []string
	ForeignColumns []string
}

type dialect struct {
	driver      string
	tables      string
	columns     string
	primaryKey  string
	foreignKeys string
	placeholder func(i int) string
}

var sqlite = dialect{
	driver:     "sqlite",
	tables:     `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ? ORDER BY name`,
	columns:    `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
	primaryKey: `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`,
	// "to" is NULL when the constraint points at the primary key implicitly.
	foreignKeys: `SELECT id, "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`,
	placeholder: func(int) string { return "?" },
}

var postgres = dialect{
	driver: "pgx",
	tables: `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' AND table_name LIKE $1
		ORDER BY table_name`,
	columns: `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`,
	primaryKey: `SELECT kcu.column_name FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		WHERE tc.table_schema = current_schema() AND tc.table_name = $1 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`,
	foreignKeys: `SELECT c.conname, cf.relname, a.attname, af.attname
		FROM pg_constraint c
		JOIN pg_class cl ON cl.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		JOIN pg_class cf ON cf.oid = c.confrelid
		CROSS JOIN LATERAL unnest(c.conkey, c.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
		JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
		JOIN pg_attribute af ON af.attrelid = c.confrelid AND af.attnum = k.fattnum
		WHERE c.contype = 'f' AND n.nspname = current_schema() AND cl.relname = $1
		ORDER BY c.conname, k.ord`,
	placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
}

var dialects = map[string]dialect{
	"sqlite":   sqlite,
	"postgres": postgres,
}

// Catalog lists tables, keys and rows of a relational database.
type Catalog struct {
	db      *sql.DB
	prefix  string
	dialect dialect
}

// Open connects to a database through driver ("sqlite" or "postgres").
// Only tables whose name starts with prefix are listed.
func Open(driver, dsn, prefix string) (*Catalog, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("driver [%s] não suportado", driver)
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir banco [%s], erro %w", driver, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao se conectar com banco [%s], erro %w", driver, err)
	}
	return &Catalog{db: db, prefix: prefix, dialect: d}, nil
}

// Close releases the connection pool.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB exposes the underlying pool.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// Tables lists the table names starting with the catalog prefix.
func (c *Catalog) Tables(ctx context.Context) ([]string, error) {
	return c.names(ctx, c.dialect.tables, c.prefix+"%")
}

// Columns lists the columns of table in declaration order.
func (c *Catalog) Columns(ctx context.Context, table string) ([]string, error) {
	return c.names(ctx, c.dialect.columns, table)
}

// PrimaryKey lists the primary key columns of table in key order.
func (c *Catalog) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	return c.names(ctx, c.dialect.primaryKey, table)
}

// ForeignKeys returns the foreign keys of table by referenced table. When
// table references the same table more than once only the first constraint
// is kept.
func (c *Catalog) ForeignKeys(ctx context.Context, table string) (map[string]FK, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.foreignKeys, table)
	if err != nil {
		return nil, fmt.Errorf("falha ao buscar chaves estrangeiras de [%s], erro %w", table, err)
	}
	defer rows.Close()
	fks := map[string]FK{}
	owner := map[string]string{} // referenced table -> constraint kept
	for rows.Next() {
		var id, foreign, from string
		var to sql.NullString
		if err := rows.Scan(&id, &foreign, &from, &to); err != nil {
			return nil, fmt.Errorf("falha ao ler chave estrangeira de [%s], erro %w", table, err)
		}
		if kept, ok := owner[foreign]; ok && kept != id {
			continue
		}
		owner[foreign] = id
		fk := fks[foreign]
		fk.Columns = append(fk.Columns, from)
		fk.ForeignColumns = append(fk.ForeignColumns, to.String)
		fks[foreign] = fk
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("falha ao ler chaves estrangeiras de [%s], erro %w", table, err)
	}
	for foreign, fk := range fks {
		var pk []string
		for i, col := range fk.ForeignColumns {
			if col != "" {
				continue
			}
			if pk == nil {
				if pk, err = c.PrimaryKey(ctx, foreign); err != nil {
					return nil, err
				}
			}
			if i >= len(pk) {
				return nil, fmt.Errorf("chave estrangeira de [%s] para [%s] não corresponde à chave primária", table, foreign)
			}
			fk.ForeignColumns[i] = pk[i]
		}
	}
	return fks, nil
}

// Rows returns the rows of table whose columns equal values, position by
// position. No columns returns every row.
func (c *Catalog) Rows(ctx context.Context, table string, columns []string, values []interface{}) ([]map[string]interface{}, error) {
	q := "SELECT * FROM " + quote(table)
	for i, col := range columns {
		if i == 0 {
			q += " WHERE "
		} else {
			q += " AND "
		}
		q += quote(col) + " = " + c.dialect.placeholder(i+1)
	}
	rows, err := c.db.QueryContext(ctx, q, values...)
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar [%s], erro %w", table, err)
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("falha ao ler colunas de [%s], erro %w", table, err)
	}
	var out []map[string]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(names))
		ptrs := make([]interface{}, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("falha ao ler linha de [%s], erro %w", table, err)
		}
		row := make(map[string]interface{}, len(names))
		for i, n := range names {
			row[n] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("falha ao ler linhas de [%s], erro %w", table, err)
	}
	return out, nil
}

func (c *Catalog) names(ctx context.Context, query string, arg interface{}) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar catálogo, erro %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("falha ao ler catálogo, erro %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
