package journal

import (
	"fmt"
	"strings"
)

// Dialect abstracts the SQL differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName returns the driver name for sql.Open().
	DriverName() string

	// Placeholder returns the parameter placeholder for the given position (1-indexed).
	Placeholder(position int) string

	// SupportsLastInsertID returns true if the database supports LastInsertId().
	SupportsLastInsertID() bool

	// ReturningClause returns the RETURNING clause for INSERT statements.
	ReturningClause(column string) string

	// InitStatements returns database-specific initialization statements.
	InitStatements() []string

	// SerialPrimaryKey returns the column definition of an auto-increment id.
	SerialPrimaryKey() string
}

// DialectType identifies the database dialect.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect creates a new Dialect for the given type.
func NewDialect(dialectType DialectType) Dialect {
	switch dialectType {
	case DialectPostgres:
		return &PostgresDialect{}
	default:
		return &SQLiteDialect{}
	}
}

// SQLiteDialect implements Dialect for the modernc.org/sqlite driver.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string                   { return "sqlite" }
func (d *SQLiteDialect) Placeholder(position int) string      { return "?" }
func (d *SQLiteDialect) SupportsLastInsertID() bool           { return true }
func (d *SQLiteDialect) ReturningClause(column string) string { return "" }
func (d *SQLiteDialect) SerialPrimaryKey() string             { return "INTEGER PRIMARY KEY AUTOINCREMENT" }

// InitStatements returns SQLite PRAGMA statements for optimal operation.
func (d *SQLiteDialect) InitStatements() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

// PostgresDialect implements Dialect for the lib/pq driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string              { return "postgres" }
func (d *PostgresDialect) Placeholder(position int) string { return fmt.Sprintf("$%d", position) }
func (d *PostgresDialect) SupportsLastInsertID() bool      { return false }
func (d *PostgresDialect) InitStatements() []string        { return nil }
func (d *PostgresDialect) SerialPrimaryKey() string        { return "BIGSERIAL PRIMARY KEY" }

// ReturningClause returns "RETURNING <column>" for INSERT statements.
func (d *PostgresDialect) ReturningClause(column string) string {
	return fmt.Sprintf(" RETURNING %s", column)
}

// QueryBuilder converts SQL queries with ? placeholders to dialect-specific format.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build converts a query with ? placeholders to dialect-specific placeholders.
//
//	input:    "SELECT * FROM quest_events WHERE npc = ? AND kind = ?"
//	SQLite:   unchanged
//	Postgres: "SELECT * FROM quest_events WHERE npc = $1 AND kind = $2"
func (qb *QueryBuilder) Build(query string) string {
	if _, ok := qb.dialect.(*SQLiteDialect); ok {
		return query
	}

	var result strings.Builder
	position := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result.WriteString(qb.dialect.Placeholder(position))
			position++
		} else {
			result.WriteByte(query[i])
		}
	}
	return result.String()
}

// BuildWithReturning appends a RETURNING clause if the dialect requires it.
func (qb *QueryBuilder) BuildWithReturning(query string, column string) string {
	converted := qb.Build(query)
	if !qb.dialect.SupportsLastInsertID() {
		converted += qb.dialect.ReturningClause(column)
	}
	return converted
}
