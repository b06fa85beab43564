package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Repositories are
// built over it so the service layer can scope a group of writes to one
// database transaction with WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", str)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return parsed.UTC(), nil
}

// placeholders returns "?,?,...,?" for n values of an IN clause.
func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ",")
}

// stringArgs widens a string slice for variadic query arguments.
func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
