package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/errors"
)

// Lookup sources recorded in history.
const (
	SourceCLI    = "cli"
	SourceMCP    = "mcp"
	SourceWeb    = "web"
	SourceRandom = "random"
)

// LookupRecord is one decode attempt.
type LookupRecord struct {
	ID          string
	Code        alert.Code
	Found       bool
	Description string // empty when not found
	Source      string
	CreatedAt   int64 // unix seconds
}

// LookupFilter narrows history queries. Zero values match everything.
type LookupFilter struct {
	Code      *alert.Code
	FoundOnly bool
	Source    string
}

// InsertLookup stores a history record.
func InsertLookup(ctx context.Context, db *sql.DB, r *LookupRecord) error {
	query := `
		INSERT INTO lookups (id, code, found, description, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		r.ID, int64(r.Code), boolToInt(r.Found), toNullString(r.Description), r.Source, r.CreatedAt,
	)
	if err != nil {
		return wrapErr(ctx, "insert lookup", err)
	}
	return nil
}

// ListLookups returns matching records, newest first.
func ListLookups(ctx context.Context, db *sql.DB, f LookupFilter, limit, offset int) ([]LookupRecord, error) {
	where, args := f.clause()
	query := `
		SELECT id, code, found, description, source, created_at
		FROM lookups` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(ctx, "list lookups", err)
	}
	defer rows.Close()

	records := []LookupRecord{}
	for rows.Next() {
		var (
			r     LookupRecord
			code  int64
			found int
			desc  sql.NullString
		)
		if err := rows.Scan(&r.ID, &code, &found, &desc, &r.Source, &r.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.Code = alert.Code(uint32(code))
		r.Found = found != 0
		r.Description = desc.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ctx, "list lookups", err)
	}
	return records, nil
}

// CountLookups returns the number of matching records.
func CountLookups(ctx context.Context, db *sql.DB, f LookupFilter) (int, error) {
	where, args := f.clause()
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lookups"+where, args...).Scan(&n); err != nil {
		return 0, wrapErr(ctx, "count lookups", err)
	}
	return n, nil
}

// PurgeLookups deletes history records. A nil olderThanDays deletes every
// record; otherwise only records created more than that many days ago go.
func PurgeLookups(ctx context.Context, db *sql.DB, olderThanDays *int) (int, error) {
	query := "DELETE FROM lookups"
	var args []any
	if olderThanDays != nil {
		cutoff := time.Now().AddDate(0, 0, -*olderThanDays).Unix()
		query += " WHERE created_at < ?"
		args = append(args, cutoff)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapErr(ctx, "purge lookups", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func (f LookupFilter) clause() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Code != nil {
		conds = append(conds, "code = ?")
		args = append(args, int64(*f.Code))
	}
	if f.FoundOnly {
		conds = append(conds, "found = 1")
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// wrapErr maps context expiry to CANCELLED and everything else to INTERNAL.
func wrapErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errors.NewCancelled(op)
	}
	return errors.NewInternal(err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
