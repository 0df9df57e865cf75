package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jakechorley/fleet-ops/pkg/db"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeExclusionViolation  = "23P01"
)

// constraintResources maps the shift booking constraints to the resource they protect
var constraintResources = map[string]string{
	"shift_bus_no_overlap":        "bus",
	"shift_driver_one_per_day":    "driver",
	"shift_driver_pkey":           "driver",
	"shift_driver_one_principal":  "driver",
	"shift_assistant_one_per_day": "assistant",
	"shift_assistant_pkey":        "assistant",
}

// constraintColumns names the key column holding the conflicting resource's id
var constraintColumns = map[string]string{
	"bus":       "bus_id",
	"driver":    "driver_id",
	"assistant": "assistant_id",
}

// mapError converts booking constraint violations into *db.ConstraintError
// and missing rows into db.ErrNotFound. Other errors are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeExclusionViolation, codeUniqueViolation:
		if resource, ok := constraintResources[pgErr.ConstraintName]; ok {
			return &db.ConstraintError{
				Resource:   resource,
				ResourceID: keyValue(pgErr.Detail, constraintColumns[resource]),
				Detail:     pgErr.Detail,
			}
		}
	case codeForeignKeyViolation:
		return db.ErrNotFound
	}
	return err
}

// keyValue extracts column's value from a violation detail such as
// "Key (driver_id, shift_date)=(d1, 2025-03-10) already exists."
func keyValue(detail, column string) string {
	rest, ok := strings.CutPrefix(detail, "Key (")
	if !ok {
		return ""
	}
	columns, values, ok := strings.Cut(rest, ")=(")
	if !ok {
		return ""
	}

	names := splitKey(columns)
	vals := splitKey(values)
	for i, name := range names {
		if name == column && i < len(vals) {
			return vals[i]
		}
	}
	return ""
}

// splitKey splits a key list on top-level commas, stopping at the first
// unbalanced closing parenthesis
func splitKey(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth == 0 {
				return append(parts, strings.TrimSpace(s[start:i]))
			}
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
