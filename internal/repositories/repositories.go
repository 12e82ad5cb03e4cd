package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/plx/internal/shared"
)

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// requireAffected turns an update or delete that touched no rows into [shared.ErrTokenNotFound].
func requireAffected(result sql.Result, what, key string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrTokenNotFound, what, key)
	}
	return nil
}

// nullTime stores the zero time as NULL and everything else in UTC, so stored values compare as text.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
