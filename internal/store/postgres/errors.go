package postgres

import "github.com/jackc/pgx/v5"

// nilOnNoRows collapses pgx.ErrNoRows into a nil error so callers can
// express "not found" purely through the boolean return value.
func nilOnNoRows(err error) error {
	if err == pgx.ErrNoRows {
		return nil
	}
	return err
}
