package repository

import (
	"database/sql"
	"fmt"
)

// requireRow converts a zero-row exec result into sql.ErrNoRows so services
// can map it to a not-found error.
func requireRow(result sql.Result, entity, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s rows affected: %w", entity, id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
