package repositories

import (
	"errors"
	"fmt"

	"foodorder/internal/apperr"

	"gorm.io/gorm"
)

// dbError maps a storage failure into the error taxonomy. A missing row is NotFound;
// anything else means the database could not serve the request.
func dbError(err error, entity, id, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %s not found", entity, id)
	}
	return apperr.Upstream("database", fmt.Errorf("failed to %s %s %s: %w", op, entity, id, err))
}
