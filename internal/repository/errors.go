package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Common repository errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
	ErrDependenciesUnmet = errors.New("task has uncompleted dependencies")
	ErrCounterExhausted  = errors.New("deal counter could not be advanced")
)

// IsDuplicateKeyError reports whether err comes from a unique constraint
// violation. GORM translates some drivers' errors; the SQLSTATE check
// covers the rest.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") || strings.Contains(msg, "duplicate key value")
}
