package db

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
)

// Lookup converts the error of a single-row query: a missing row becomes a
// not-found error with notFound as its message, anything else is internal.
func Lookup(err error, op, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal(op, err)
}

// Write converts the error of an insert or update: unique violations become
// a conflict with conflict as its message.
func Write(err error, op, conflict string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(conflict)
	}
	return apperr.Internal(op, err)
}

// Wrap passes app errors through unchanged and marks anything else internal.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(op, err)
}
