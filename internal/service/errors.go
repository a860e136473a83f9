package service

import (
	"errors"

	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/store"
	"github.com/amarpathagar/pathagar-server/internal/validation"
)

// validate is a shared validator instance for request validation.
var validate = validation.New()

// mapStoreErr converts persistence errors into domain errors. Domain errors
// and unknown infrastructure errors pass through unchanged.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	var storeErr *store.Error
	if !errors.As(err, &storeErr) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrConcurrentModification):
		return domainerrors.Wrap(err, domainerrors.CodeConflict, "the record was changed by someone else, reload and try again")
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.Wrap(err, domainerrors.CodeNotFound, storeErr.Message)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Wrap(err, domainerrors.CodeAlreadyExists, storeErr.Message)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeValidation, storeErr.Message)
	default:
		return err
	}
}

// notFound turns a store miss into a NotFound with the given message.
func notFound(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound(msg).WithCause(err)
	}
	return err
}
