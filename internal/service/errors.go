package service

import (
	"errors"

	domainerrors "github.com/listenupapp/saveable/internal/errors"
	"github.com/listenupapp/saveable/internal/store"
)

// translate converts store sentinels into domain errors, keeping the store
// error in the chain so errors.Is still matches it.
func translate(err error) error {
	var se *store.Error
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrDuplicateSave):
		return domainerrors.Wrap(err, domainerrors.CodeConflict, "save already exists")
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.Wrap(err, domainerrors.CodeNotFound, se.Message)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Wrap(err, domainerrors.CodeAlreadyExists, se.Message)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeValidation, se.Message)
	default:
		return err
	}
}
