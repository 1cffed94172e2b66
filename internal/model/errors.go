package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every input rejection.
	ErrValidation      = errors.New("validation error")
	ErrInvalidCategory = fmt.Errorf("%w: category is required", ErrValidation)
	ErrUnsafeFilename  = fmt.Errorf("%w: unsafe filename", ErrValidation)
	ErrInvalidID       = fmt.Errorf("%w: invalid document id", ErrValidation)

	ErrNotFound = errors.New("not found")

	// ErrIO marks file store failures.
	ErrIO = errors.New("file store error")
	// ErrStorage marks relational registry failures.
	ErrStorage = errors.New("registry error")
)
