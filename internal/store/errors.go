package store

import (
	"github.com/pkg/errors"

	"github.com/rcliao/reasoning-memory/internal/model"
)

// ErrInvalidInput is matched by every caller-input error returned by a Store.
var ErrInvalidInput = errors.New("invalid input")

// Caller-input errors. Each satisfies errors.Is(err, ErrInvalidInput).
var (
	ErrEmptyContent      = inputError("content must not be empty")
	ErrInvalidPriority   = inputError("priority must be within [0,1]")
	ErrInvalidMaxResults = inputError("max results out of range")
	ErrInvalidRelevance  = inputError("min relevance must be within [0,1]")
	ErrInvalidTarget     = inputError("efficiency target must be within [0,1]")
	ErrInvalidSnapshot   = inputError("invalid snapshot")

	// ErrInvalidContext is returned for context values of unsupported kinds or beyond limits.
	ErrInvalidContext = model.ErrInvalidContext
)

type inputErr struct{ msg string }

func inputError(msg string) error { return &inputErr{msg: msg} }

func (e *inputErr) Error() string { return e.msg }

func (e *inputErr) Is(target error) bool { return target == ErrInvalidInput }

// wrappedInput marks an error from another package as caller input.
type wrappedInput struct{ err error }

func invalidInput(err error) error { return &wrappedInput{err: err} }

func (e *wrappedInput) Error() string { return e.err.Error() }

func (e *wrappedInput) Unwrap() error { return e.err }

func (e *wrappedInput) Is(target error) bool { return target == ErrInvalidInput }
