package service

import (
	"errors"

	"github.com/iliyamo/warnet-bowar/internal/repository"
)

// Service-level failures.  Handlers map them to HTTP statuses with
// errors.Is; ErrValidation is always wrapped with the offending detail.
var (
	ErrValidation          = errors.New("validation failed")
	ErrCancelWindowExpired = errors.New("cancellation window expired")
	ErrInvalidState        = errors.New("invalid state for this operation")
	ErrUnavailable         = errors.New("pc unavailable")
)

// Re-exported so callers need not import the repository package.
var (
	ErrNotFound            = repository.ErrNotFound
	ErrForbidden           = repository.ErrForbidden
	ErrConflict            = repository.ErrConflict
	ErrInsufficientBalance = repository.ErrInsufficientBalance
)
