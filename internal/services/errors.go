package services

import (
	"errors"
	"fmt"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/repository"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrTooLarge     = errors.New("payload too large")
	ErrNotFound     = repository.ErrNotFound
	ErrConflict     = repository.ErrConflict
)

// Error carries a client facing message next to the sentinel it classifies as.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func Fail(kind error, msg string) error { return &Error{Kind: kind, Msg: msg} }

func Failf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// notFound keeps store failures intact and renames a missing row.
func notFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return Fail(ErrNotFound, msg)
	}
	return err
}

func transition(entity string, from, to string) error {
	return &Error{Kind: ErrInvalidState, Msg: (&models.TransitionError{Entity: entity, From: from, To: to}).Error()}
}
