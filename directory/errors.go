package directory

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Sentinel errors returned by RecordStore implementations.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordExists   = errors.New("record already exists")
	ErrStaleRating    = errors.New("rating changed concurrently")
)

func badRequest(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).WithCode(goerrors.CodeBadRequest)
}

func invalid(err error, message string) error {
	return goerrors.FromOzzoValidation(err, message).WithCode(goerrors.CodeBadRequest)
}

func notFound(name string) error {
	return goerrors.Wrap(ErrRecordNotFound, goerrors.CategoryNotFound, "record "+name+" not found").
		WithCode(goerrors.CodeNotFound)
}

func conflict(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryConflict, message).WithCode(goerrors.CodeConflict)
}

func internal(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, message).WithCode(goerrors.CodeInternal)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsConflict reports whether err means the operation collided with existing state.
func IsConflict(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryConflict)
}

// IsBadRequest reports whether err was caused by invalid input.
func IsBadRequest(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryBadInput) || goerrors.IsValidation(err)
}
