package utils

import (
	"errors"
	"fmt"
)

var (
	ErrUploadNotFound  = errors.New("uploaded object not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrStorageFailure  = errors.New("storage backend failure")
	ErrUnknownResource = errors.New("unknown resource class")
	ErrDuplicateJob    = errors.New("rendition job already exists for asset")
	ErrUnknownBackend  = errors.New("unsupported rendition backend")
)

// ValidationError marks a client-fixable request problem; handlers map it
// to a 400 with the message intact.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
