package analyses

import (
	"errors"
	"strconv"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Failure reasons recorded in metrics.
const (
	reasonUpstream = "upstream"
	reasonLimit    = "limit_reached"
	reasonInput    = "invalid_input"
	reasonStorage  = "storage"
	reasonInternal = "internal"
)

// InputError describes a rejected request field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, message string) error {
	return &InputError{Field: field, Message: message}
}

func formatRowID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
