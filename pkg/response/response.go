package response

import (
	"errors"
)

// Error carries the HTTP status and a machine readable kind that clients
// switch on.
type Error struct {
	Code int
	Kind string
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}

func NewKindError(code int, kind string, err string) error {
	return &Error{Code: code, Kind: kind, Err: errors.New(err)}
}

// KindOf returns the kind of the first *Error in err's chain, or fallback.
func KindOf(err error, fallback string) string {
	var respErr *Error
	if errors.As(err, &respErr) && respErr.Kind != "" {
		return respErr.Kind
	}
	return fallback
}
