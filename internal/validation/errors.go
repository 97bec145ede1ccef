// Package validation defines the error kinds reported while loading and
// checking a policy document.
package validation

import (
	"errors"
	"fmt"
)

// Kind classifies a validation failure.
type Kind string

const (
	// KindIO is a required document that could not be found or read.
	KindIO Kind = "io"
	// KindSyntax is a document that is not well formed.
	KindSyntax Kind = "syntax"
	// KindType is a field with the wrong shape.
	KindType Kind = "type"
	// KindValue is a field of the right shape holding a value outside its
	// domain, or a reference to something that is not defined.
	KindValue Kind = "value"
	// KindKey is a key that is not permitted where it appears.
	KindKey Kind = "key"
	// KindInvalidFilter is a filter whose fields contradict each other.
	KindInvalidFilter Kind = "invalid_filter"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrIO            = &Error{Kind: KindIO}
	ErrSyntax        = &Error{Kind: KindSyntax}
	ErrType          = &Error{Kind: KindType}
	ErrValue         = &Error{Kind: KindValue}
	ErrKey           = &Error{Kind: KindKey}
	ErrInvalidFilter = &Error{Kind: KindInvalidFilter}
)

// Error is a policy validation failure.
type Error struct {
	Kind Kind
	// Path locates the offending value, e.g. "configs.release.filter".
	Path string
	// Line is the 1-based line in the source document, 0 when unknown.
	Line int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	loc := e.Path
	if e.Line > 0 {
		if loc == "" {
			loc = fmt.Sprintf("line %d", e.Line)
		} else {
			loc = fmt.Sprintf("%s (line %d)", loc, e.Line)
		}
	}

	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}

	if loc == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Kind, loc, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any target *Error of the same kind, so callers can write
// errors.Is(err, validation.ErrKey).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

// Typef builds a KindType error.
func Typef(path string, line int, format string, args ...any) *Error {
	return &Error{Kind: KindType, Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Valuef builds a KindValue error.
func Valuef(path string, line int, format string, args ...any) *Error {
	return &Error{Kind: KindValue, Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Keyf builds a KindKey error.
func Keyf(path string, line int, format string, args ...any) *Error {
	return &Error{Kind: KindKey, Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// InvalidFilterf builds a KindInvalidFilter error.
func InvalidFilterf(path string, line int, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidFilter, Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
}
