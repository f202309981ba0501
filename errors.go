// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstream

import (
	"errors"
	"fmt"
)

// Error values reported by readers and writers. Errors carrying context
// wrap one of these sentinels, so callers can dispatch on the kind of
// failure with errors.Is rather than inspecting message strings.
var (
	// ErrClosed: an operation was attempted after the stream was closed.
	ErrClosed = errors.New("stream is closed")

	// ErrNesting: a structural call was made in a scope that cannot
	// accept it, for example ending an array inside an object.
	ErrNesting = errors.New("nesting problem")

	// ErrDanglingName: an object member name was set but never paired
	// with a value before the next structural transition.
	ErrDanglingName = errors.New("dangling name")

	// ErrStrictMode: a JSON5-only construct was used while strict JSON
	// was in effect.
	ErrStrictMode = errors.New("not permitted in strict mode")

	// ErrNonFiniteNumber: a NaN or infinite numeric value was written
	// while strict JSON was in effect.
	ErrNonFiniteNumber = errors.New("non-finite number")

	// ErrTypeMismatch: the next token does not have the kind the caller
	// asked to consume.
	ErrTypeMismatch = errors.New("token type mismatch")

	// ErrMalformedLiteral: an unterminated string, invalid escape, or
	// invalid number token was found in the input.
	ErrMalformedLiteral = errors.New("malformed literal")

	// ErrIncompleteDocument: the stream ended before exactly one complete
	// top-level value was written or read.
	ErrIncompleteDocument = errors.New("incomplete document")
)

// SyntaxError is the concrete type of structural and lexical errors
// reported by a Reader. It records the location of the offending token.
// Its Unwrap method exposes the error kind, so errors.Is works against
// the sentinels above.
type SyntaxError struct {
	Location LineCol
	Message  string

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at %s: %s", s.Location, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }
