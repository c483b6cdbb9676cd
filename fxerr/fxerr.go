// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package fxerr implements the structured error taxonomy shared
// across the engine, so callers can recover the error Kind with
// errors.As instead of matching on message text.
package fxerr

import (
	"errors"
	"fmt"
)

// Kind tags the category of a structured Error, following the
// taxonomy in spec section 7.
type Kind uint8

const (
	_ Kind = iota

	// Ingest kinds.
	OutOfOrderIngest
	SchemaConflict
	InvalidTimestamp
	TimestampWithTimezone

	// Query kinds.
	ParseError
	UnknownAttribute
	TypeMismatch
	AttributeKindAmbiguous
	CyclicBinding
	UnknownAggregate
	EmptyWindow

	// Runtime kinds.
	DivisionByZero
	Overflow
	Cancelled

	// Internal kinds.
	EncodingRoundTripFailed
)

func (k Kind) String() string {
	switch k {
	case OutOfOrderIngest:
		return "OutOfOrderIngest"
	case SchemaConflict:
		return "SchemaConflict"
	case InvalidTimestamp:
		return "InvalidTimestamp"
	case TimestampWithTimezone:
		return "TimestampWithTimezone"
	case ParseError:
		return "ParseError"
	case UnknownAttribute:
		return "UnknownAttribute"
	case TypeMismatch:
		return "TypeMismatch"
	case AttributeKindAmbiguous:
		return "AttributeKindAmbiguous"
	case CyclicBinding:
		return "CyclicBinding"
	case UnknownAggregate:
		return "UnknownAggregate"
	case EmptyWindow:
		return "EmptyWindow"
	case DivisionByZero:
		return "DivisionByZero"
	case Overflow:
		return "Overflow"
	case Cancelled:
		return "Cancelled"
	case EncodingRoundTripFailed:
		return "EncodingRoundTripFailed"
	default:
		return fmt.Sprintf("<Kind=%d>", uint8(k))
	}
}

// Error is a structured, kind-tagged error. It wraps an optional
// underlying cause so errors.Is/errors.As continue to work through
// fmt.Errorf("...: %w", ...) chains.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a new structured error with no cause.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

// Newf is like New but with printf-style formatting.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an existing error.
func Wrap(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Msg: msg, Err: cause}
}

// Is reports whether err is a structured Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
