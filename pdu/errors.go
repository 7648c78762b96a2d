package pdu

import (
	"errors"
	"strconv"
)

var (
	ErrTruncated       = errors.New("buffer truncated")
	ErrBadLength       = errors.New("malformed PDU length")
	ErrNoInheritSource = errors.New("inherited field has no previous PDU to inherit from")
	ErrNoMorePDUs      = errors.New("no more PDUs in block")
)

// ParseError is returned when a PDU cannot be parsed.
// It wraps one of the sentinel errors in this package, or one defined by a higher layer.
type ParseError struct {
	// Err is the kind of failure.
	Err error

	// Offset is the offset of the PDU in the buffer.
	Offset int

	// Message optionally describes the failure in detail.
	Message string
}

// NewParseError returns a new [*ParseError].
func NewParseError(err error, offset int, message string) *ParseError {
	return &ParseError{
		Err:     err,
		Offset:  offset,
		Message: message,
	}
}

func (e *ParseError) Error() string {
	b := make([]byte, 0, 64)
	b = append(b, "PDU at offset "...)
	b = strconv.AppendInt(b, int64(e.Offset), 10)
	b = append(b, ": "...)
	b = append(b, e.Err.Error()...)
	if e.Message != "" {
		b = append(b, ": "...)
		b = append(b, e.Message...)
	}
	return string(b)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
