package export

import (
	"errors"
	"fmt"
)

// Kind classifies export failures.
type Kind uint8

const (
	NoInputLoaded Kind = iota + 1
	UnsupportedFormat
	EncoderFault
	AllocationFailure
	// Cancelled is a user abort, not a failure.
	Cancelled
)

var (
	ErrNoInputLoaded     = errors.New("no audio loaded")
	ErrUnsupportedFormat = errors.New("no supported container/codec combination")
	ErrEncoderFault      = errors.New("encoder failed")
	ErrAllocationFailure = errors.New("could not allocate render buffers")
	ErrCancelled         = errors.New("export cancelled")

	// ErrJobActive is returned when the asset already has a running export.
	ErrJobActive = errors.New("an export is already running for this audio")
)

func (k Kind) sentinel() error {
	switch k {
	case NoInputLoaded:
		return ErrNoInputLoaded
	case UnsupportedFormat:
		return ErrUnsupportedFormat
	case EncoderFault:
		return ErrEncoderFault
	case AllocationFailure:
		return ErrAllocationFailure
	case Cancelled:
		return ErrCancelled
	}
	return nil
}

func (k Kind) String() string {
	switch k {
	case NoInputLoaded:
		return "no input loaded"
	case UnsupportedFormat:
		return "unsupported format"
	case EncoderFault:
		return "encoder fault"
	case AllocationFailure:
		return "allocation failure"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the typed failure reported by the pipeline. errors.Is matches
// both the kind's sentinel and the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
