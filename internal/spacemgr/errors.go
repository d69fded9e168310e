package spacemgr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a rejected request.
type ErrorKind int

const (
	KindInvalidCount ErrorKind = iota + 1
	KindOutOfRange
	KindAlreadyAllocated
	KindDoubleFree
	KindInvalidCapacity
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCount:
		return "InvalidCount"
	case KindOutOfRange:
		return "OutOfRange"
	case KindAlreadyAllocated:
		return "AlreadyAllocated"
	case KindDoubleFree:
		return "DoubleFree"
	case KindInvalidCapacity:
		return "InvalidCapacity"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	ErrInvalidCount     = &AllocError{Kind: KindInvalidCount}
	ErrOutOfRange       = &AllocError{Kind: KindOutOfRange}
	ErrAlreadyAllocated = &AllocError{Kind: KindAlreadyAllocated}
	ErrDoubleFree       = &AllocError{Kind: KindDoubleFree}
	ErrInvalidCapacity  = &AllocError{Kind: KindInvalidCapacity}
)

// AllocError is returned for every rejected Allocate, Deallocate or Reset.
// errors.Is matches on Kind, so callers compare against the Err* sentinels.
type AllocError struct {
	Kind  ErrorKind
	Start int
	Count int
}

func (e *AllocError) Error() string {
	switch e.Kind {
	case KindInvalidCount:
		return fmt.Sprintf("invalid block count %d", e.Count)
	case KindOutOfRange:
		return fmt.Sprintf("range of %d blocks at %d is out of bounds", e.Count, e.Start)
	case KindAlreadyAllocated:
		return fmt.Sprintf("range [%d, %d) is already allocated", e.Start, e.Start+e.Count)
	case KindDoubleFree:
		return fmt.Sprintf("range [%d, %d) is already free (double free?)", e.Start, e.Start+e.Count)
	case KindInvalidCapacity:
		return fmt.Sprintf("invalid capacity %d (must be in [0, %d])", e.Count, MaxCapacity)
	default:
		return e.Kind.String()
	}
}

func (e *AllocError) Is(target error) bool {
	if targetErr, ok := target.(*AllocError); ok {
		return e.Kind == targetErr.Kind
	}
	return false
}

// KindOf returns the kind of err if it wraps an *AllocError, or 0.
func KindOf(err error) ErrorKind {
	var allocErr *AllocError
	if errors.As(err, &allocErr) {
		return allocErr.Kind
	}
	return 0
}

// InvariantError lists every invariant violation found by Verify.
type InvariantError struct {
	Violations []string
}

func (e *InvariantError) Error() string {
	if len(e.Violations) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("space manager invariants violated:\n")
	for _, v := range e.Violations {
		builder.WriteString("  ")
		builder.WriteString(v)
		builder.WriteString("\n")
	}
	return builder.String()
}

func (e *InvariantError) add(format string, args ...any) {
	e.Violations = append(e.Violations, fmt.Sprintf(format, args...))
}

func (e *InvariantError) HasViolations() bool {
	return len(e.Violations) > 0
}
