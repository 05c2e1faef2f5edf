package mossgarden

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ValidationError ErrorKind = "validation"
	ProximityError  ErrorKind = "proximity"
	StateError      ErrorKind = "state"
	DependencyError ErrorKind = "dependency"
)

// Fault is an error with a Kind from our taxonomy and a fixed Reason.
// Two Faults match under errors.Is when Kind and Reason are equal, so a sentinel Fault
// matches any Fault wrapping a collaborator error under the same Reason.
type Fault struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func NewFault(kind ErrorKind, reason string) *Fault {
	return &Fault{Kind: kind, Reason: reason}
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %s", f.Kind, f.Reason, f.Err.Error())
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && t.Reason == f.Reason
}

// Wrap returns a copy of f that carries err as its cause.
func (f *Fault) Wrap(err error) *Fault {
	return &Fault{Kind: f.Kind, Reason: f.Reason, Err: err}
}

// KindOf returns the ErrorKind of the first Fault in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
