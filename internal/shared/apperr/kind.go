// Package apperr classifies errors into the host's failure taxonomy.
//
// Packages keep their own sentinel errors; they register them here with a
// Kind so the HTTP and websocket layers can choose a status code and a
// severity without importing every package.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a failure category
type Kind int

const (
	KindUnknown Kind = iota
	// KindCapability: feature unsupported on this OS or missing external tool
	KindCapability
	// KindValidation: malformed or unsafe input, rejected before any I/O
	KindValidation
	// KindResolution: target could not be found, even after fallbacks
	KindResolution
	// KindTransient: network failure against an optional collaborator
	KindTransient
	// KindProcess: spawn or startup failure
	KindProcess
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindCapability:
		return "capability"
	case KindValidation:
		return "validation"
	case KindResolution:
		return "resolution"
	case KindTransient:
		return "transient"
	case KindProcess:
		return "process"
	default:
		return "unknown"
	}
}

// Error attaches a Kind to an underlying error
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind; nil stays nil
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Sentinel creates a kinded sentinel error
func Sentinel(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// KindOf returns the outermost Kind in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error onto a response status
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindResolution:
		return http.StatusNotFound
	case KindCapability:
		return http.StatusNotImplemented
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Warning reports whether the error should surface as a warning rather
// than an error. Capability failures leave the host fully usable.
func Warning(err error) bool {
	k := KindOf(err)
	return k == KindCapability || k == KindTransient
}
