package container

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies container failures.
type ErrorCode uint8

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeServiceNotFound
	ErrCodeCircularResolution
	ErrCodeServiceConstructionFailed
	ErrCodeContainerCreationFailed
	ErrCodeInvalidBootstrapStep
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                   "UNKNOWN",
	ErrCodeServiceNotFound:           "SERVICE_NOT_FOUND",
	ErrCodeCircularResolution:        "CIRCULAR_RESOLUTION",
	ErrCodeServiceConstructionFailed: "SERVICE_CONSTRUCTION_FAILED",
	ErrCodeContainerCreationFailed:   "CONTAINER_CREATION_FAILED",
	ErrCodeInvalidBootstrapStep:      "INVALID_BOOTSTRAP_STEP",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error is the single error type raised by the container, the registry, the
// service locator and the bootstrap invoker.
type Error struct {
	Code    ErrorCode
	Service string // service name, class or identity the error is about
	Message string
	Hints   []string // other containers that hold Service
	Chain   []string // resolution chain for circular failures
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("container: ")
	b.WriteString(e.Message)
	for _, h := range e.Hints {
		fmt.Fprintf(&b, ", however, a service with the same name exists in %q", h)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus is the status an application should answer with when this error
// reaches the top level.
func (e *Error) HTTPStatus() int {
	if e.Code == ErrCodeServiceNotFound {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func newError(code ErrorCode, service, message string, cause error) *Error {
	return &Error{Code: code, Service: service, Message: message, Err: cause}
}

func errServiceNotFound(name, in string, hints []string) *Error {
	e := newError(ErrCodeServiceNotFound, name,
		fmt.Sprintf("the service %q does not exist in %q", name, in), nil)
	e.Hints = hints
	return e
}

func errCircularResolution(chain []string) *Error {
	e := newError(ErrCodeCircularResolution, chain[len(chain)-1],
		fmt.Sprintf("circular resolution: %s", strings.Join(chain, " -> ")), nil)
	e.Chain = chain
	return e
}

// ServiceConstructionFailed wraps a failure to build class.
func ServiceConstructionFailed(class string, cause error) *Error {
	return newError(ErrCodeServiceConstructionFailed, class,
		fmt.Sprintf("could not construct %q", class), cause)
}

// ContainerCreationFailed wraps a registry-level construction failure.
func ContainerCreationFailed(identity, factory string, cause error) *Error {
	return newError(ErrCodeContainerCreationFailed, identity,
		fmt.Sprintf("could not get %q from %q", factory, identity), cause)
}

// InvalidBootstrapStep reports a bootstrap step that cannot be invoked.
func InvalidBootstrapStep(step string, cause error) *Error {
	return newError(ErrCodeInvalidBootstrapStep, step,
		fmt.Sprintf("bootstrap step %q cannot be invoked", step), cause)
}

// hasCode walks every *Error in err's chain, so a wrapped not-found still
// reports as not-found.
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

func IsNotFound(err error) bool             { return hasCode(err, ErrCodeServiceNotFound) }
func IsCircular(err error) bool             { return hasCode(err, ErrCodeCircularResolution) }
func IsConstructionFailed(err error) bool   { return hasCode(err, ErrCodeServiceConstructionFailed) }
func IsCreationFailed(err error) bool       { return hasCode(err, ErrCodeContainerCreationFailed) }
func IsInvalidBootstrapStep(err error) bool { return hasCode(err, ErrCodeInvalidBootstrapStep) }
