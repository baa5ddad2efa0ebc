package ceangal

import (
	"fmt"
	"reflect"
	"strings"
)

// RegistrationNotFoundError is returned when a requested contract type has
// no registration in the table.
type RegistrationNotFoundError struct {
	Type reflect.Type
}

func (e *RegistrationNotFoundError) Error() string {
	return fmt.Sprintf("no registration for type %v. Did you forget to register it with Bind()?", e.Type)
}

// UnresolvedDependencyError is returned when a constructor parameter's type
// cannot be resolved and the parameter declares no default value. It names
// both the parameter type and the implementation type under construction.
type UnresolvedDependencyError struct {
	ParameterType      reflect.Type
	ImplementationType reflect.Type
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("cannot resolve parameter of type %v while constructing %v",
		e.ParameterType, e.ImplementationType)
}

// InvalidRegistrationError is returned when a registration has invalid
// parameters, such as a malformed constructor function.
type InvalidRegistrationError struct {
	Reason string
}

func (e *InvalidRegistrationError) Error() string {
	return fmt.Sprintf("invalid registration: %s", e.Reason)
}

// CircularDependencyError indicates that a contract type was requested while
// already mid-resolution on the same call path.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

// ResolutionError is returned when instance resolution fails for a reason
// other than the typed cases above, or to attach contract context to an
// underlying cause.
type ResolutionError struct {
	Type    reflect.Type
	Name    string
	Context string
	Cause   error
}

func (e *ResolutionError) Error() string {
	typeStr := "unknown"
	if e.Type != nil {
		typeStr = e.Type.String()
	}

	var b strings.Builder
	b.WriteString("failed to resolve ")
	b.WriteString(typeStr)
	if e.Name != "" {
		fmt.Fprintf(&b, " (name=%s)", e.Name)
	}
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause error.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// ValidationError aggregates the problems found while validating the full
// registration graph.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", e.Errors[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %v\n", i+1, err)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error {
	return e.Errors
}
