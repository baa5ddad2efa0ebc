package ceangal

import (
	"reflect"

	"github.com/toutaio/toutago-ceangal-service-resolver/registry"
)

// CallSiteProvider supplies call sites for dependency types during
// resolution. The container implements it; CreateCallSite calls back into
// it for every constructor parameter.
//
// CallSiteFor returns (nil, nil) when no registration exists for the type.
// Cycle bookkeeping, pushing and popping the currently-resolving type on
// the stack, is the provider's responsibility; CreateCallSite only
// forwards the stack it was given.
type CallSiteProvider interface {
	CallSiteFor(t reflect.Type, stack *ResolutionStack) (CallSite, error)
}

// ResolutionStack tracks the contract types mid-resolution on the active
// call path. Each resolution request owns its own stack; it is threaded
// through recursive calls by reference and must never be shared between
// unrelated resolutions. It exists purely for cycle detection, never for
// caching.
type ResolutionStack struct {
	frames []reflect.Type
}

// NewResolutionStack creates an empty stack for one resolution request.
func NewResolutionStack() *ResolutionStack {
	return &ResolutionStack{}
}

// Contains reports whether the type is already being resolved on this path.
func (s *ResolutionStack) Contains(t reflect.Type) bool {
	for _, f := range s.frames {
		if f == t {
			return true
		}
	}
	return false
}

// Push records a type as mid-resolution.
func (s *ResolutionStack) Push(t reflect.Type) {
	s.frames = append(s.frames, t)
}

// Pop removes the most recently pushed type.
func (s *ResolutionStack) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Path returns the in-order type names of the active path, for error
// reporting.
func (s *ResolutionStack) Path() []string {
	path := make([]string, len(s.frames))
	for i, f := range s.frames {
		path[i] = f.String()
	}
	return path
}

// CreateCallSite decides how the given registration gets instantiated and
// returns the execution plan. The plan is built bottom-up: every parameter
// plan is resolved before the constructor plan over them exists.
//
// Selection is deliberately provisional: with exactly one injectable
// constructor that constructor is used; with zero or several the plan falls
// back to default construction, regardless of whether any candidate's
// parameters would have resolved. There is no next-best-constructor retry.
func CreateCallSite(reg *registry.Registration, provider CallSiteProvider, stack *ResolutionStack) (CallSite, error) {
	if reg.Instance != nil {
		return newConstantCallSite(reg.Instance, reg.ContractType), nil
	}

	candidates := injectableConstructors(reg)
	if len(candidates) != 1 {
		return &defaultConstructCallSite{implType: reg.ConcreteType}, nil
	}

	ci := candidates[0]
	args := make([]CallSite, ci.numParams)
	for i, paramType := range ci.paramTypes {
		cs, err := provider.CallSiteFor(paramType, stack)
		if err != nil {
			return nil, err
		}
		if cs == nil {
			def, ok := ci.defaults[i]
			if !ok {
				return nil, &UnresolvedDependencyError{
					ParameterType:      paramType,
					ImplementationType: implementationType(reg, ci),
				}
			}
			args[i] = newConstantCallSite(def, paramType)
			continue
		}
		args[i] = cs
	}

	return &constructorCallSite{ctor: ci, args: args}, nil
}

// injectableConstructors filters the registration's candidates to the ones
// eligible for dependency-driven selection: accessible and declaring at
// least one parameter. Zero-parameter constructors are never selected here;
// they are covered by the default-construct fallback.
func injectableConstructors(reg *registry.Registration) []*constructorInfo {
	var out []*constructorInfo
	for _, raw := range reg.Constructors {
		ci, ok := raw.(*constructorInfo)
		if !ok {
			continue
		}
		if ci.numParams == 0 || !ci.accessible {
			continue
		}
		out = append(out, ci)
	}
	return out
}

// implementationType names the type under construction for error reporting.
func implementationType(reg *registry.Registration, ci *constructorInfo) reflect.Type {
	if reg.ConcreteType != nil {
		return reg.ConcreteType
	}
	return ci.returnType
}
