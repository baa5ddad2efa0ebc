package ceangal

import (
	"reflect"

	"github.com/toutaio/toutago-ceangal-service-resolver/registry"
)

// Lifetime represents the lifecycle policy tagged onto a registration.
type Lifetime string

const (
	// LifetimeTransient creates a new instance on every resolution.
	// This is the default for Bind() and BindConstructor().
	LifetimeTransient Lifetime = "transient"

	// LifetimeSingleton creates a single instance reused for all
	// resolutions. Creation is lazy and guarded by sync.Once.
	LifetimeSingleton Lifetime = "singleton"

	// LifetimeScoped creates one instance per scope. Scoped registrations
	// must be resolved through Scope.Make, never the root container.
	LifetimeScoped Lifetime = "scoped"
)

// String returns the string representation of the lifetime.
func (l Lifetime) String() string {
	return string(l)
}

// The resolver core produces lifetime-free plans; applying a caching policy
// around them is the container's job. The wrappers below decorate a
// resolver-built call site with the registration's lifetime so that a plan
// embedded as someone else's constructor argument still honors it. They
// delegate Kind, ResultType and Args to the wrapped plan.

// transientCallSite is a pass-through that runs post-construction hooks
// (Initializable, auto-wiring) on every produced instance.
type transientCallSite struct {
	c     *Ceangal
	reg   *registry.Registration
	inner CallSite
}

func (t *transientCallSite) Kind() CallSiteKind       { return t.inner.Kind() }
func (t *transientCallSite) ResultType() reflect.Type { return t.inner.ResultType() }
func (t *transientCallSite) Args() []CallSite         { return t.inner.Args() }

func (t *transientCallSite) Invoke(scope *Scope) (interface{}, error) {
	instance, err := t.inner.Invoke(scope)
	if err != nil {
		return nil, err
	}
	if err := t.c.finishInstance(t.reg, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

func (t *transientCallSite) Build() Accessor {
	acc := t.inner.Build()
	c, reg := t.c, t.reg
	return func(scope *Scope) (interface{}, error) {
		instance, err := acc(scope)
		if err != nil {
			return nil, err
		}
		if err := c.finishInstance(reg, instance); err != nil {
			return nil, err
		}
		return instance, nil
	}
}

// sharedCallSite caches the first produced instance in the container's
// singleton cache, keyed by registration identity.
type sharedCallSite struct {
	c     *Ceangal
	reg   *registry.Registration
	inner CallSite
}

func (s *sharedCallSite) Kind() CallSiteKind       { return s.inner.Kind() }
func (s *sharedCallSite) ResultType() reflect.Type { return s.inner.ResultType() }
func (s *sharedCallSite) Args() []CallSite         { return s.inner.Args() }

func (s *sharedCallSite) Invoke(scope *Scope) (interface{}, error) {
	return s.c.singletons.getOrCreate(s.reg, func() (interface{}, error) {
		instance, err := s.inner.Invoke(scope)
		if err != nil {
			return nil, err
		}
		if err := s.c.finishInstance(s.reg, instance); err != nil {
			return nil, err
		}
		return instance, nil
	})
}

func (s *sharedCallSite) Build() Accessor {
	acc := s.inner.Build()
	c, reg := s.c, s.reg
	return func(scope *Scope) (interface{}, error) {
		return c.singletons.getOrCreate(reg, func() (interface{}, error) {
			instance, err := acc(scope)
			if err != nil {
				return nil, err
			}
			if err := c.finishInstance(reg, instance); err != nil {
				return nil, err
			}
			return instance, nil
		})
	}
}

// scopedCallSite caches one instance per scope. Executing it against the
// root scope is an error: scoped services only exist inside a created scope.
type scopedCallSite struct {
	c     *Ceangal
	reg   *registry.Registration
	inner CallSite
}

func (s *scopedCallSite) Kind() CallSiteKind       { return s.inner.Kind() }
func (s *scopedCallSite) ResultType() reflect.Type { return s.inner.ResultType() }
func (s *scopedCallSite) Args() []CallSite         { return s.inner.Args() }

func (s *scopedCallSite) Invoke(scope *Scope) (interface{}, error) {
	if scope == nil || scope.isRoot {
		return nil, &ResolutionError{
			Type:    s.reg.ContractType,
			Context: "scoped registration must be resolved through Scope.Make",
		}
	}
	return scope.getOrCreate(s.reg, func() (interface{}, error) {
		instance, err := s.inner.Invoke(scope)
		if err != nil {
			return nil, err
		}
		if err := s.c.finishInstance(s.reg, instance); err != nil {
			return nil, err
		}
		return instance, nil
	})
}

func (s *scopedCallSite) Build() Accessor {
	acc := s.inner.Build()
	c, reg := s.c, s.reg
	return func(scope *Scope) (interface{}, error) {
		if scope == nil || scope.isRoot {
			return nil, &ResolutionError{
				Type:    reg.ContractType,
				Context: "scoped registration must be resolved through Scope.Make",
			}
		}
		return scope.getOrCreate(reg, func() (interface{}, error) {
			instance, err := acc(scope)
			if err != nil {
				return nil, err
			}
			if err := c.finishInstance(reg, instance); err != nil {
				return nil, err
			}
			return instance, nil
		})
	}
}

// withLifetime decorates a resolver-built plan with the registration's
// lifetime policy. Constant plans are returned untouched: a preexisting
// instance needs neither caching nor post-construction hooks.
func (c *Ceangal) withLifetime(reg *registry.Registration, cs CallSite) CallSite {
	if cs.Kind() == KindConstant {
		return cs
	}
	switch Lifetime(reg.Lifetime) {
	case LifetimeSingleton:
		return &sharedCallSite{c: c, reg: reg, inner: cs}
	case LifetimeScoped:
		return &scopedCallSite{c: c, reg: reg, inner: cs}
	default:
		return &transientCallSite{c: c, reg: reg, inner: cs}
	}
}
