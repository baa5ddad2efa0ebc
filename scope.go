package ceangal

import (
	"fmt"
	"sync"

	"github.com/toutaio/toutago-ceangal-service-resolver/registry"
)

// Disposable represents a service that requires cleanup. Instances created
// inside a scope have Dispose called when the scope is disposed.
type Disposable interface {
	Dispose() error
}

// Initializable represents a service that requires a setup step. Initialize
// is called once, right after the container constructs the instance.
type Initializable interface {
	Initialize() error
}

// Scope is an isolated resolution context. Scoped registrations produce one
// instance per scope, which makes request-scoped or transaction-scoped
// services possible.
//
// Example:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
//	uow := scope.Make((*UnitOfWork)(nil)).(UnitOfWork)
type Scope struct {
	parent        *Ceangal
	isRoot        bool
	mu            sync.Mutex
	instances     map[*registry.Registration]*scopedInstance
	creationOrder []interface{}
	children      []*Scope
	disposed      bool
}

// scopedInstance holds one scope-cached value, created at most once.
type scopedInstance struct {
	value interface{}
	err   error
	once  sync.Once
}

func newScope(parent *Ceangal, isRoot bool) *Scope {
	return &Scope{
		parent:    parent,
		isRoot:    isRoot,
		instances: make(map[*registry.Registration]*scopedInstance),
	}
}

// getOrCreate returns the scope-cached instance for the registration,
// creating and recording it on first use. The factory runs outside the
// scope lock, so a scoped service may depend on another scoped service.
// Creation order is tracked so disposal can run in reverse.
func (s *Scope) getOrCreate(reg *registry.Registration, factory func() (interface{}, error)) (interface{}, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, fmt.Errorf("cannot resolve from disposed scope")
	}
	slot, ok := s.instances[reg]
	if !ok {
		slot = &scopedInstance{}
		s.instances[reg] = slot
	}
	s.mu.Unlock()

	slot.once.Do(func() {
		slot.value, slot.err = factory()
		if slot.err == nil {
			s.mu.Lock()
			s.creationOrder = append(s.creationOrder, slot.value)
			s.mu.Unlock()
		}
	})
	return slot.value, slot.err
}

// MakeSafe resolves an instance within this scope, returning an error on
// failure. Singleton registrations still come from the parent container's
// cache; transient ones are freshly built; scoped ones are cached here.
func (s *Scope) MakeSafe(contractToken interface{}) (interface{}, error) {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return nil, fmt.Errorf("cannot resolve from disposed scope")
	}

	contract, err := contractTypeOf(contractToken)
	if err != nil {
		return nil, err
	}
	acc, err := s.parent.accessor(contract)
	if err != nil {
		return nil, err
	}
	return acc(s)
}

// Make resolves an instance within this scope and panics on failure,
// mirroring the container's Make.
func (s *Scope) Make(contractToken interface{}) interface{} {
	instance, err := s.MakeSafe(contractToken)
	if err != nil {
		panic(err)
	}
	return instance
}

// CreateChildScope creates a child scope. Children are disposed first when
// the parent is disposed.
func (s *Scope) CreateChildScope() *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		panic("cannot create child scope from disposed scope")
	}
	child := newScope(s.parent, false)
	s.children = append(s.children, child)
	return child
}

// Dispose releases the scope: child scopes first, then every Disposable
// instance in reverse creation order, so dependents go down before their
// dependencies. Disposing twice is a no-op.
func (s *Scope) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil
	}

	var errs []error
	for _, child := range s.children {
		if err := child.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("child scope disposal: %w", err))
		}
	}
	s.children = nil

	for i := len(s.creationOrder) - 1; i >= 0; i-- {
		if disposable, ok := s.creationOrder[i].(Disposable); ok {
			if err := disposable.Dispose(); err != nil {
				errs = append(errs, fmt.Errorf("disposing %T: %w", s.creationOrder[i], err))
			}
		}
	}

	s.instances = make(map[*registry.Registration]*scopedInstance)
	s.creationOrder = nil
	s.disposed = true

	if len(errs) > 0 {
		return fmt.Errorf("scope disposal encountered %d error(s): %v", len(errs), errs)
	}
	return nil
}
