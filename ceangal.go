package ceangal

import (
	"fmt"
	"reflect"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/toutaio/toutago-ceangal-service-resolver/registry"
)

// Ceangal is the service container. It owns the registration table, applies
// lifetime policies, performs cycle detection, and caches compiled call
// sites per contract type.
//
// Resolution is driven by call sites: asking for a contract type builds an
// execution plan once (see CreateCallSite), compiles it, and replays the
// compiled form on every later request.
type Ceangal struct {
	table      *registry.Table
	singletons *singletonCache
	wireCache  *wireCache
	providerMu sync.Mutex
	providers  []*providerEntry
	root       *Scope
	logger     *log.Logger
	debug      bool
	validating bool

	accessorMu sync.RWMutex
	accessors  map[reflect.Type]Accessor
}

// New creates a container. Options configure logging and validation
// behavior.
//
// Example:
//
//	container := ceangal.New()
//	// or with options:
//	container := ceangal.New(ceangal.WithDebug())
func New(options ...Option) *Ceangal {
	c := &Ceangal{
		table:      registry.NewTable(),
		singletons: newSingletonCache(),
		wireCache:  newWireCache(),
		accessors:  make(map[reflect.Type]Accessor),
		logger:     log.StandardLogger(),
	}
	c.root = newScope(c, true)

	for _, opt := range options {
		if err := opt(c); err != nil {
			panic(fmt.Sprintf("failed to apply option: %v", err))
		}
	}

	// The container registers itself, so constructors may declare a
	// *Ceangal parameter and act as factories.
	_ = c.table.Register(&registry.Registration{
		ContractType: reflect.TypeOf(c),
		Lifetime:     string(LifetimeSingleton),
		Instance:     c,
	})

	return c
}

// contractTypeOf extracts the contract type from a registration token.
// Interface contracts use the (*Iface)(nil) convention; the pointer is
// stripped to reach the interface type. Concrete pointer types are kept
// as-is, so *Config registers and resolves as *Config.
func contractTypeOf(token interface{}) (reflect.Type, error) {
	if token == nil {
		return nil, &InvalidRegistrationError{Reason: "contract type cannot be nil"}
	}
	t := reflect.TypeOf(token)
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
		t = t.Elem()
	}
	return t, nil
}

// concreteTypeOf validates and extracts the implementation type. Default
// construction needs a pointer to struct.
func concreteTypeOf(impl interface{}) (reflect.Type, error) {
	if impl == nil {
		return nil, &InvalidRegistrationError{Reason: "concrete type cannot be nil"}
	}
	t := reflect.TypeOf(impl)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, &InvalidRegistrationError{
			Reason: fmt.Sprintf("concrete type must be pointer to struct, got %v", t),
		}
	}
	return t, nil
}

// ── Registration ──

func (c *Ceangal) bindConcrete(contractToken, impl interface{}, lifetime Lifetime, autoWire bool) error {
	contract, err := contractTypeOf(contractToken)
	if err != nil {
		return err
	}
	concrete, err := concreteTypeOf(impl)
	if err != nil {
		return err
	}
	err = c.table.Register(&registry.Registration{
		ContractType: contract,
		ConcreteType: concrete,
		Lifetime:     string(lifetime),
		AutoWire:     autoWire,
	})
	if err != nil {
		return err
	}
	c.invalidateAccessors()
	return nil
}

// invalidateAccessors drops every compiled plan. A new registration changes
// what its contract resolves to, and any cached plan that embedded the old
// registration as a constructor argument is stale too, so the whole cache
// goes. Plans rebuild lazily on the next resolution.
func (c *Ceangal) invalidateAccessors() {
	c.accessorMu.Lock()
	c.accessors = make(map[reflect.Type]Accessor)
	c.accessorMu.Unlock()
}

// Bind registers a transient implementation type for a contract. The
// contract token is an interface pointer like (*Logger)(nil), the
// implementation a pointer to struct like &ConsoleLogger{}.
//
// Registering the same contract again does not replace the earlier entry;
// the table keeps them in order and the most recent one wins for single
// resolution, while MakeAll sees all of them.
func (c *Ceangal) Bind(contractToken, impl interface{}) error {
	return c.bindConcrete(contractToken, impl, LifetimeTransient, false)
}

// Singleton registers an implementation with singleton lifetime. The
// instance is created lazily on first resolution and reused afterwards.
func (c *Ceangal) Singleton(contractToken, impl interface{}) error {
	return c.bindConcrete(contractToken, impl, LifetimeSingleton, false)
}

// Scoped registers an implementation with scoped lifetime: one instance per
// scope, resolvable only through Scope.Make.
func (c *Ceangal) Scoped(contractToken, impl interface{}) error {
	return c.bindConcrete(contractToken, impl, LifetimeScoped, false)
}

// BindAutoWired is Bind plus field injection: after default construction,
// fields tagged `inject` are resolved from the container.
func (c *Ceangal) BindAutoWired(contractToken, impl interface{}) error {
	return c.bindConcrete(contractToken, impl, LifetimeTransient, true)
}

// Instance registers a preexisting value for a contract. Resolution yields
// the value itself via a constant plan; no construction happens.
func (c *Ceangal) Instance(contractToken, value interface{}) error {
	contract, err := contractTypeOf(contractToken)
	if err != nil {
		return err
	}
	if value == nil {
		return &InvalidRegistrationError{Reason: "instance cannot be nil"}
	}
	err = c.table.Register(&registry.Registration{
		ContractType: contract,
		Lifetime:     string(LifetimeSingleton),
		Instance:     value,
	})
	if err != nil {
		return err
	}
	c.invalidateAccessors()
	return nil
}

// CtorOption configures a constructor registration.
type CtorOption func(*ctorConfig)

type ctorConfig struct {
	defaults map[int]interface{}
}

// DefaultArg declares a fallback value for the constructor parameter at the
// given index. When the parameter's type has no registration, the plan
// substitutes this value instead of failing.
func DefaultArg(index int, value interface{}) CtorOption {
	return func(cfg *ctorConfig) {
		if cfg.defaults == nil {
			cfg.defaults = make(map[int]interface{})
		}
		cfg.defaults[index] = value
	}
}

func (c *Ceangal) bindConstructors(contractToken interface{}, lifetime Lifetime, ctors []ConstructorFunc, defaults map[int]interface{}) error {
	contract, err := contractTypeOf(contractToken)
	if err != nil {
		return err
	}
	if len(ctors) == 0 {
		return &InvalidRegistrationError{Reason: "at least one constructor is required"}
	}

	parsed := make([]interface{}, 0, len(ctors))
	var concrete reflect.Type
	for i, ctor := range ctors {
		// Defaults only apply to single-constructor registrations.
		var defs map[int]interface{}
		if len(ctors) == 1 {
			defs = defaults
		}
		ci, err := parseConstructor(ctor, defs)
		if err != nil {
			return &InvalidRegistrationError{Reason: fmt.Sprintf("constructor %d: %v", i, err)}
		}
		if concrete == nil {
			concrete = ci.returnType
		}
		parsed = append(parsed, ci)
	}

	err = c.table.Register(&registry.Registration{
		ContractType: contract,
		ConcreteType: concrete,
		Lifetime:     string(lifetime),
		Constructors: parsed,
	})
	if err != nil {
		return err
	}
	c.invalidateAccessors()
	return nil
}

// BindConstructor registers a transient contract built by a constructor
// function. The constructor's parameters are resolved from the container in
// declaration order.
//
// Example:
//
//	container.BindConstructor((*UserService)(nil), NewUserService)
//	// Where: func NewUserService(logger Logger, db Database) (*UserService, error)
//
// A parameter without a registration fails resolution unless a DefaultArg
// was declared for it:
//
//	container.BindConstructor((*Widget)(nil), NewWidget, ceangal.DefaultArg(1, 3))
func (c *Ceangal) BindConstructor(contractToken interface{}, constructor ConstructorFunc, opts ...CtorOption) error {
	cfg := &ctorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return c.bindConstructors(contractToken, LifetimeTransient, []ConstructorFunc{constructor}, cfg.defaults)
}

// SingletonConstructor registers a singleton contract built by a
// constructor function.
func (c *Ceangal) SingletonConstructor(contractToken interface{}, constructor ConstructorFunc, opts ...CtorOption) error {
	cfg := &ctorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return c.bindConstructors(contractToken, LifetimeSingleton, []ConstructorFunc{constructor}, cfg.defaults)
}

// ScopedConstructor registers a scoped contract built by a constructor
// function.
func (c *Ceangal) ScopedConstructor(contractToken interface{}, constructor ConstructorFunc, opts ...CtorOption) error {
	cfg := &ctorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return c.bindConstructors(contractToken, LifetimeScoped, []ConstructorFunc{constructor}, cfg.defaults)
}

// BindConstructors registers several constructor candidates on one
// registration. Selection follows the single-candidate rule: resolution
// uses a constructor only when exactly one injectable candidate exists,
// otherwise the plan falls back to default construction of the concrete
// type.
func (c *Ceangal) BindConstructors(contractToken interface{}, constructors ...ConstructorFunc) error {
	return c.bindConstructors(contractToken, LifetimeTransient, constructors, nil)
}

// BindNamed registers a named transient implementation, allowing multiple
// distinguishable implementations of one contract.
//
// Example:
//
//	container.BindNamed((*Logger)(nil), &FileLogger{}, "file")
//	fileLogger := container.MakeNamed((*Logger)(nil), "file").(Logger)
func (c *Ceangal) BindNamed(contractToken, impl interface{}, name string) error {
	contract, err := contractTypeOf(contractToken)
	if err != nil {
		return err
	}
	concrete, err := concreteTypeOf(impl)
	if err != nil {
		return err
	}
	if name == "" {
		return &InvalidRegistrationError{Reason: "name cannot be empty"}
	}
	return c.table.RegisterNamed(&registry.Registration{
		ContractType: contract,
		ConcreteType: concrete,
		Lifetime:     string(LifetimeTransient),
		Name:         name,
	})
}

// ── Resolution ──

// CallSiteFor implements CallSiteProvider. It looks up the most recent
// registration for the type, performs cycle detection against the stack,
// and hands the registration to the resolver. A type without a registration
// returns (nil, nil), letting the caller apply its default-value fallback.
func (c *Ceangal) CallSiteFor(t reflect.Type, stack *ResolutionStack) (CallSite, error) {
	reg, ok := c.table.Lookup(t)
	if !ok {
		return nil, nil
	}
	return c.callSiteForRegistration(reg, stack)
}

func (c *Ceangal) callSiteForRegistration(reg *registry.Registration, stack *ResolutionStack) (CallSite, error) {
	contract := reg.ContractType
	if stack.Contains(contract) {
		return nil, &CircularDependencyError{Path: append(stack.Path(), contract.String())}
	}
	stack.Push(contract)
	defer stack.Pop()

	cs, err := CreateCallSite(reg, c, stack)
	if err != nil {
		return nil, err
	}
	if c.debug {
		c.logger.WithFields(log.Fields{
			"contract": contract.String(),
			"kind":     cs.Kind().String(),
			"lifetime": reg.Lifetime,
		}).Debug("call site built")
	}
	return c.withLifetime(reg, cs), nil
}

// accessor returns the compiled plan for a contract type, building and
// caching it on first request.
func (c *Ceangal) accessor(contract reflect.Type) (Accessor, error) {
	c.accessorMu.RLock()
	acc, ok := c.accessors[contract]
	c.accessorMu.RUnlock()
	if ok {
		return acc, nil
	}

	stack := NewResolutionStack()
	cs, err := c.CallSiteFor(contract, stack)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		return nil, &RegistrationNotFoundError{Type: contract}
	}
	acc = cs.Build()

	c.accessorMu.Lock()
	if cached, ok := c.accessors[contract]; ok {
		acc = cached
	} else {
		c.accessors[contract] = acc
	}
	c.accessorMu.Unlock()
	return acc, nil
}

// MakeSafe resolves an instance of the contract, returning an error when
// resolution fails.
//
// Example:
//
//	service, err := container.MakeSafe((*Service)(nil))
func (c *Ceangal) MakeSafe(contractToken interface{}) (interface{}, error) {
	contract, err := contractTypeOf(contractToken)
	if err != nil {
		return nil, err
	}
	acc, err := c.accessor(contract)
	if err != nil {
		return nil, err
	}
	return acc(c.root)
}

// Make resolves an instance of the contract and panics on failure.
//
// Example:
//
//	logger := container.Make((*Logger)(nil)).(Logger)
func (c *Ceangal) Make(contractToken interface{}) interface{} {
	instance, err := c.MakeSafe(contractToken)
	if err != nil {
		panic(err)
	}
	return instance
}

// MakeAll resolves every registration of the contract in registration
// order, oldest first. Panics on the first failure.
//
// Example:
//
//	loggers := container.MakeAll((*Logger)(nil))
func (c *Ceangal) MakeAll(contractToken interface{}) []interface{} {
	contract, err := contractTypeOf(contractToken)
	if err != nil {
		panic(err)
	}

	regs := c.table.GetAll(contract)
	instances := make([]interface{}, 0, len(regs))
	for _, reg := range regs {
		cs, err := c.callSiteForRegistration(reg, NewResolutionStack())
		if err != nil {
			panic(err)
		}
		instance, err := cs.Invoke(c.root)
		if err != nil {
			panic(err)
		}
		instances = append(instances, instance)
	}
	return instances
}

// MakeNamed resolves the registration stored under the given name. Panics
// on failure.
func (c *Ceangal) MakeNamed(contractToken interface{}, name string) interface{} {
	contract, err := contractTypeOf(contractToken)
	if err != nil {
		panic(err)
	}
	if name == "" {
		panic("name cannot be empty")
	}

	reg, err := c.table.GetNamed(contract, name)
	if err != nil {
		panic(&ResolutionError{Type: contract, Name: name, Cause: err})
	}
	cs, err := c.callSiteForRegistration(reg, NewResolutionStack())
	if err != nil {
		panic(err)
	}
	instance, err := cs.Invoke(c.root)
	if err != nil {
		panic(err)
	}
	return instance
}

// CreateScope creates a new resolution scope. Scoped registrations produce
// one instance per scope.
//
// Example:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
func (c *Ceangal) CreateScope() *Scope {
	return newScope(c, false)
}

// finishInstance runs post-construction steps: auto-wiring when the
// registration asked for it, the Initializable hook, and debug logging.
func (c *Ceangal) finishInstance(reg *registry.Registration, instance interface{}) error {
	if instance == nil {
		return nil
	}
	if reg.AutoWire {
		if err := c.AutoWire(instance); err != nil {
			return &ResolutionError{Type: reg.ContractType, Context: "auto-wiring", Cause: err}
		}
	}
	if initializable, ok := instance.(Initializable); ok {
		if err := initializable.Initialize(); err != nil {
			return &ResolutionError{Type: reg.ContractType, Context: "initialization", Cause: err}
		}
	}
	if c.debug {
		c.logger.Debugf("constructed %T (%s)", instance, reg.Lifetime)
	}
	return nil
}

// Validate builds a call site for every registration in the table without
// executing any of them, and aggregates everything that cannot resolve:
// missing dependencies, cycles, malformed graphs. Useful at startup, before
// the first request hits the container.
func (c *Ceangal) Validate() error {
	var errs []error
	for _, contract := range c.table.ContractTypes() {
		regs := c.table.GetAll(contract)
		regs = append(regs, c.table.GetAllNamed(contract)...)
		for _, reg := range regs {
			if _, err := c.callSiteForRegistration(reg, NewResolutionStack()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
