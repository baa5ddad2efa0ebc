package ceangal

import (
	"reflect"
)

// CallSiteKind identifies which execution plan variant a call site is.
type CallSiteKind int

const (
	// KindConstant yields a precomputed value, with no scope interaction.
	KindConstant CallSiteKind = iota

	// KindConstructor invokes a chosen constructor over resolved arguments.
	KindConstructor

	// KindDefaultConstruct builds the implementation type with no arguments.
	KindDefaultConstruct
)

// String returns the kind's name for logs and error messages.
func (k CallSiteKind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindConstructor:
		return "constructor"
	case KindDefaultConstruct:
		return "default-construct"
	default:
		return "unknown"
	}
}

// Accessor is a compiled call site: a closure that executes the plan against
// a live scope without repeating the resolution walk.
type Accessor func(*Scope) (interface{}, error)

// CallSite is an immutable execution plan for producing one service value.
// Plans form a tree, with one child plan per constructor argument.
//
// A call site never mutates after construction; Invoke and Build only read
// the tree, so a built plan may be shared and executed concurrently.
type CallSite interface {
	// Kind reports the plan variant.
	Kind() CallSiteKind

	// ResultType is the type the plan produces.
	ResultType() reflect.Type

	// Invoke executes the plan immediately against the scope.
	Invoke(scope *Scope) (interface{}, error)

	// Build compiles the plan into an Accessor for repeated execution.
	// For any scope state, the accessor observes the same results as Invoke.
	Build() Accessor

	// Args returns the child plans, one per constructor parameter in
	// declaration order. Nil for the leaf variants.
	Args() []CallSite
}

// ── Constant ──

// constantCallSite holds a precomputed value: a registered instance or a
// parameter default.
type constantCallSite struct {
	value interface{}
	typ   reflect.Type
}

func newConstantCallSite(value interface{}, typ reflect.Type) *constantCallSite {
	if typ == nil && value != nil {
		typ = reflect.TypeOf(value)
	}
	return &constantCallSite{value: value, typ: typ}
}

func (c *constantCallSite) Kind() CallSiteKind       { return KindConstant }
func (c *constantCallSite) ResultType() reflect.Type { return c.typ }
func (c *constantCallSite) Args() []CallSite         { return nil }

func (c *constantCallSite) Invoke(*Scope) (interface{}, error) {
	return c.value, nil
}

func (c *constantCallSite) Build() Accessor {
	value := c.value
	return func(*Scope) (interface{}, error) {
		return value, nil
	}
}

// ── Constructor ──

// constructorCallSite holds a chosen constructor and one child plan per
// formal parameter, positionally aligned.
type constructorCallSite struct {
	ctor *constructorInfo
	args []CallSite
}

func (c *constructorCallSite) Kind() CallSiteKind       { return KindConstructor }
func (c *constructorCallSite) ResultType() reflect.Type { return c.ctor.returnType }
func (c *constructorCallSite) Args() []CallSite         { return c.args }

// Invoke evaluates each argument plan left to right, then calls the
// constructor. A failing constructor surfaces its own error, unwrapped.
func (c *constructorCallSite) Invoke(scope *Scope) (interface{}, error) {
	args := make([]reflect.Value, len(c.args))
	for i, arg := range c.args {
		val, err := arg.Invoke(scope)
		if err != nil {
			return nil, err
		}
		coerced, err := coerceArg(val, c.ctor.paramTypes[i])
		if err != nil {
			return nil, err
		}
		args[i] = coerced
	}
	return callConstructor(c.ctor, args)
}

// Build compiles every argument plan once, then returns an accessor that
// replays the same construction. The conversion of each argument to its
// declared parameter type happens inside the compiled path too.
func (c *constructorCallSite) Build() Accessor {
	ctor := c.ctor
	argAccessors := make([]Accessor, len(c.args))
	for i, arg := range c.args {
		argAccessors[i] = arg.Build()
	}

	return func(scope *Scope) (interface{}, error) {
		args := make([]reflect.Value, len(argAccessors))
		for i, acc := range argAccessors {
			val, err := acc(scope)
			if err != nil {
				return nil, err
			}
			coerced, err := coerceArg(val, ctor.paramTypes[i])
			if err != nil {
				return nil, err
			}
			args[i] = coerced
		}
		return callConstructor(ctor, args)
	}
}

// ── Default-Construct ──

// defaultConstructCallSite holds only the target implementation type. It is
// produced when no single injectable constructor could be selected.
type defaultConstructCallSite struct {
	implType reflect.Type
}

func (c *defaultConstructCallSite) Kind() CallSiteKind       { return KindDefaultConstruct }
func (c *defaultConstructCallSite) ResultType() reflect.Type { return c.implType }
func (c *defaultConstructCallSite) Args() []CallSite         { return nil }

func (c *defaultConstructCallSite) Invoke(*Scope) (interface{}, error) {
	return newDefaultInstance(c.implType)
}

func (c *defaultConstructCallSite) Build() Accessor {
	implType := c.implType
	return func(*Scope) (interface{}, error) {
		return newDefaultInstance(implType)
	}
}
