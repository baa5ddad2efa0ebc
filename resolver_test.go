package ceangal

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toutaio/toutago-ceangal-service-resolver/registry"
)

// stubProvider resolves parameter types from a fixed map and records every
// lookup, standing in for the container during resolver tests.
type stubProvider struct {
	sites    map[reflect.Type]CallSite
	err      error
	requests []reflect.Type
	stacks   []*ResolutionStack
}

func (p *stubProvider) CallSiteFor(t reflect.Type, stack *ResolutionStack) (CallSite, error) {
	p.requests = append(p.requests, t)
	p.stacks = append(p.stacks, stack)
	if p.err != nil {
		return nil, p.err
	}
	return p.sites[t], nil
}

func typeOf(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
		t = t.Elem()
	}
	return t
}

func ctorRegistration(t *testing.T, contract interface{}, defaults map[int]interface{}, ctors ...interface{}) *registry.Registration {
	t.Helper()
	reg := &registry.Registration{
		ContractType: typeOf(contract),
		Lifetime:     string(LifetimeTransient),
	}
	for _, fn := range ctors {
		ci, err := parseConstructor(fn, defaults)
		require.NoError(t, err)
		if reg.ConcreteType == nil {
			reg.ConcreteType = ci.returnType
		}
		reg.Constructors = append(reg.Constructors, ci)
	}
	return reg
}

func TestCreateCallSite_SingleInjectableConstructor(t *testing.T) {
	logger := &ConsoleLogger{}
	provider := &stubProvider{sites: map[reflect.Type]CallSite{
		typeOf((*Logger)(nil)):   newConstantCallSite(logger, typeOf((*Logger)(nil))),
		typeOf((*Database)(nil)): newConstantCallSite(&MockDB{}, typeOf((*Database)(nil))),
	}}
	reg := ctorRegistration(t, (*UserService)(nil), nil, NewUserService)

	cs, err := CreateCallSite(reg, provider, NewResolutionStack())
	require.NoError(t, err)

	assert.Equal(t, KindConstructor, cs.Kind())
	require.Len(t, cs.Args(), 2, "child count equals parameter count")

	val, err := cs.Invoke(nil)
	require.NoError(t, err)
	impl := val.(*UserServiceImpl)
	assert.Same(t, logger, impl.Logger)
	assert.NotNil(t, impl.Database)

	// Parameters were requested in declaration order.
	assert.Equal(t, []reflect.Type{typeOf((*Logger)(nil)), typeOf((*Database)(nil))}, provider.requests)
}

func TestCreateCallSite_ZeroInjectableConstructors(t *testing.T) {
	provider := &stubProvider{}
	reg := &registry.Registration{
		ContractType: typeOf((*Gadget)(nil)),
		ConcreteType: reflect.TypeOf(&Gadget{}),
		Lifetime:     string(LifetimeTransient),
	}

	cs, err := CreateCallSite(reg, provider, NewResolutionStack())
	require.NoError(t, err)
	assert.Equal(t, KindDefaultConstruct, cs.Kind())
	assert.Empty(t, provider.requests, "no parameter resolution without a chosen constructor")
}

func TestCreateCallSite_AmbiguousConstructors(t *testing.T) {
	// Both candidates' dependencies would resolve, but ambiguity still
	// falls back to default construction.
	provider := &stubProvider{sites: map[reflect.Type]CallSite{
		typeOf((*Logger)(nil)):   newConstantCallSite(&ConsoleLogger{}, typeOf((*Logger)(nil))),
		typeOf((*Database)(nil)): newConstantCallSite(&MockDB{}, typeOf((*Database)(nil))),
	}}
	reg := ctorRegistration(t, (*Gadget)(nil), nil, NewGadgetWithLogger, NewGadgetWithDB)

	cs, err := CreateCallSite(reg, provider, NewResolutionStack())
	require.NoError(t, err)
	assert.Equal(t, KindDefaultConstruct, cs.Kind())

	val, err := cs.Invoke(nil)
	require.NoError(t, err)
	gadget := val.(*Gadget)
	assert.Nil(t, gadget.Logger)
	assert.Nil(t, gadget.Database)
}

func TestCreateCallSite_ZeroParamConstructorNotInjectable(t *testing.T) {
	provider := &stubProvider{}
	reg := ctorRegistration(t, (*Gadget)(nil), nil, func() *Gadget { return &Gadget{} })

	cs, err := CreateCallSite(reg, provider, NewResolutionStack())
	require.NoError(t, err)
	assert.Equal(t, KindDefaultConstruct, cs.Kind(),
		"a zero-parameter constructor is covered by the default-construct fallback")
}

func TestCreateCallSite_DefaultValueSubstitution(t *testing.T) {
	provider := &stubProvider{sites: map[reflect.Type]CallSite{
		typeOf((*Logger)(nil)): newConstantCallSite(&ConsoleLogger{}, typeOf((*Logger)(nil))),
	}}
	reg := ctorRegistration(t, (*Widget)(nil), map[int]interface{}{1: 3}, NewWidget)

	cs, err := CreateCallSite(reg, provider, NewResolutionStack())
	require.NoError(t, err)
	require.Len(t, cs.Args(), 2)

	assert.Same(t, provider.sites[typeOf((*Logger)(nil))], cs.Args()[0],
		"resolvable parameter uses the provider-returned plan directly")
	assert.Equal(t, KindConstant, cs.Args()[1].Kind(),
		"unresolvable parameter with a default becomes a constant plan")

	def, err := cs.Args()[1].Invoke(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, def, "the constant plan always yields the default")

	val, err := cs.Invoke(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, val.(*Widget).Retries)
}

func TestCreateCallSite_UnresolvedDependency(t *testing.T) {
	provider := &stubProvider{sites: map[reflect.Type]CallSite{
		typeOf((*Logger)(nil)): newConstantCallSite(&ConsoleLogger{}, typeOf((*Logger)(nil))),
	}}
	reg := ctorRegistration(t, (*Widget)(nil), nil, NewWidget)

	_, err := CreateCallSite(reg, provider, NewResolutionStack())
	require.Error(t, err)

	var unresolved *UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, reflect.TypeOf(0), unresolved.ParameterType)
	assert.Equal(t, reflect.TypeOf(&Widget{}), unresolved.ImplementationType)
}

func TestCreateCallSite_InstanceRegistration(t *testing.T) {
	existing := &ConsoleLogger{}
	reg := &registry.Registration{
		ContractType: typeOf((*Logger)(nil)),
		Lifetime:     string(LifetimeSingleton),
		Instance:     existing,
	}

	cs, err := CreateCallSite(reg, &stubProvider{}, NewResolutionStack())
	require.NoError(t, err)
	assert.Equal(t, KindConstant, cs.Kind())

	val, err := cs.Invoke(nil)
	require.NoError(t, err)
	assert.Same(t, existing, val)
}

func TestCreateCallSite_ForwardsStackUnchanged(t *testing.T) {
	provider := &stubProvider{sites: map[reflect.Type]CallSite{
		typeOf((*Logger)(nil)):   newConstantCallSite(&ConsoleLogger{}, typeOf((*Logger)(nil))),
		typeOf((*Database)(nil)): newConstantCallSite(&MockDB{}, typeOf((*Database)(nil))),
	}}
	reg := ctorRegistration(t, (*UserService)(nil), nil, NewUserService)

	stack := NewResolutionStack()
	stack.Push(typeOf((*UserService)(nil)))

	_, err := CreateCallSite(reg, provider, stack)
	require.NoError(t, err)

	for _, got := range provider.stacks {
		assert.Same(t, stack, got, "the in-progress set is forwarded by reference, unchanged")
	}
	assert.Equal(t, []string{"ceangal.UserService"}, stack.Path(), "resolver neither pushes nor pops")
}

func TestCreateCallSite_ProviderErrorPropagates(t *testing.T) {
	cycle := errors.New("cycle")
	provider := &stubProvider{err: cycle}
	reg := ctorRegistration(t, (*UserService)(nil), nil, NewUserService)

	_, err := CreateCallSite(reg, provider, NewResolutionStack())
	assert.Same(t, cycle, err)
}

func TestResolutionStack(t *testing.T) {
	stack := NewResolutionStack()
	loggerType := typeOf((*Logger)(nil))

	assert.False(t, stack.Contains(loggerType))
	stack.Push(loggerType)
	assert.True(t, stack.Contains(loggerType))
	assert.Equal(t, []string{"ceangal.Logger"}, stack.Path())
	stack.Pop()
	assert.False(t, stack.Contains(loggerType))
	assert.Empty(t, stack.Path())
}
