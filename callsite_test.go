package ceangal

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCallSite wraps a plan and records when it is executed, so tests
// can assert evaluation order.
type recordingCallSite struct {
	inner CallSite
	label string
	trace *[]string
}

func (r *recordingCallSite) Kind() CallSiteKind       { return r.inner.Kind() }
func (r *recordingCallSite) ResultType() reflect.Type { return r.inner.ResultType() }
func (r *recordingCallSite) Args() []CallSite         { return r.inner.Args() }

func (r *recordingCallSite) Invoke(scope *Scope) (interface{}, error) {
	*r.trace = append(*r.trace, r.label)
	return r.inner.Invoke(scope)
}

func (r *recordingCallSite) Build() Accessor {
	acc := r.inner.Build()
	return func(scope *Scope) (interface{}, error) {
		*r.trace = append(*r.trace, r.label)
		return acc(scope)
	}
}

func mustParse(t *testing.T, fn interface{}) *constructorInfo {
	t.Helper()
	ci, err := parseConstructor(fn, nil)
	require.NoError(t, err)
	return ci
}

func TestConstantCallSite(t *testing.T) {
	cs := newConstantCallSite(42, nil)

	assert.Equal(t, KindConstant, cs.Kind())
	assert.Equal(t, reflect.TypeOf(42), cs.ResultType())
	assert.Nil(t, cs.Args())

	val, err := cs.Invoke(nil)
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	val, err = cs.Build()(nil)
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestConstructorCallSite_ArityAndOrder(t *testing.T) {
	var trace []string
	ci := mustParse(t, func(a string, b int, c bool) *Widget {
		return &Widget{Retries: b}
	})

	cs := &constructorCallSite{
		ctor: ci,
		args: []CallSite{
			&recordingCallSite{inner: newConstantCallSite("x", nil), label: "a", trace: &trace},
			&recordingCallSite{inner: newConstantCallSite(7, nil), label: "b", trace: &trace},
			&recordingCallSite{inner: newConstantCallSite(true, nil), label: "c", trace: &trace},
		},
	}

	require.Len(t, cs.Args(), 3, "one child per formal parameter")

	val, err := cs.Invoke(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, val.(*Widget).Retries)
	assert.Equal(t, []string{"a", "b", "c"}, trace, "arguments evaluate left to right")
}

func TestConstructorCallSite_ErrorIsOriginalCause(t *testing.T) {
	sentinel := errors.New("dial tcp: connection refused")
	ci := mustParse(t, func(n int) (*Widget, error) {
		return nil, sentinel
	})
	cs := &constructorCallSite{ctor: ci, args: []CallSite{newConstantCallSite(1, nil)}}

	_, err := cs.Invoke(nil)
	assert.Same(t, sentinel, err, "Invoke must surface the constructor's own error")

	_, err = cs.Build()(nil)
	assert.Same(t, sentinel, err, "Build must surface the constructor's own error")
}

func TestConstructorCallSite_PanicSurfacesAsCause(t *testing.T) {
	sentinel := errors.New("invariant violated")
	ci := mustParse(t, func(n int) *Widget {
		panic(sentinel)
	})
	cs := &constructorCallSite{ctor: ci, args: []CallSite{newConstantCallSite(1, nil)}}

	_, err := cs.Invoke(nil)
	assert.Same(t, sentinel, err)
}

func TestConstructorCallSite_ArgumentConversion(t *testing.T) {
	ci := mustParse(t, func(timeout int64) *Widget {
		return &Widget{Retries: int(timeout)}
	})
	// Default declared as untyped-int constant; parameter is int64.
	cs := &constructorCallSite{ctor: ci, args: []CallSite{newConstantCallSite(5, nil)}}

	val, err := cs.Invoke(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, val.(*Widget).Retries)
}

func TestDefaultConstructCallSite(t *testing.T) {
	cs := &defaultConstructCallSite{implType: reflect.TypeOf(&Widget{})}

	assert.Equal(t, KindDefaultConstruct, cs.Kind())

	val, err := cs.Invoke(nil)
	require.NoError(t, err)
	widget, ok := val.(*Widget)
	require.True(t, ok)
	assert.Zero(t, widget.Retries)
	assert.Nil(t, widget.Logger)
}

func TestInvokeAndBuildEquivalence(t *testing.T) {
	logger := &ConsoleLogger{}
	ci := mustParse(t, NewWidget)
	cs := &constructorCallSite{
		ctor: ci,
		args: []CallSite{
			newConstantCallSite(logger, nil),
			newConstantCallSite(3, nil),
		},
	}

	immediate, err := cs.Invoke(nil)
	require.NoError(t, err)

	acc := cs.Build()
	compiled, err := acc(nil)
	require.NoError(t, err)

	assert.Equal(t, immediate, compiled, "Invoke and Build must observe equivalent results")

	// The compiled form is repeatable: each run constructs a fresh value.
	again, err := acc(nil)
	require.NoError(t, err)
	assert.Equal(t, compiled, again)
	assert.NotSame(t, compiled, again)
}

func TestCallSiteTreeIsReusable(t *testing.T) {
	ci := mustParse(t, NewWidget)
	cs := &constructorCallSite{
		ctor: ci,
		args: []CallSite{
			newConstantCallSite(&ConsoleLogger{}, nil),
			newConstantCallSite(1, nil),
		},
	}

	first, err := cs.Invoke(nil)
	require.NoError(t, err)
	second, err := cs.Invoke(nil)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "each invocation constructs a new object")
}
