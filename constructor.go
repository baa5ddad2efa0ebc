package ceangal

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ConstructorFunc represents a constructor function handed to the container.
// Supported signatures:
//   - func(Dep1, ...) *T
//   - func(Dep1, ...) (*T, error)
//
// A zero-parameter constructor is accepted at registration, but it is never
// selected for injection; parameterless construction goes through the
// default-construct plan instead.
type ConstructorFunc interface{}

// constructorInfo holds the parsed metadata for one constructor candidate.
type constructorInfo struct {
	fn           reflect.Value
	fnType       reflect.Type
	name         string
	accessible   bool
	paramTypes   []reflect.Type
	defaults     map[int]interface{}
	returnsError bool
	returnType   reflect.Type
	numParams    int
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// parseConstructor analyzes a constructor function and extracts metadata.
// Default argument values are validated against their parameter types here,
// at registration time, so resolution never sees a malformed default.
func parseConstructor(constructor ConstructorFunc, defaults map[int]interface{}) (*constructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	fnValue := reflect.ValueOf(constructor)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %v", fnType.Kind())
	}
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("constructor must not be variadic: %v", fnType)
	}

	numOut := fnType.NumOut()
	if numOut == 0 || numOut > 2 {
		return nil, fmt.Errorf("constructor must return (T) or (T, error), got %d return values", numOut)
	}

	returnType := fnType.Out(0)
	if returnType == errorType {
		return nil, fmt.Errorf("constructor's first return value must be the constructed service, got error")
	}

	returnsError := false
	if numOut == 2 {
		if !fnType.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("constructor's second return value must be error, got %v", fnType.Out(1))
		}
		returnsError = true
	}

	numParams := fnType.NumIn()
	paramTypes := make([]reflect.Type, numParams)
	for i := 0; i < numParams; i++ {
		paramTypes[i] = fnType.In(i)
	}

	for i, def := range defaults {
		if i < 0 || i >= numParams {
			return nil, fmt.Errorf("default argument index %d out of range for %v", i, fnType)
		}
		if def == nil {
			if !isNilable(paramTypes[i]) {
				return nil, fmt.Errorf("nil default for non-nilable parameter %d of %v", i, fnType)
			}
			continue
		}
		dt := reflect.TypeOf(def)
		if !dt.AssignableTo(paramTypes[i]) && !dt.ConvertibleTo(paramTypes[i]) {
			return nil, fmt.Errorf("default for parameter %d has type %v, want %v", i, dt, paramTypes[i])
		}
	}

	name := functionName(constructor)
	return &constructorInfo{
		fn:           fnValue,
		fnType:       fnType,
		name:         name,
		accessible:   isAccessibleName(name),
		paramTypes:   paramTypes,
		defaults:     defaults,
		returnsError: returnsError,
		returnType:   returnType,
		numParams:    numParams,
	}, nil
}

// functionName returns the fully qualified symbol name of a function value.
func functionName(fn interface{}) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return ""
}

// isAccessibleName reports whether a constructor counts as publicly
// accessible. Exported function names qualify. Function literals have no
// exported name (the runtime calls them pkg.Parent.funcN), but anything
// handed to the container directly is reachable, so they qualify too.
func isAccessibleName(qualified string) bool {
	base := qualified
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, "-fm")
	if base == "" {
		return false
	}
	if strings.HasPrefix(base, "func") {
		return true
	}
	r, _ := utf8.DecodeRuneInString(base)
	return unicode.IsUpper(r)
}

// isNilable reports whether the zero value nil is legal for the type.
func isNilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return true
	}
	return false
}

// coerceArg adapts a resolved argument to the declared parameter type,
// converting where assignment alone does not suffice.
func coerceArg(val interface{}, target reflect.Type) (reflect.Value, error) {
	if val == nil {
		if !isNilable(target) {
			return reflect.Value{}, fmt.Errorf("cannot pass nil as %v", target)
		}
		return reflect.Zero(target), nil
	}

	rv := reflect.ValueOf(val)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("argument of type %v is not assignable to %v", rv.Type(), target)
}

// callConstructor invokes the constructor with already-coerced arguments.
//
// Failures surface as the originating error: an error result is returned
// as-is, and a panic inside the constructor is recovered and propagated as
// its own cause, never wrapped in a synthetic construction error.
func callConstructor(ci *constructorInfo, args []reflect.Value) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if cause, ok := r.(error); ok {
				err = cause
			} else {
				err = fmt.Errorf("%v", r)
			}
			result = nil
		}
	}()

	results := ci.fn.Call(args)
	if ci.returnsError && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// newDefaultInstance constructs the implementation type through its
// zero-argument path. The same inner-cause rule as callConstructor applies.
func newDefaultInstance(implType reflect.Type) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if cause, ok := r.(error); ok {
				err = cause
			} else {
				err = fmt.Errorf("%v", r)
			}
			result = nil
		}
	}()

	if implType == nil {
		return nil, fmt.Errorf("cannot default-construct: no concrete type")
	}
	if implType.Kind() == reflect.Ptr {
		return reflect.New(implType.Elem()).Interface(), nil
	}
	return reflect.Zero(implType).Interface(), nil
}
