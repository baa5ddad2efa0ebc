package ceangal

import (
	"fmt"
	"reflect"
	"strings"
)

// tagOptions represents parsed options from an inject tag.
type tagOptions struct {
	skip     bool   // `inject:"-"`: leave this field alone
	optional bool   // missing registration is not an error
	name     string // resolve a named registration
}

// parseInjectTag parses an inject struct tag.
// Supported formats:
//   - `inject:""` - basic injection
//   - `inject:"-"` - skip
//   - `inject:"optional"` - optional injection
//   - `inject:"name=foo"` - named registration
//   - `inject:"optional,name=foo"` - combined
func parseInjectTag(tag string) tagOptions {
	opts := tagOptions{}
	if tag == "" {
		return opts
	}
	if tag == "-" {
		opts.skip = true
		return opts
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "optional":
			opts.optional = true
		case strings.HasPrefix(part, "name="):
			opts.name = strings.TrimPrefix(part, "name=")
		}
	}
	return opts
}

// AutoWire injects registered services into the tagged fields of an
// already-constructed struct. Fields must be exported and carry an inject
// tag; interface fields resolve by interface type, pointer fields by
// pointer type.
//
// Example:
//
//	type Service struct {
//	    Logger  Logger `inject:""`
//	    Cache   Cache  `inject:"optional"`
//	    FileLog Logger `inject:"name=file"`
//	}
//
//	service := &Service{}
//	container.AutoWire(service)
func (c *Ceangal) AutoWire(instance interface{}) error {
	if instance == nil {
		return fmt.Errorf("cannot auto-wire nil instance")
	}

	value := reflect.ValueOf(instance)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("AutoWire requires a pointer to struct, got %T", instance)
	}
	target := value.Elem()

	for _, field := range c.wireCache.injectableFields(value.Type()) {
		if err := c.injectField(target, field); err != nil {
			return fmt.Errorf("failed to inject field %s: %w", field.name, err)
		}
	}
	return nil
}

// injectField resolves and assigns one tagged field.
func (c *Ceangal) injectField(target reflect.Value, field wireField) error {
	fieldValue := target.Field(field.index)
	if !fieldValue.CanSet() {
		return fmt.Errorf("field %s is not settable", field.name)
	}

	resolved, err := c.resolveFieldValue(field)
	if err != nil {
		if field.opts.optional {
			return nil
		}
		return err
	}
	if resolved == nil {
		return nil
	}

	resolvedValue := reflect.ValueOf(resolved)
	if !resolvedValue.Type().AssignableTo(field.typ) {
		return fmt.Errorf("resolved type %v is not assignable to field type %v",
			resolvedValue.Type(), field.typ)
	}
	fieldValue.Set(resolvedValue)
	return nil
}

// resolveFieldValue resolves the value for a field through the container,
// converting the resolution panic of named lookups into an error.
func (c *Ceangal) resolveFieldValue(field wireField) (resolved interface{}, err error) {
	if field.opts.name != "" {
		defer func() {
			if r := recover(); r != nil {
				if cause, ok := r.(error); ok {
					err = cause
				} else {
					err = fmt.Errorf("%v", r)
				}
				resolved = nil
			}
		}()

		var token interface{}
		if field.typ.Kind() == reflect.Interface {
			token = reflect.Zero(reflect.PtrTo(field.typ)).Interface()
		} else {
			token = reflect.Zero(field.typ).Interface()
		}
		return c.MakeNamed(token, field.opts.name), nil
	}

	acc, err := c.accessor(field.typ)
	if err != nil {
		return nil, err
	}
	return acc(c.root)
}
