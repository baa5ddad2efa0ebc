package ceangal

import (
	"reflect"
	"sync"
)

// wireCache caches per-type struct field metadata so auto-wiring does not
// re-scan a type's fields on every injection.
type wireCache struct {
	mu     sync.RWMutex
	fields map[reflect.Type][]wireField
}

// wireField describes one struct field carrying an inject tag.
type wireField struct {
	index int
	name  string
	typ   reflect.Type
	opts  tagOptions
}

func newWireCache() *wireCache {
	return &wireCache{
		fields: make(map[reflect.Type][]wireField),
	}
}

// injectableFields returns the tagged fields of a struct type, computing
// and caching them on first sight. Only exported fields with an inject tag
// participate; the tag's options are parsed once here.
func (wc *wireCache) injectableFields(typ reflect.Type) []wireField {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}

	wc.mu.RLock()
	fields, ok := wc.fields[typ]
	wc.mu.RUnlock()
	if ok {
		return fields
	}

	wc.mu.Lock()
	defer wc.mu.Unlock()
	if fields, ok = wc.fields[typ]; ok {
		return fields
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag, tagged := field.Tag.Lookup("inject")
		if !tagged || field.PkgPath != "" {
			continue
		}
		opts := parseInjectTag(tag)
		if opts.skip {
			continue
		}
		fields = append(fields, wireField{
			index: i,
			name:  field.Name,
			typ:   field.Type,
			opts:  opts,
		})
	}

	wc.fields[typ] = fields
	return fields
}
