package types

import (
	"fmt"
	"reflect"
	"sync"
)

// Variants is a subject-level tag map used to pick among several rules
// producing the same product (SelectVariant) and, as a whole, contributes
// to a node's identity alongside subject/product/selector-shape.
type Variants map[string]string

// ProjectField reads a single named field off obj, supporting both structs
// (exported fields, by name) and map[string]any (by key). It is the
// implementation of SelectProjection's "project one named field as a new
// subject" step.
func ProjectField(obj any, field string) (any, error) {
	if field == "" {
		// The empty field name is an identity projection: the whole value
		// becomes the new subject, unchanged. This lets SelectProjection
		// chain straight through an intermediate product without needing a
		// named field to unwrap, e.g. bridging one glob shape's expansion
		// directly into another rule's input.
		return obj, nil
	}
	if m, ok := obj.(map[string]any); ok {
		v, ok := m[field]
		if !ok {
			return nil, fmt.Errorf("field %q not present", field)
		}
		return v, nil
	}

	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("field %q: nil pointer", field)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("field %q: %s is not a struct", field, v.Kind())
	}
	fv := v.FieldByName(field)
	if !fv.IsValid() {
		return nil, fmt.Errorf("field %q not present on %s", field, v.Type())
	}
	return fv.Interface(), nil
}

// ProjectSlice reads a named field off obj and returns its elements as a
// []any, preserving order. It backs SelectDependencies' "for each element
// of its named field" step, where the field is required to be a slice or
// array.
func ProjectSlice(obj any, field string) ([]any, error) {
	raw, err := ProjectField(obj, field)
	if err != nil {
		return nil, err
	}
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("field %q is %s, not a slice", field, v.Kind())
	}
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}

var (
	coercersMu sync.RWMutex
	coercers   = map[SubjectType]func(raw any) (any, error){}
)

// RegisterCoercion installs build as the constructor SelectProjection uses
// to turn a raw projected field value into a value of declared's type,
// mirroring Pants' projected_subject_type(raw_value) constructor call for
// the case where the projected field's own Go type doesn't already equal
// the selector's declared ProjectedType (e.g. projecting a bare path
// string into a wrapper type like pathglob.Dir). Registering twice for the
// same declared type overwrites the earlier constructor.
func RegisterCoercion(declared SubjectType, build func(raw any) (any, error)) {
	coercersMu.Lock()
	defer coercersMu.Unlock()
	coercers[declared] = build
}

// Coerce converts value to the declared SubjectType. If value is already
// of that type (or declared is the wildcard empty type), it is returned
// unchanged. Otherwise a constructor registered via RegisterCoercion is
// used to build a declared-typed value from the raw one; if none is
// registered, Coerce reports an error rather than silently handing the
// graph a value keyed under its own (wrong) type instead of declared.
func Coerce(value any, declared SubjectType) (any, error) {
	if declared == "" {
		return value, nil
	}
	if SubjectTypeOf(value) == declared {
		return value, nil
	}
	coercersMu.RLock()
	build, ok := coercers[declared]
	coercersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("types: cannot coerce %s to %s: no coercion registered", TypeTag(value), declared)
	}
	coerced, err := build(value)
	if err != nil {
		return nil, fmt.Errorf("types: coercing %s to %s: %w", TypeTag(value), declared, err)
	}
	return coerced, nil
}
