// Package envelope implements the typed record carrier that flows between
// pipeline stages (spec §3, §4.1, §9). An Envelope is a dynamically typed,
// name-keyed map built by serializing a user object; it is projected back
// out by deserializing into a downstream stage's declared view type.
//
// Attributes the reading stage doesn't know about pass through untouched
// (attribute tunnelling): a transformer that only cares about two of a
// record's five fields never has to know about the other three.
package envelope

import (
	"fmt"
	"reflect"
)

// Attributer lets a view type control its own serialization instead of
// paying for reflection on every record. Implement it on a value receiver.
type Attributer interface {
	ToAttributes() map[string]any
}

// FromAttributes lets a view type control its own deserialization.
// Implement it on a pointer receiver.
type FromAttributes interface {
	FromAttributes(map[string]any) error
}

// Envelope is immutable after construction: Merge and Project never mutate
// the receiver, they return or populate a separate value.
type Envelope struct {
	attrs map[string]any
}

// New serializes v's named, readable attributes into a new Envelope. If v
// implements Attributer that is used; otherwise exported struct fields are
// enumerated by reflection, keyed by their `etl` tag or, absent a tag, their
// field name.
func New[T any](v T) (Envelope, error) {
	if a, ok := any(v).(Attributer); ok {
		return Envelope{attrs: a.ToAttributes()}, nil
	}
	attrs, err := attributesOf(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("envelope: serializing %T: %w", v, err)
	}
	return Envelope{attrs: attrs}, nil
}

// Attr returns the named attribute and whether it was present.
func (e Envelope) Attr(name string) (any, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Len reports the number of attributes carried by the envelope.
func (e Envelope) Len() int { return len(e.attrs) }

// Merge returns a new Envelope that is e with overlay's attributes written
// on top: attributes overlay doesn't define pass through from e unchanged
// (tunnelling); attributes overlay does define replace e's value, even if
// that value is the zero value for its type.
func (e Envelope) Merge(overlay Envelope) Envelope {
	out := make(map[string]any, len(e.attrs)+len(overlay.attrs))
	for k, v := range e.attrs {
		out[k] = v
	}
	for k, v := range overlay.attrs {
		out[k] = v
	}
	return Envelope{attrs: out}
}

// Project populates dst, which must be a non-nil pointer, from the
// envelope's attributes. If dst implements FromAttributes that is used;
// otherwise exported struct fields are populated by reflection using the
// same `etl`-tag-or-field-name key as New. An attribute missing from the
// envelope leaves the field at its declared zero value.
func Project[T any](e Envelope, dst *T) error {
	if fa, ok := any(dst).(FromAttributes); ok {
		return fa.FromAttributes(e.attrs)
	}
	return populate(dst, e.attrs)
}

func attributesOf(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("envelope: %s is not a struct or pointer to struct", rv.Kind())
	}
	rt := rv.Type()
	attrs := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := attrName(field)
		attrs[name] = rv.Field(i).Interface()
	}
	return attrs, nil
}

func populate(dst any, attrs map[string]any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("envelope: Project destination must be a non-nil pointer, got %T", dst)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("envelope: Project destination must point to a struct, got %s", rv.Kind())
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		val, ok := attrs[attrName(field)]
		if !ok || val == nil {
			continue
		}
		fv := rv.Field(i)
		vv := reflect.ValueOf(val)
		if !vv.Type().AssignableTo(fv.Type()) {
			if vv.Type().ConvertibleTo(fv.Type()) {
				vv = vv.Convert(fv.Type())
			} else {
				return fmt.Errorf("envelope: attribute %q: cannot assign %s to field of type %s", field.Name, vv.Type(), fv.Type())
			}
		}
		fv.Set(vv)
	}
	return nil
}

func attrName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("etl"); ok && tag != "" && tag != "-" {
		return tag
	}
	return field.Name
}
