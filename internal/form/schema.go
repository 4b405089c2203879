package form

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Shape is the way a schema lays out its fields. It is resolved once when
// the schema is decoded and never re-guessed afterwards.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeFlat
	ShapeNested
	ShapeSectioned
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeNested:
		return "nested"
	case ShapeSectioned:
		return "sectioned"
	default:
		return "none"
	}
}

// DefaultNestedKey is the sub-object the extractor usually nests fields under.
const DefaultNestedKey = "form"

var ErrNoFields = errors.New("schema has no fields")

// Section groups fields in a sectioned schema.
type Section struct {
	Title  string
	Fields []*Field

	raw object
}

// Schema is a field schema in one of three equivalent layouts:
//
//	{"fields": [...]}                       ShapeFlat
//	{"form": {"fields": [...]}}             ShapeNested
//	{"sections": [{"fields": [...]}, ...]}  ShapeSectioned
//
// Keys the package does not understand are preserved on output.
type Schema struct {
	Shape     Shape
	NestedKey string
	Sections  []*Section

	items []*Field // flat and nested layouts

	raw    object
	nested object
}

func NewFlat(fields ...Field) *Schema {
	return &Schema{Shape: ShapeFlat, items: ptrs(fields)}
}

func NewNested(key string, fields ...Field) *Schema {
	if key == "" {
		key = DefaultNestedKey
	}
	return &Schema{Shape: ShapeNested, NestedKey: key, items: ptrs(fields)}
}

func NewSectioned(sections ...Section) *Schema {
	s := &Schema{Shape: ShapeSectioned}
	for i := range sections {
		sec := sections[i]
		s.Sections = append(s.Sections, &sec)
	}
	return s
}

func ptrs(fields []Field) []*Field {
	out := make([]*Field, len(fields))
	for i := range fields {
		f := fields[i]
		out[i] = &f
	}
	return out
}

// Parse decodes a schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &s, nil
}

func (s *Schema) UnmarshalJSON(b []byte) error {
	if err := s.raw.UnmarshalJSON(b); err != nil {
		return err
	}

	s.Shape = ShapeNone
	s.NestedKey = ""
	s.items = nil
	s.Sections = nil
	s.nested = object{}

	// (a) top-level field list
	if raw, ok := s.raw.get("fields"); ok && isArray(raw) {
		if err := json.Unmarshal(raw, &s.items); err != nil {
			return fmt.Errorf("fields: %w", err)
		}
		s.Shape = ShapeFlat
		return nil
	}

	// (b) one level of nesting, "form" first, then in document order
	candidates := append([]string{DefaultNestedKey}, s.raw.keys...)
	for _, key := range candidates {
		raw, ok := s.raw.get(key)
		if !ok || !isObject(raw) {
			continue
		}
		var inner object
		if err := inner.UnmarshalJSON(raw); err != nil {
			continue
		}
		fraw, ok := inner.get("fields")
		if !ok || !isArray(fraw) {
			continue
		}
		if err := json.Unmarshal(fraw, &s.items); err != nil {
			return fmt.Errorf("%s.fields: %w", key, err)
		}
		s.Shape = ShapeNested
		s.NestedKey = key
		s.nested = inner
		return nil
	}

	// (c) sections, each contributing its own list
	if raw, ok := s.raw.get("sections"); ok && isArray(raw) {
		var secs []json.RawMessage
		if err := json.Unmarshal(raw, &secs); err != nil {
			return fmt.Errorf("sections: %w", err)
		}
		for i, sraw := range secs {
			sec := &Section{}
			if err := sec.raw.UnmarshalJSON(sraw); err != nil {
				return fmt.Errorf("sections[%d]: %w", i, err)
			}
			if t, ok := sec.raw.get("title"); ok {
				_ = json.Unmarshal(t, &sec.Title)
			}
			if fraw, ok := sec.raw.get("fields"); ok && isArray(fraw) {
				if err := json.Unmarshal(fraw, &sec.Fields); err != nil {
					return fmt.Errorf("sections[%d].fields: %w", i, err)
				}
			}
			s.Sections = append(s.Sections, sec)
		}
		s.Shape = ShapeSectioned
	}

	return nil
}

func (s Schema) MarshalJSON() ([]byte, error) {
	o := s.raw.clone()

	switch s.Shape {
	case ShapeFlat:
		if err := o.set("fields", nonNil(s.items)); err != nil {
			return nil, err
		}
	case ShapeNested:
		key := s.NestedKey
		if key == "" {
			key = DefaultNestedKey
		}
		inner := s.nested.clone()
		if err := inner.set("fields", nonNil(s.items)); err != nil {
			return nil, err
		}
		if err := o.set(key, inner); err != nil {
			return nil, err
		}
	case ShapeSectioned:
		secs := make([]object, 0, len(s.Sections))
		for _, sec := range s.Sections {
			so := sec.raw.clone()
			if sec.Title != "" || so.has("title") {
				if err := so.set("title", sec.Title); err != nil {
					return nil, err
				}
			}
			if err := so.set("fields", nonNil(sec.Fields)); err != nil {
				return nil, err
			}
			secs = append(secs, so)
		}
		if err := o.set("sections", secs); err != nil {
			return nil, err
		}
	}

	return o.MarshalJSON()
}

func nonNil(fields []*Field) []*Field {
	if fields == nil {
		return []*Field{}
	}
	return fields
}

// leaves returns pointers to every field in resolution order. This is the
// single place that knows how each shape orders its fields.
func (s *Schema) leaves() []*Field {
	if s == nil {
		return nil
	}
	switch s.Shape {
	case ShapeFlat, ShapeNested:
		return append([]*Field(nil), s.items...)
	case ShapeSectioned:
		var out []*Field
		for _, sec := range s.Sections {
			out = append(out, sec.Fields...)
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy; edits to the copy never reach s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := &Schema{
		Shape:     s.Shape,
		NestedKey: s.NestedKey,
		raw:       s.raw.clone(),
		nested:    s.nested.clone(),
	}
	for _, f := range s.items {
		fc := f.clone()
		c.items = append(c.items, &fc)
	}
	for _, sec := range s.Sections {
		sc := &Section{Title: sec.Title, raw: sec.raw.clone()}
		for _, f := range sec.Fields {
			fc := f.clone()
			sc.Fields = append(sc.Fields, &fc)
		}
		c.Sections = append(c.Sections, sc)
	}
	return c
}

// Title returns the schema's formTitle/title, if any.
func (s *Schema) Title() string {
	for _, k := range []string{"formTitle", "title"} {
		if raw, ok := s.raw.get(k); ok {
			var t string
			if json.Unmarshal(raw, &t) == nil && t != "" {
				return t
			}
		}
	}
	return ""
}
