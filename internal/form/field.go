package form

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field types the extractor is asked to produce. Anything else is kept
// verbatim and treated as free text.
const (
	TypeText     = "text"
	TypeEmail    = "email"
	TypeTel      = "tel"
	TypePhone    = "phone"
	TypeDate     = "date"
	TypeNumber   = "number"
	TypeDropdown = "dropdown"
	TypeRadio    = "radio"
	TypeTextarea = "textarea"
	TypeFile     = "file"
)

// Field is one input of a form. Value is nil until an answer is captured.
type Field struct {
	ID                string
	Label             string
	Type              string
	Required          bool
	Options           []string
	AccessibilityHint string
	Value             *string

	raw object
}

// Kind returns the lower-cased declared type, defaulting to text.
func (f Field) Kind() string {
	t := strings.ToLower(strings.TrimSpace(f.Type))
	if t == "" {
		return TypeText
	}
	return t
}

// Filled reports whether a value has been captured for the field.
func (f Field) Filled() bool {
	return f.Value != nil
}

// ValueOr returns the captured value or def when the field is unfilled.
func (f Field) ValueOr(def string) string {
	if f.Value == nil {
		return def
	}
	return *f.Value
}

func (f Field) clone() Field {
	c := f
	c.Options = append([]string(nil), f.Options...)
	if f.Value != nil {
		v := *f.Value
		c.Value = &v
	}
	c.raw = f.raw.clone()
	return c
}

func (f *Field) UnmarshalJSON(b []byte) error {
	if err := f.raw.UnmarshalJSON(b); err != nil {
		return err
	}

	str := func(key string) string {
		raw, ok := f.raw.get(key)
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}

	f.ID = str("id")
	f.Label = strings.TrimSpace(str("label"))
	f.Type = str("type")
	f.AccessibilityHint = str("accessibilityHint")

	if raw, ok := f.raw.get("required"); ok {
		// models occasionally emit "true" as a string
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				b = strings.EqualFold(strings.TrimSpace(s), "true")
			}
		}
		f.Required = b
	}

	if raw, ok := f.raw.get("options"); ok {
		f.Options = decodeOptions(raw)
	}

	if f.AccessibilityHint == "" {
		if raw, ok := f.raw.get("accessibility"); ok {
			var acc struct {
				ScreenReaderHint string `json:"screenReaderHint"`
			}
			if json.Unmarshal(raw, &acc) == nil {
				f.AccessibilityHint = acc.ScreenReaderHint
			}
		}
	}

	f.Value = nil
	if raw, ok := f.raw.get("value"); ok {
		var v *string
		if err := json.Unmarshal(raw, &v); err == nil && v != nil {
			f.Value = v
		}
	}

	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	o := f.raw.clone()

	sets := []struct {
		key  string
		val  any
		keep bool
	}{
		{"id", f.ID, f.ID != ""},
		{"label", f.Label, f.Label != ""},
		{"type", f.Type, f.Type != ""},
		{"required", f.Required, f.Required},
		{"options", f.Options, f.Options != nil},
	}
	for _, s := range sets {
		if !s.keep && !o.has(s.key) {
			continue
		}
		// options in the source may be objects; only rewrite them when they
		// were created in code
		if s.key == "options" && o.has("options") {
			continue
		}
		if err := o.set(s.key, s.val); err != nil {
			return nil, err
		}
	}

	if f.AccessibilityHint != "" && !o.has("accessibility") {
		if err := o.set("accessibilityHint", f.AccessibilityHint); err != nil {
			return nil, err
		}
	}

	if err := o.set("value", f.Value); err != nil {
		return nil, err
	}

	return o.MarshalJSON()
}

// decodeOptions accepts ["a","b"] as well as [{"label":"a"},...].
func decodeOptions(raw json.RawMessage) []string {
	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if json.Unmarshal(it, &s) == nil {
			out = append(out, s)
			continue
		}
		var lv struct {
			Label string `json:"label"`
			Value any    `json:"value"`
		}
		if json.Unmarshal(it, &lv) == nil {
			switch {
			case lv.Label != "":
				out = append(out, lv.Label)
			case lv.Value != nil:
				out = append(out, fmt.Sprint(lv.Value))
			}
		}
	}
	return out
}
