package form

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatDoc = `{
  "formTitle": "Medical Intake Form",
  "formId": "form_001",
  "fields": [
    {"id": "field_01", "label": "Full Name", "type": "text", "required": true, "value": null,
     "accessibility": {"screenReaderHint": "Enter your full legal name", "tabOrder": 1}},
    {"id": "field_02", "label": "Date of Birth", "type": "date", "required": true, "value": null},
    {"id": "field_03", "label": "Gender", "type": "radio", "options": ["Male", "Female", "Other"], "required": false, "value": null},
    {"id": "field_04", "label": "Email", "type": "email", "required": true, "value": null}
  ]
}`

const nestedDoc = `{
  "form": {
    "title": "Intake",
    "fields": [
      {"id": "field_01", "label": "Full Name", "type": "text", "required": true, "value": null},
      {"id": "field_02", "label": "Date of Birth", "type": "date", "required": true, "value": null},
      {"id": "field_03", "label": "Gender", "type": "radio", "options": ["Male", "Female", "Other"], "required": false, "value": null},
      {"id": "field_04", "label": "Email", "type": "email", "required": true, "value": null}
    ]
  }
}`

const sectionedDoc = `{
  "sections": [
    {"title": "Personal", "fields": [
      {"id": "field_01", "label": "Full Name", "type": "text", "required": true, "value": null},
      {"id": "field_02", "label": "Date of Birth", "type": "date", "required": true, "value": null}
    ]},
    {"title": "Demographics", "fields": [
      {"id": "field_03", "label": "Gender", "type": "radio", "options": ["Male", "Female", "Other"], "required": false, "value": null}
    ]},
    {"title": "Empty"},
    {"title": "Contact", "fields": [
      {"id": "field_04", "label": "Email", "type": "email", "required": true, "value": null}
    ]}
  ]
}`

func labels(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

func mustParse(t *testing.T, doc string) *Schema {
	t.Helper()
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestParse_ResolvesEveryShapeToTheSameSequence(t *testing.T) {
	want := []string{"Full Name", "Date of Birth", "Gender", "Email"}

	tests := []struct {
		name  string
		doc   string
		shape Shape
	}{
		{"flat", flatDoc, ShapeFlat},
		{"nested", nestedDoc, ShapeNested},
		{"sectioned", sectionedDoc, ShapeSectioned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustParse(t, tt.doc)
			assert.Equal(t, tt.shape, s.Shape)

			fields := s.Fields()
			assert.Equal(t, want, labels(fields))
			assert.Equal(t, []string{"Male", "Female", "Other"}, fields[2].Options)
			assert.Equal(t, TypeDate, fields[1].Kind())

			// idempotent
			assert.Equal(t, labels(fields), labels(s.Fields()))
		})
	}
}

func TestParse_FirstMatchWins(t *testing.T) {
	doc := `{
	  "fields": [{"label": "A"}],
	  "form": {"fields": [{"label": "B"}]},
	  "sections": [{"fields": [{"label": "C"}]}]
	}`
	s := mustParse(t, doc)
	assert.Equal(t, ShapeFlat, s.Shape)
	assert.Equal(t, []string{"A"}, labels(s.Fields()))

	doc = `{"meta": {"version": 2}, "form": {"fields": [{"label": "B"}]}, "sections": [{"fields": [{"label": "C"}]}]}`
	s = mustParse(t, doc)
	assert.Equal(t, ShapeNested, s.Shape)
	assert.Equal(t, "form", s.NestedKey)
	assert.Equal(t, []string{"B"}, labels(s.Fields()))
}

func TestParse_NestedUnderOtherKey(t *testing.T) {
	s := mustParse(t, `{"application": {"fields": [{"label": "Name", "required": "true"}]}}`)
	assert.Equal(t, ShapeNested, s.Shape)
	assert.Equal(t, "application", s.NestedKey)
	require.Len(t, s.Fields(), 1)
	assert.True(t, s.Fields()[0].Required)
}

func TestParse_UnknownShapeHasNoFields(t *testing.T) {
	s := mustParse(t, `{"formTitle": "nothing here", "questions": []}`)
	assert.Equal(t, ShapeNone, s.Shape)
	assert.Empty(t, s.Fields())
	assert.Equal(t, 0, s.Required().Len())
}

func TestParse_OptionsAsObjects(t *testing.T) {
	s := mustParse(t, `{"fields": [{"label": "Plan", "type": "dropdown", "options": [{"label": "Basic"}, {"value": 2}, "Gold"]}]}`)
	assert.Equal(t, []string{"Basic", "2", "Gold"}, s.Fields()[0].Options)
}

func TestParse_AccessibilityHint(t *testing.T) {
	s := mustParse(t, flatDoc)
	assert.Equal(t, "Enter your full legal name", s.Fields()[0].AccessibilityHint)
}

func TestSelectRequired(t *testing.T) {
	t.Run("marked fields only", func(t *testing.T) {
		rs := mustParse(t, flatDoc).Required()
		assert.False(t, rs.Fallback)
		assert.Equal(t, []string{"Full Name", "Date of Birth", "Email"}, labels(rs.Fields))
	})

	t.Run("falls back to all fields", func(t *testing.T) {
		s := NewFlat(Field{Label: "A"}, Field{Label: "B"}, Field{Label: "C"})
		rs := s.Required()
		assert.True(t, rs.Fallback)
		assert.Equal(t, 3, rs.Len())
	})

	t.Run("empty schema is not a fallback", func(t *testing.T) {
		rs := NewFlat().Required()
		assert.False(t, rs.Fallback)
		assert.Equal(t, 0, rs.Len())
	})

	t.Run("unlabelled fields are left out", func(t *testing.T) {
		rs := SelectRequired([]Field{{Label: "A", Required: true}, {Required: true}})
		assert.Equal(t, []string{"A"}, labels(rs.Fields))
	})

	t.Run("duplicates are reported", func(t *testing.T) {
		rs := SelectRequired([]Field{{Label: "Name"}, {Label: "Name"}, {Label: "Name"}, {Label: "Age"}})
		assert.Equal(t, []string{"Name"}, rs.DuplicateLabels())
	})
}

func TestMaterialize_PreservesShapeAndDoesNotMutate(t *testing.T) {
	for _, doc := range []string{flatDoc, nestedDoc, sectionedDoc} {
		orig := mustParse(t, doc)
		filled := Materialize(orig, map[string]string{
			"Full Name": "Jane Doe",
			"Email":     "jane@example.com",
			"Unknown":   "ignored",
		})

		assert.Equal(t, orig.Shape, filled.Shape)
		for _, f := range orig.Fields() {
			assert.Nil(t, f.Value, "original mutated: %s", f.Label)
		}

		got := filled.Values()
		assert.Equal(t, map[string]string{"Full Name": "Jane Doe", "Email": "jane@example.com"}, got)

		// round-trips through JSON with the same layout
		b, err := Marshal(filled)
		require.NoError(t, err)
		again, err := Parse(b)
		require.NoError(t, err)
		assert.Equal(t, orig.Shape, again.Shape)
		assert.Equal(t, got, again.Values())
		assert.Nil(t, again.Fields()[1].Value)
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	s := mustParse(t, sectionedDoc)
	once := Materialize(s, map[string]string{"Full Name": "Jane Doe", "Gender": "Female"})
	twice := Materialize(once, map[string]string{})
	nilMap := Materialize(once, nil)

	assert.Equal(t, once.Values(), twice.Values())
	assert.Equal(t, once.Values(), nilMap.Values())

	a, err := Marshal(once)
	require.NoError(t, err)
	b, err := Marshal(twice)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestMaterialize_LaterAnswerOverwrites(t *testing.T) {
	s := Materialize(NewFlat(Field{Label: "City"}), map[string]string{"City": "Austin"})
	s = Materialize(s, map[string]string{"City": "Boston"})
	assert.Equal(t, "Boston", s.Fields()[0].ValueOr(""))
}

func TestMarshal_KeepsUnknownKeysAndOrder(t *testing.T) {
	s := mustParse(t, flatDoc)
	b, err := Marshal(Materialize(s, map[string]string{"Full Name": "Jane Doe"}))
	require.NoError(t, err)

	out := string(b)
	assert.True(t, strings.HasPrefix(out, "{\n  \"formTitle\": \"Medical Intake Form\",\n  \"formId\": \"form_001\",\n  \"fields\": ["))
	assert.Contains(t, out, `"screenReaderHint": "Enter your full legal name"`)
	assert.Contains(t, out, `"value": "Jane Doe"`)
	assert.True(t, strings.HasSuffix(out, "}\n"))

	var generic map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))
	assert.Equal(t, "Medical Intake Form", generic["formTitle"])
}

func TestMarshal_HandBuiltSchemas(t *testing.T) {
	s := NewSectioned(
		Section{Title: "One", Fields: []*Field{{Label: "A", Type: TypeText, Required: true}}},
		Section{Title: "Two", Fields: []*Field{{Label: "B", Options: []string{"x", "y"}}}},
	)
	b, err := Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sections": [
	  {"title": "One", "fields": [{"label": "A", "type": "text", "required": true, "value": null}]},
	  {"title": "Two", "fields": [{"label": "B", "options": ["x", "y"], "value": null}]}
	]}`, string(b))

	b, err = Marshal(NewNested("", Field{Label: "A"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"form": {"fields": [{"label": "A", "value": null}]}}`, string(b))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	s := Materialize(mustParse(t, nestedDoc), map[string]string{"Email": "a@b.co"})
	require.NoError(t, Save(path, s))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"form\": {\n    \"title\": \"Intake\",")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ShapeNested, loaded.Shape)
	assert.Equal(t, "a@b.co", loaded.Values()["Email"])
}

func TestClone_IsDeep(t *testing.T) {
	s := mustParse(t, flatDoc)
	c := s.Clone()
	c.items[0].Label = "changed"
	c.items[2].Options[0] = "changed"
	assert.Equal(t, "Full Name", s.Fields()[0].Label)
	assert.Equal(t, "Male", s.Fields()[2].Options[0])
	assert.Equal(t, "Medical Intake Form", c.Title())
}

func TestFields_HandBuiltSchemasReturnCopies(t *testing.T) {
	for _, s := range []*Schema{
		NewFlat(Field{Label: "A"}, Field{Label: "B"}),
		NewNested("", Field{Label: "A"}, Field{Label: "B"}),
	} {
		got := s.Fields()
		assert.Equal(t, []string{"A", "B"}, labels(got), s.Shape.String())

		got[0].Label = "changed"
		assert.Equal(t, "A", s.Fields()[0].Label, s.Shape.String())
	}
}
