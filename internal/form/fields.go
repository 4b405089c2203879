package form

import (
	log "log/slog"
)

// Fields flattens the schema into its ordered field sequence. The returned
// fields are copies: the result can be kept and edited without touching s,
// and calling Fields twice yields equal sequences.
func (s *Schema) Fields() []Field {
	leaves := s.leaves()
	out := make([]Field, 0, len(leaves))
	for _, f := range leaves {
		out = append(out, f.clone())
	}
	return out
}

// RequiredSet is the ordered list of fields a session interviews for.
type RequiredSet struct {
	Fields []Field

	// Fallback is set when no field was marked required and every field
	// was selected instead. It lets callers tell "nothing to ask" apart from
	// "asking everything".
	Fallback bool
}

// SelectRequired picks the fields marked required, or all fields when none
// are. Fields without a label cannot be written back and are left out.
func SelectRequired(fields []Field) RequiredSet {
	var (
		required []Field
		labelled []Field
	)
	for _, f := range fields {
		if f.Label == "" {
			log.Warn("Skipping field without label", "id", f.ID, "type", f.Type)
			continue
		}
		labelled = append(labelled, f)
		if f.Required {
			required = append(required, f)
		}
	}

	if len(required) > 0 {
		return RequiredSet{Fields: required}
	}

	if len(labelled) > 0 {
		log.Warn("No fields marked as required, treating all as required", "count", len(labelled))
	}
	return RequiredSet{Fields: labelled, Fallback: len(labelled) > 0}
}

// Required is SelectRequired over the schema's fields.
func (s *Schema) Required() RequiredSet {
	return SelectRequired(s.Fields())
}

func (rs RequiredSet) Len() int { return len(rs.Fields) }

// DuplicateLabels lists labels that occur more than once. Answers are keyed
// by label, so a duplicate means the later answer wins for all of them.
func (rs RequiredSet) DuplicateLabels() []string {
	seen := make(map[string]int, len(rs.Fields))
	var dups []string
	for _, f := range rs.Fields {
		seen[f.Label]++
		if seen[f.Label] == 2 {
			dups = append(dups, f.Label)
		}
	}
	return dups
}

// Materialize returns a copy of s in its original layout with every field
// whose label is in values set to that value. Fields without an entry keep
// whatever value they already had. s itself is never modified.
func Materialize(s *Schema, values map[string]string) *Schema {
	out := s.Clone()
	for _, f := range out.leaves() {
		v, ok := values[f.Label]
		if !ok || f.Label == "" {
			continue
		}
		f.Value = &v
	}
	return out
}

// Values collects label -> value for every filled field.
func (s *Schema) Values() map[string]string {
	out := make(map[string]string)
	for _, f := range s.leaves() {
		if f.Value != nil {
			out[f.Label] = *f.Value
		}
	}
	return out
}
