package vector

import "fmt"

// Predicate is a single exact-match constraint on a metadata field.
type Predicate struct {
	Field string
	Value string
}

// Filter is a conjunction of predicates: a record matches when every
// predicate matches. A nil or empty Filter matches every record.
//
// Keeping the filter a plain value type keeps the Index contract
// backend-agnostic; each backend translates it into its native query form.
type Filter []Predicate

// Eq appends an exact-match predicate and returns the extended filter.
func (f Filter) Eq(field, value string) Filter {
	return append(f, Predicate{Field: field, Value: value})
}

// Matches reports whether the given metadata satisfies every predicate.
func (f Filter) Matches(metadata map[string]string) bool {
	for _, p := range f {
		if metadata[p.Field] != p.Value {
			return false
		}
	}
	return true
}

// Validate checks that every predicate references a known metadata field.
// Backends call this before translating the filter so that a typo'd field
// surfaces as ErrBadFilter instead of silently matching nothing.
func (f Filter) Validate() error {
	for _, p := range f {
		switch p.Field {
		case FieldUserID, FieldSessionID, FieldMessageIndex, FieldType, FieldChunkID:
		default:
			return fmt.Errorf("%w: unknown field %q", ErrBadFilter, p.Field)
		}
	}
	return nil
}

// ToMap flattens the filter into a field->value map for backends whose
// native filter form is a map of equality constraints (e.g. chromem).
// Duplicate fields keep the last value.
func (f Filter) ToMap() map[string]string {
	if len(f) == 0 {
		return nil
	}
	m := make(map[string]string, len(f))
	for _, p := range f {
		m[p.Field] = p.Value
	}
	return m
}
