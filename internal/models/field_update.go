package models

// FieldOp is the kind of change a FieldUpdate applies to a record field.
type FieldOp int

const (
	// OpUnchanged leaves the field alone. Zero value so an empty
	// FieldUpdate is a no-op.
	OpUnchanged FieldOp = iota
	// OpSet writes the value, creating the field if absent.
	OpSet
	// OpDelete removes the field from the document. Deletion is explicit
	// because the store merges by default; a merge can never remove a key.
	OpDelete
)

// FieldUpdate is one field-level change. The repository applies a set of
// these as a single merge-write, so deletion semantics are visible in the
// type system instead of relying on a sentinel value.
type FieldUpdate struct {
	Field string
	Op    FieldOp
	Value any
}

// Set returns an update that writes value to field.
func Set(field string, value any) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpSet, Value: value}
}

// Delete returns an update that removes field from the document.
func Delete(field string) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpDelete}
}

// SetNonEmpty returns a Set update when value is non-empty, otherwise an
// unchanged no-op. Used by merge paths that must never clobber existing
// data with empty incoming values.
func SetNonEmpty(field, value string) FieldUpdate {
	if value == "" {
		return FieldUpdate{Field: field}
	}
	return Set(field, value)
}
