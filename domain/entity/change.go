package entity

import (
	"reflect"
)

// ChangeRecorder accumulates field-level differences during one update. It
// never fails; it only answers "did anything change, and was it major".
type ChangeRecorder struct {
	change ChangeDescription
	major  bool
}

// NewChangeRecorder starts a fresh diff against the given stored version.
func NewChangeRecorder(previousVersion float64) *ChangeRecorder {
	return &ChangeRecorder{
		change: ChangeDescription{PreviousVersion: previousVersion},
	}
}

// RecordChange compares two scalar values and files the difference under
// fieldsAdded, fieldsUpdated or fieldsDeleted. Returns whether they differed.
func (r *ChangeRecorder) RecordChange(field string, oldValue, newValue any) bool {
	if reflect.DeepEqual(oldValue, newValue) {
		return false
	}

	switch {
	case isEmpty(oldValue):
		r.change.FieldsAdded = append(r.change.FieldsAdded,
			FieldChange{Name: field, NewValue: newValue})
	case isEmpty(newValue):
		r.change.FieldsDeleted = append(r.change.FieldsDeleted,
			FieldChange{Name: field, OldValue: oldValue})
	default:
		r.change.FieldsUpdated = append(r.change.FieldsUpdated,
			FieldChange{Name: field, OldValue: oldValue, NewValue: newValue})
	}
	return true
}

// MarkMajor flags the update as a breaking change, forcing a +1.0 bump.
func (r *ChangeRecorder) MarkMajor() {
	r.major = true
}

// Updated reports whether any field changed.
func (r *ChangeRecorder) Updated() bool {
	return len(r.change.FieldsAdded) > 0 ||
		len(r.change.FieldsUpdated) > 0 ||
		len(r.change.FieldsDeleted) > 0
}

// Major reports whether the update warrants a major version bump.
func (r *ChangeRecorder) Major() bool {
	return r.major
}

// Change returns the accumulated diff.
func (r *ChangeRecorder) Change() *ChangeDescription {
	c := r.change
	return &c
}

// RecordListChange diffs two list-valued fields with the given equivalence
// predicate. Added and removed items each become one FieldChange entry
// holding the whole sub-list, not one entry per item. A structural list
// (columns, constraints) marks the update major when items were removed.
func RecordListChange[E any](r *ChangeRecorder, field string, oldList, newList []E, eq func(a, b E) bool, structural bool) (added, deleted []E) {
	for _, n := range newList {
		if !containsFn(oldList, n, eq) {
			added = append(added, n)
		}
	}
	for _, o := range oldList {
		if !containsFn(newList, o, eq) {
			deleted = append(deleted, o)
		}
	}

	if len(added) > 0 {
		r.change.FieldsAdded = append(r.change.FieldsAdded,
			FieldChange{Name: field, NewValue: added})
	}
	if len(deleted) > 0 {
		r.change.FieldsDeleted = append(r.change.FieldsDeleted,
			FieldChange{Name: field, OldValue: deleted})
		if structural {
			r.major = true
		}
	}
	return added, deleted
}

func containsFn[E any](list []E, item E, eq func(a, b E) bool) bool {
	for _, candidate := range list {
		if eq(candidate, item) {
			return true
		}
	}
	return false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	default:
		return false
	}
}
