package story

import (
	"maps"
	"reflect"
)

// Style is an associative set of named presentation settings. The
// engine never interprets the values; hosts and renderers do.
type Style map[string]any

// Merge returns a new style combining s and overlay. Overlay wins on
// conflicting names. Both inputs are left unmodified; either may be
// nil.
func (s Style) Merge(overlay Style) Style {
	merged := make(Style, len(s)+len(overlay))
	maps.Copy(merged, s)
	maps.Copy(merged, overlay)
	return merged
}

// Get looks up a setting by name.
func (s Style) Get(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Len returns the number of settings.
func (s Style) Len() int {
	return len(s)
}

// Equal reports whether s and other carry the same settings. Values
// are compared deeply, so slice or map settings compare by content.
// A nil style equals an empty one.
func (s Style) Equal(other Style) bool {
	if len(s) != len(other) {
		return false
	}
	for name, v := range s {
		ov, ok := other[name]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// Scope is the handle returned when a style is applied. Closing it
// removes the style from the composition. Close is idempotent; the
// engine trusts callers to close scopes in reverse order of opening
// and does not verify the discipline.
type Scope interface {
	Close()
}
