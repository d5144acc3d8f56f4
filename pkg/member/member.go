// Package member resolves container[member] expressions for narrative
// code. Resolution goes through an ordered table of accessors instead
// of a global type switch, so hosts can add support for their own
// container types without touching the engine.
package member

import "fmt"

// AccessError reports a member access the table could not resolve.
type AccessError struct {
	Container any
	Member    any
	Reason    string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot access member %v of %T: %s", e.Member, e.Container, e.Reason)
}

// Accessor resolves members for one family of container types.
type Accessor interface {
	// CanAccess reports whether this accessor handles the container.
	CanAccess(container any) bool

	// Access resolves container[member].
	Access(container, member any) (any, error)
}

// Table is an ordered list of accessors. The first accessor whose
// CanAccess accepts the container resolves the member.
type Table struct {
	accessors []Accessor
}

// NewTable creates a table with the given accessors, consulted in
// order.
func NewTable(accessors ...Accessor) *Table {
	return &Table{accessors: accessors}
}

// Defaults returns a table covering strings, slices, arrays and maps.
func Defaults() *Table {
	return NewTable(StringAccessor{}, SliceAccessor{}, MapAccessor{})
}

// Register appends an accessor. Later registrations only see
// containers no earlier accessor claimed.
func (t *Table) Register(a Accessor) {
	t.accessors = append(t.accessors, a)
}

// Access resolves container[member] through the table.
func (t *Table) Access(container, member any) (any, error) {
	for _, a := range t.accessors {
		if a.CanAccess(container) {
			return a.Access(container, member)
		}
	}
	return nil, &AccessError{Container: container, Member: member, Reason: "no accessor for container type"}
}

// asIndex normalizes the numeric types a member can arrive as
// (ints from code, float64 from decoded JSON, etc.) into an int.
func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		if float32(int(n)) == n {
			return int(n), true
		}
	case float64:
		if float64(int(n)) == n {
			return int(n), true
		}
	}
	return 0, false
}
