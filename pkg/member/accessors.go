package member

import "reflect"

// Position keywords accepted by the built-in accessors alongside
// integer indexes.
const (
	memberLength = "length"
	memberFirst  = "first"
	memberLast   = "last"
)

// StringAccessor resolves members of strings: integer indexes and the
// position keywords, all in runes rather than bytes.
type StringAccessor struct{}

func (StringAccessor) CanAccess(container any) bool {
	_, ok := container.(string)
	return ok
}

func (StringAccessor) Access(container, member any) (any, error) {
	s := container.(string)
	runes := []rune(s)

	if i, ok := asIndex(member); ok {
		if i < 0 || i >= len(runes) {
			return nil, &AccessError{Container: container, Member: member, Reason: "index out of range"}
		}
		return string(runes[i]), nil
	}

	switch member {
	case memberLength:
		return len(runes), nil
	case memberFirst:
		if len(runes) == 0 {
			return nil, &AccessError{Container: container, Member: member, Reason: "string is empty"}
		}
		return string(runes[0]), nil
	case memberLast:
		if len(runes) == 0 {
			return nil, &AccessError{Container: container, Member: member, Reason: "string is empty"}
		}
		return string(runes[len(runes)-1]), nil
	}
	return nil, &AccessError{Container: container, Member: member, Reason: "unsupported string member"}
}

// SliceAccessor resolves members of slices and arrays: integer
// indexes and the position keywords.
type SliceAccessor struct{}

func (SliceAccessor) CanAccess(container any) bool {
	k := reflect.ValueOf(container).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func (SliceAccessor) Access(container, member any) (any, error) {
	v := reflect.ValueOf(container)

	if i, ok := asIndex(member); ok {
		if i < 0 || i >= v.Len() {
			return nil, &AccessError{Container: container, Member: member, Reason: "index out of range"}
		}
		return v.Index(i).Interface(), nil
	}

	switch member {
	case memberLength:
		return v.Len(), nil
	case memberFirst:
		if v.Len() == 0 {
			return nil, &AccessError{Container: container, Member: member, Reason: "sequence is empty"}
		}
		return v.Index(0).Interface(), nil
	case memberLast:
		if v.Len() == 0 {
			return nil, &AccessError{Container: container, Member: member, Reason: "sequence is empty"}
		}
		return v.Index(v.Len() - 1).Interface(), nil
	}
	return nil, &AccessError{Container: container, Member: member, Reason: "unsupported sequence member"}
}

// MapAccessor resolves members of maps: key lookup plus "length". The
// member is converted to the map's key type when possible.
type MapAccessor struct{}

func (MapAccessor) CanAccess(container any) bool {
	return reflect.ValueOf(container).Kind() == reflect.Map
}

func (MapAccessor) Access(container, member any) (any, error) {
	v := reflect.ValueOf(container)

	if member == memberLength {
		// A string-keyed map may legitimately hold a "length" key;
		// the key wins over the keyword.
		if v.Type().Key().Kind() == reflect.String {
			if mv := v.MapIndex(reflect.ValueOf(memberLength)); mv.IsValid() {
				return mv.Interface(), nil
			}
		}
		return v.Len(), nil
	}

	kv := reflect.ValueOf(member)
	if !kv.IsValid() {
		return nil, &AccessError{Container: container, Member: member, Reason: "nil map key"}
	}
	kt := v.Type().Key()
	if kv.Type() != kt {
		if !kv.Type().ConvertibleTo(kt) {
			return nil, &AccessError{Container: container, Member: member, Reason: "member is not a valid key type"}
		}
		kv = kv.Convert(kt)
	}
	mv := v.MapIndex(kv)
	if !mv.IsValid() {
		return nil, &AccessError{Container: container, Member: member, Reason: "key not present"}
	}
	return mv.Interface(), nil
}
