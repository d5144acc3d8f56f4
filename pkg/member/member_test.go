package member

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringMembers(t *testing.T) {
	tbl := Defaults()

	got, err := tbl.Access("héllo", 1)
	require.NoError(t, err)
	assert.Equal(t, "é", got, "string indexing is by rune")

	got, err = tbl.Access("héllo", "length")
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	got, err = tbl.Access("héllo", "first")
	require.NoError(t, err)
	assert.Equal(t, "h", got)

	got, err = tbl.Access("héllo", "last")
	require.NoError(t, err)
	assert.Equal(t, "o", got)

	_, err = tbl.Access("hi", 7)
	var ae *AccessError
	require.True(t, errors.As(err, &ae))

	_, err = tbl.Access("", "first")
	assert.Error(t, err)
}

func TestSliceMembers(t *testing.T) {
	tbl := Defaults()
	inventory := []string{"lamp", "rope", "key"}

	got, err := tbl.Access(inventory, 2)
	require.NoError(t, err)
	assert.Equal(t, "key", got)

	// Decoded JSON indexes arrive as float64.
	got, err = tbl.Access(inventory, float64(0))
	require.NoError(t, err)
	assert.Equal(t, "lamp", got)

	got, err = tbl.Access(inventory, "length")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	got, err = tbl.Access(inventory, "last")
	require.NoError(t, err)
	assert.Equal(t, "key", got)

	_, err = tbl.Access(inventory, 3)
	assert.Error(t, err)

	_, err = tbl.Access(inventory, 1.5)
	assert.Error(t, err, "fractional index is not an index")
}

func TestMapMembers(t *testing.T) {
	tbl := Defaults()
	scores := map[string]int{"strength": 12, "wit": 17}

	got, err := tbl.Access(scores, "wit")
	require.NoError(t, err)
	assert.Equal(t, 17, got)

	got, err = tbl.Access(scores, "length")
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	_, err = tbl.Access(scores, "luck")
	assert.Error(t, err)

	// A real "length" key shadows the keyword.
	withKey := map[string]string{"length": "long"}
	got, err = tbl.Access(withKey, "length")
	require.NoError(t, err)
	assert.Equal(t, "long", got)

	// Integer-keyed maps convert compatible member types.
	rooms := map[int64]string{3: "cellar"}
	got, err = tbl.Access(rooms, 3)
	require.NoError(t, err)
	assert.Equal(t, "cellar", got)
}

func TestTableOrderAndFallthrough(t *testing.T) {
	tbl := Defaults()

	_, err := tbl.Access(42, "length")
	var ae *AccessError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, ae.Error(), "no accessor")
}

type upperAccessor struct{}

func (upperAccessor) CanAccess(container any) bool { _, ok := container.(string); return ok }
func (upperAccessor) Access(container, member any) (any, error) {
	return "UPPER", nil
}

func TestRegisterAppendsAfterDefaults(t *testing.T) {
	tbl := Defaults()
	tbl.Register(upperAccessor{})

	// Strings are still claimed by the built-in accessor registered
	// earlier; the custom one only sees what defaults do not claim.
	got, err := tbl.Access("abc", 0)
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	custom := NewTable(upperAccessor{})
	got, err = custom.Access("abc", 0)
	require.NoError(t, err)
	assert.Equal(t, "UPPER", got)
}
