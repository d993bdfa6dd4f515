package minidb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_MarshalUnmarshal(t *testing.T) {
	t.Parallel()

	aRow := Row{
		ID:       42,
		Username: "alice",
		Email:    "alice@example.com",
	}

	buf, err := aRow.Marshal(nil)
	require.NoError(t, err)
	assert.Len(t, buf, RowSize)

	var decoded Row
	require.NoError(t, UnmarshalRow(buf, &decoded))
	assert.Equal(t, aRow, decoded)
}

func TestRow_Marshal_PadsShortFields(t *testing.T) {
	t.Parallel()

	aRow := Row{ID: 1, Username: "a", Email: "b"}

	buf, err := aRow.Marshal(nil)
	require.NoError(t, err)

	// Everything past the single content byte of each slot is zero padding
	for i := usernameOffset + 1; i < usernameOffset+UsernameSize; i++ {
		assert.Equal(t, byte(0), buf[i])
	}
	for i := emailOffset + 1; i < emailOffset+EmailSize; i++ {
		assert.Equal(t, byte(0), buf[i])
	}

	var decoded Row
	require.NoError(t, UnmarshalRow(buf, &decoded))
	assert.Equal(t, "a", decoded.Username)
	assert.Equal(t, "b", decoded.Email)
}

func TestRow_Marshal_ReusesDirtyBuffer(t *testing.T) {
	t.Parallel()

	first := Row{ID: 1, Username: strings.Repeat("x", UsernameSize), Email: "long@example.com"}
	buf, err := first.Marshal(nil)
	require.NoError(t, err)

	// Marshaling a shorter row into the same buffer must not leak bytes
	// of the previous occupant
	second := Row{ID: 2, Username: "y", Email: "z"}
	buf, err = second.Marshal(buf)
	require.NoError(t, err)

	var decoded Row
	require.NoError(t, UnmarshalRow(buf, &decoded))
	assert.Equal(t, second, decoded)
}

func TestRow_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Row{ID: 1, Username: strings.Repeat("u", UsernameSize), Email: strings.Repeat("e", EmailSize)}.Validate())

	err := Row{ID: 1, Username: strings.Repeat("u", UsernameSize+1)}.Validate()
	require.ErrorIs(t, err, ErrValueTooLarge)

	err = Row{ID: 1, Email: strings.Repeat("e", EmailSize+1)}.Validate()
	require.ErrorIs(t, err, ErrValueTooLarge)

	_, err = (&Row{ID: 1, Email: strings.Repeat("e", EmailSize+1)}).Marshal(nil)
	require.ErrorIs(t, err, ErrValueTooLarge)
}
