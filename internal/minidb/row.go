package minidb

import (
	"bytes"
	"fmt"
)

// Field offsets within a serialized row, derived once from the field widths
const (
	idOffset       = uint64(0)
	usernameOffset = idOffset + 4
	emailOffset    = usernameOffset + UsernameSize
)

// Row is one record of the users table. Username and Email are stored
// in fixed width slots, zero padded on the right.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// Validate checks text fields against their fixed column capacities
// without touching any on disk state.
func (r Row) Validate() error {
	if len(r.Username) > UsernameSize {
		return fmt.Errorf("username %d bytes: %w", len(r.Username), ErrValueTooLarge)
	}
	if len(r.Email) > EmailSize {
		return fmt.Errorf("email %d bytes: %w", len(r.Email), ErrValueTooLarge)
	}
	return nil
}

func (r Row) Size() uint64 {
	return RowSize
}

func (r *Row) Marshal(buf []byte) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	size := r.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}
	for i := range buf {
		buf[i] = 0
	}

	marshalUint32(buf, r.ID, idOffset)
	copy(buf[usernameOffset:usernameOffset+UsernameSize], r.Username)
	copy(buf[emailOffset:emailOffset+EmailSize], r.Email)

	return buf[:size], nil
}

// UnmarshalRow decodes a fixed width row buffer. Trailing zero bytes
// in text slots are padding, not content.
func UnmarshalRow(buf []byte, aRow *Row) error {
	if uint64(len(buf)) < RowSize {
		return fmt.Errorf("row buffer too short: %d", len(buf))
	}

	aRow.ID = unmarshalUint32(buf, idOffset)
	aRow.Username = string(bytes.TrimRight(buf[usernameOffset:usernameOffset+UsernameSize], "\x00"))
	aRow.Email = string(bytes.TrimRight(buf[emailOffset:emailOffset+EmailSize], "\x00"))

	return nil
}
