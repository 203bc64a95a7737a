// Package row implements the fixed three-column record the table stores:
// a u32 primary key plus two null-terminated string slots.
package row

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// IDSize is the width of the id field.
	IDSize = 4
	// UsernameMaxLen is the longest username accepted, not counting the terminator.
	UsernameMaxLen = 32
	// UsernameSlotSize is the on-disk width of the username field, including its null terminator.
	UsernameSlotSize = UsernameMaxLen + 1
	// EmailMaxLen is the longest email accepted, not counting the terminator.
	EmailMaxLen = 255
	// EmailSlotSize is the on-disk width of the email field, including its null terminator.
	EmailSlotSize = EmailMaxLen + 1

	// Size is the total serialized width of a Row: id + username slot + email slot.
	Size = IDSize + UsernameSlotSize + EmailSlotSize
)

// Sentinel parse errors, surfaced verbatim by the REPL (spec §6).
var (
	ErrNegativeID      = errors.New("ID must be a positive number")
	ErrUsernameTooLong = errors.New("String is too long")
	ErrEmailTooLong    = errors.New("String is too long")
)

// Row is the fixed record stored at every leaf cell.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// New validates and constructs a Row from REPL-parsed fields.
func New(id int64, username, email string) (Row, error) {
	if id < 0 {
		return Row{}, ErrNegativeID
	}
	if len(username) > UsernameMaxLen {
		return Row{}, ErrUsernameTooLong
	}
	if len(email) > EmailMaxLen {
		return Row{}, ErrEmailTooLong
	}
	return Row{ID: uint32(id), Username: username, Email: email}, nil
}

// Serialize packs r into dst, which must be at least Size bytes long.
// The string slots are zero-filled past their null terminator.
func Serialize(r Row, dst []byte) {
	if len(dst) < Size {
		panic("row: destination buffer smaller than row.Size")
	}
	binary.LittleEndian.PutUint32(dst[0:IDSize], r.ID)

	usernameSlot := dst[IDSize : IDSize+UsernameSlotSize]
	clear(usernameSlot)
	copy(usernameSlot, r.Username)

	emailSlot := dst[IDSize+UsernameSlotSize : Size]
	clear(emailSlot)
	copy(emailSlot, r.Email)
}

// Deserialize is the inverse of Serialize. src must be at least Size bytes long.
func Deserialize(src []byte) Row {
	if len(src) < Size {
		panic("row: source buffer smaller than row.Size")
	}
	id := binary.LittleEndian.Uint32(src[0:IDSize])

	usernameSlot := src[IDSize : IDSize+UsernameSlotSize]
	var username []byte
	if idx := bytes.IndexByte(usernameSlot, 0); idx >= 0 {
		username = usernameSlot[:idx]
	} else {
		username = usernameSlot
	}

	emailSlot := src[IDSize+UsernameSlotSize : Size]
	var email []byte
	if idx := bytes.IndexByte(emailSlot, 0); idx >= 0 {
		email = emailSlot[:idx]
	} else {
		email = emailSlot
	}

	return Row{
		ID:       id,
		Username: string(username),
		Email:    string(email),
	}
}
