package metadata

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// ErrInvalidID is returned when a string is not a well-formed record reference.
var ErrInvalidID = errors.New("invalid id")

// ID is the canonical reference to a user or file record. Every store keeps it
// as the canonical UUID text form; conversions happen only in ParseID and in
// the store adapters.
type ID string

// RootID is the parent of top-level files.
const RootID ID = "0"

// NewID returns a fresh random reference.
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates s and returns it in canonical form.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", ErrInvalidID
	}
	return ID(u.String()), nil
}

// ParseParentID accepts the root sentinel ("" or "0") or a record reference.
func ParseParentID(s string) (ID, error) {
	if s == "" || s == string(RootID) {
		return RootID, nil
	}
	return ParseID(s)
}

func (id ID) String() string { return string(id) }

// IsRoot reports whether id is the root sentinel.
func (id ID) IsRoot() bool { return id == RootID || id == "" }

// ParentRef is the wire form of a parent reference. The root is written as
// the number 0; input accepts 0, "0", null or a record ID string.
type ParentRef ID

func (p ParentRef) MarshalJSON() ([]byte, error) {
	if ID(p).IsRoot() {
		return []byte("0"), nil
	}
	return json.Marshal(string(p))
}

func (p *ParentRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ParentRef(RootID)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if v, err := strconv.ParseInt(n.String(), 10, 64); err == nil && v == 0 {
			*p = ParentRef(RootID)
			return nil
		}
		return ErrInvalidID
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidID
	}
	id, err := ParseParentID(s)
	if err != nil {
		return err
	}
	*p = ParentRef(id)
	return nil
}
