package ids

import "github.com/google/uuid"

// ID is a UUID-shaped opaque identifier for contracts, settlement records,
// and webhook registrations.
type ID uuid.UUID

// Nil is the zero-value ID.
var Nil = ID(uuid.Nil)

// New generates a random ID.
func New() ID {
	return ID(uuid.New())
}

// String returns the canonical hyphenated hex representation.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

// Parse decodes a canonical UUID string into an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	return ID(u), nil
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as plain
// strings in JSON payloads.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
