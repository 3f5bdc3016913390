package seqid

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"encoding/json"
)

var (
	_ driver.Valuer            = NullID{}
	_ sql.Scanner              = (*NullID)(nil)
	_ json.Marshaler           = NullID{}
	_ json.Unmarshaler         = (*NullID)(nil)
	_ encoding.TextMarshaler   = NullID{}
	_ encoding.TextUnmarshaler = (*NullID)(nil)
)

// NullID is an ID column that may be NULL.
type NullID struct {
	ID    ID
	Valid bool
}

// NullIDFrom returns a valid NullID holding id.
func NullIDFrom(id ID) NullID {
	return NullID{ID: id, Valid: true}
}

func (n NullID) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.ID.Value()
}

func (n *NullID) Scan(src interface{}) error {
	if src == nil {
		*n = NullID{}
		return nil
	}
	if err := n.ID.Scan(src); err != nil {
		*n = NullID{}
		return err
	}
	n.Valid = true
	return nil
}

func (n NullID) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return n.ID.MarshalJSON()
}

func (n *NullID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullID{}
		return nil
	}
	return n.set(n.ID.UnmarshalJSON(b))
}

// MarshalText writes nothing for an invalid NullID.
func (n NullID) MarshalText() ([]byte, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.ID.MarshalText()
}

func (n *NullID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*n = NullID{}
		return nil
	}
	return n.set(n.ID.UnmarshalText(b))
}

func (n *NullID) set(err error) error {
	n.Valid = err == nil
	return err
}
