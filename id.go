package seqid

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"encoding/base64"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/paraglidehq/seqid/base58"
	"github.com/paraglidehq/seqid/crockford"
)

var (
	_ fmt.Stringer               = ID(0)
	_ driver.Valuer              = ID(0)
	_ sql.Scanner                = (*ID)(nil)
	_ encoding.TextMarshaler     = ID(0)
	_ encoding.TextUnmarshaler   = (*ID)(nil)
	_ encoding.BinaryMarshaler   = ID(0)
	_ encoding.BinaryUnmarshaler = (*ID)(nil)
	_ json.Marshaler             = ID(0)
	_ json.Unmarshaler           = (*ID)(nil)
	_ gob.GobEncoder             = ID(0)
	_ gob.GobDecoder             = (*ID)(nil)
)

// Format names a string representation of an ID.
type Format string

const (
	FormatDecimal   Format = "decimal"
	FormatBase58    Format = "base58"
	FormatCrockford Format = "crockford"
	FormatHash      Format = "hash"
	FormatBase64    Format = "base64"
)

// Formats lists every supported Format.
var Formats = []Format{FormatDecimal, FormatBase58, FormatCrockford, FormatHash, FormatBase64}

// DefaultFormat is used by String, MarshalText and Parse.
var DefaultFormat = FormatDecimal

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("seqid: unknown format %q", s)
}

// ID is a packed 64-bit identifier. Which bits hold what depends on the
// Layout that produced it.
type ID uint64

// Nil is the zero ID. No generator hands it out after the first tick.
var Nil ID = 0

func (id ID) Uint64() uint64 { return uint64(id) }

func (id ID) IsNil() bool { return id == Nil }

// Int64 returns id as a signed integer. The result is negative when the top
// bit is set, which only happens with zero unused bits.
func (id ID) Int64() int64 { return int64(id) }

// Bytes returns the ID as an 8-byte big-endian slice.
func (id ID) Bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func (id ID) String() string {
	return id.Format(DefaultFormat)
}

func (id ID) Format(f Format) string {
	switch f {
	case FormatBase58:
		return base58.Encode(uint64(id))
	case FormatCrockford:
		return crockford.Encode(uint64(id))
	case FormatHash:
		return strconv.FormatUint(uint64(id), 16)
	case FormatBase64:
		return base64.StdEncoding.EncodeToString(id.Bytes())
	default:
		return strconv.FormatUint(uint64(id), 10)
	}
}

// MarshalText implements encoding.TextMarshaler
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalJSON writes the ID as a string so JavaScript clients keep every bit.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON accepts null, a bare number or a string in DefaultFormat.
func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = Nil
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		n, err := strconv.ParseUint(string(b), 10, 64)
		if err != nil {
			return errors.New("seqid: invalid JSON value")
		}
		*id = ID(n)
		return nil
	}
	if len(b) < 2 || b[len(b)-1] != '"' {
		return errors.New("seqid: invalid JSON string")
	}
	return id.UnmarshalText(b[1 : len(b)-1])
}

// Value stores the ID as a BIGINT. IDs with the top bit set do not fit;
// keep at least one unused bit when storing IDs in SQL.
func (id ID) Value() (driver.Value, error) {
	if uint64(id) > math.MaxInt64 {
		return nil, fmt.Errorf("seqid: ID %d overflows a signed 64-bit column", uint64(id))
	}
	return int64(id), nil
}

// Scan implements sql.Scanner
func (id *ID) Scan(src interface{}) error {
	if src == nil {
		*id = Nil
		return nil
	}
	switch v := src.(type) {
	case ID:
		*id = v
	case int64:
		if v < 0 {
			return fmt.Errorf("seqid: cannot scan negative %d", v)
		}
		*id = ID(v)
	case uint64:
		*id = ID(v)
	case []byte:
		return id.UnmarshalText(v)
	case string:
		return id.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("seqid: cannot scan %T", src)
	}
	return nil
}

// Parse parses s in DefaultFormat.
func Parse(s string) (ID, error) {
	return ParseAs(DefaultFormat, s)
}

// ParseAs parses s in the given format.
func ParseAs(f Format, s string) (ID, error) {
	switch f {
	case FormatBase58:
		return ParseBase58(s)
	case FormatCrockford:
		return ParseCrockford(s)
	case FormatHash:
		return ParseHash(s)
	case FormatBase64:
		return ParseBase64(s)
	default:
		return ParseDecimal(s)
	}
}

func ParseDecimal(s string) (ID, error) {
	if len(s) == 0 {
		return Nil, errors.New("seqid: empty string")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Nil, fmt.Errorf("seqid: invalid decimal: %w", err)
	}
	return ID(n), nil
}

func ParseBase58(s string) (ID, error) {
	if len(s) == 0 {
		return Nil, errors.New("seqid: empty string")
	}
	n, err := base58.Decode(s)
	if err != nil {
		return Nil, err
	}
	return ID(n), nil
}

func ParseCrockford(s string) (ID, error) {
	if len(s) == 0 {
		return Nil, errors.New("seqid: empty string")
	}
	n, err := crockford.Decode(s)
	if err != nil {
		return Nil, err
	}
	return ID(n), nil
}

// ParseHash parses up to 16 hex digits.
func ParseHash(s string) (ID, error) {
	if len(s) == 0 || len(s) > 16 {
		return Nil, errors.New("seqid: hex string must be 1-16 characters")
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Nil, errors.New("seqid: invalid hex string")
	}
	return ID(n), nil
}

func ParseBase64(s string) (ID, error) {
	if len(s) == 0 {
		return Nil, errors.New("seqid: empty string")
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Nil, fmt.Errorf("seqid: invalid base64: %w", err)
	}
	return FromBytes(b)
}

// Parse parses s into the receiver using DefaultFormat.
func (id *ID) Parse(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// FromString is an alias for Parse.
func FromString(s string) (ID, error) {
	return Parse(s)
}

// FromStringOrNil returns Nil when s does not parse.
func FromStringOrNil(s string) ID {
	id, err := Parse(s)
	if err != nil {
		return Nil
	}
	return id
}

// FromBytes reads an 8-byte big-endian ID.
func FromBytes(b []byte) (ID, error) {
	if len(b) != 8 {
		return Nil, fmt.Errorf("seqid: ID must be exactly 8 bytes, got %d", len(b))
	}
	return ID(binary.BigEndian.Uint64(b)), nil
}

// FromBytesOrNil returns Nil when b is not 8 bytes long.
func FromBytesOrNil(b []byte) ID {
	id, err := FromBytes(b)
	if err != nil {
		return Nil
	}
	return id
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (id ID) MarshalBinary() ([]byte, error) {
	return id.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *ID) UnmarshalBinary(data []byte) error {
	parsed, err := FromBytes(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID) GobEncode() ([]byte, error) {
	return id.MarshalBinary()
}

func (id *ID) GobDecode(data []byte) error {
	return id.UnmarshalBinary(data)
}

// Must panics if err is not nil
func Must(id ID, err error) ID {
	if err != nil {
		panic(err)
	}
	return id
}
