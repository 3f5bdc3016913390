// Package crockford encodes uint64 values in Crockford base32. Output is
// lower case; decoding is case-insensitive, maps I and L to 1 and O to 0,
// and skips hyphens.
package crockford

import "errors"

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var decode [128]int8

func init() {
	for i := range decode {
		decode[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		decode[c] = int8(i)
		if c >= 'a' && c <= 'z' {
			decode[c-'a'+'A'] = int8(i)
		}
	}
	for _, c := range "iIlL" {
		decode[c] = 1
	}
	decode['o'], decode['O'] = 0, 0
}

var (
	// ErrInvalid is returned for characters outside the alphabet.
	ErrInvalid = errors.New("seqid: invalid crockford character")

	// ErrOverflow is returned when the decoded value does not fit in 64 bits.
	ErrOverflow = errors.New("seqid: crockford value overflows uint64")
)

// Encode returns the Crockford base32 form of n, at most 13 characters.
func Encode(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [13]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = alphabet[n&0x1f]
		n >>= 5
	}
	return string(buf[i:])
}

// Decode parses a Crockford base32 string.
func Decode(s string) (uint64, error) {
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' {
			continue
		}
		if c >= 128 || decode[c] < 0 {
			return 0, ErrInvalid
		}
		if n>>59 != 0 {
			return 0, ErrOverflow
		}
		n = n<<5 | uint64(decode[c])
	}
	return n, nil
}
