package uid

import "strings"

// crockford is the ULID alphabet. Both cases are accepted on input.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZabcdefghjkmnpqrstvwxyz"

// IsUID reports whether value looks like a UUID or a ULID.
// It is a shape check only; it does not guarantee the identifier exists.
func IsUID(value string) bool {
	return IsUUID(value) || IsULID(value)
}

// IsUUID reports whether value matches the canonical 8-4-4-4-12
// hex-group UUID syntax. Case-insensitive.
func IsUUID(value string) bool {
	if len(value) != 36 {
		return false
	}
	for i := range 36 {
		c := value[i]
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		default:
			if !isHex(c) {
				return false
			}
		}
	}
	return true
}

// IsULID reports whether value matches the ULID syntax: 26 characters of
// Crockford base32 with a first character no greater than '7' (the 48-bit
// timestamp constraint that keeps the value within 128 bits).
func IsULID(value string) bool {
	if len(value) != 26 {
		return false
	}
	if value[0] > '7' {
		return false
	}
	for i := range 26 {
		if !strings.ContainsRune(crockford, rune(value[i])) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
