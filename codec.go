package zerofs

import "strings"

// alphabet is the 64-symbol table used by the 6-bit name codec, in the
// exact order the reference firmware assigns codes: '_' is 0, '-' is 1,
// then lowercase, uppercase, digits.
const alphabet = "_-abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// typeUnknown is the type id assigned to extensions absent from the
// configured extension table.
const typeUnknown = 0

// char6 maps a single basename character to its 6-bit code. Characters
// outside the accepted set fold to 0 ('_'), matching the reference
// firmware's str6bit.
func char6(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z':
		return 2 + (c - 'a')
	case c >= 'A' && c <= 'Z':
		return 2 + 26 + (c - 'A')
	case c >= '0' && c <= '9':
		return 2 + 2*26 + (c - '0')
	case c == '-':
		return 1
	default:
		return 0
	}
}

// extensionType returns the type id for a 3-character extension by linear
// scan of cfg.Extensions, which must be kept sorted the way the firmware's
// ZEROFS_EXTENSION_LIST is: scanning stops as soon as a table entry's first
// byte exceeds the queried extension's first byte.
func extensionType(cfg Config, ext string) uint8 {
	for i, e := range cfg.Extensions {
		if len(e) != 3 {
			continue
		}
		if e[0] > ext[0] {
			break
		}
		if e[0] == ext[0] && e[1] == ext[1] && e[2] == ext[2] {
			return uint8(i + 1)
		}
	}
	return typeUnknown
}

// encodeName splits "basename.ext" into a 6-byte packed name and a type id.
// basename must be 1-8 characters from {A-Z,a-z,0-9,-,_}; ext must be
// exactly 3 characters. Returns ErrInvalidName if no '.' is present or the
// basename exceeds 8 characters.
func encodeName(cfg Config, name string) (packed [6]byte, typ uint8, err error) {
	dot := strings.IndexByte(name, '.')
	if dot < 0 || dot > 8 {
		return packed, 0, errInvalidName
	}
	base := name[:dot]
	ext := name[dot+1:]
	if len(ext) != 3 {
		return packed, 0, errInvalidName
	}
	typ = extensionType(cfg, ext)

	// Right-justify base into an 8-char field padded with '_'.
	var field [8]byte
	for i := range field {
		field[i] = '_'
	}
	copy(field[8-len(base):], base)

	x := char6(field[3])
	packed[0] = char6(field[0]) | ((x & 0x30) << 2)
	packed[1] = char6(field[1]) | ((x & 0x0c) << 4)
	packed[2] = char6(field[2]) | ((x & 0x03) << 6)
	x = char6(field[7])
	packed[3] = char6(field[4]) | ((x & 0x30) << 2)
	packed[4] = char6(field[5]) | ((x & 0x0c) << 4)
	packed[5] = char6(field[6]) | ((x & 0x03) << 6)
	return packed, typ, nil
}

// decodeName is the inverse of encodeName's packing; it always returns an
// exactly-8-character basename (left-padded with '_' as stored).
func decodeName(packed [6]byte) string {
	var b [8]byte
	b[0] = alphabet[packed[0]&0x3f]
	b[1] = alphabet[packed[1]&0x3f]
	b[2] = alphabet[packed[2]&0x3f]
	b[3] = alphabet[(packed[0]&0xc0)>>2|(packed[1]&0xc0)>>4|(packed[2]&0xc0)>>6]
	b[4] = alphabet[packed[3]&0x3f]
	b[5] = alphabet[packed[4]&0x3f]
	b[6] = alphabet[packed[5]&0x3f]
	b[7] = alphabet[(packed[3]&0xc0)>>2|(packed[4]&0xc0)>>4|(packed[5]&0xc0)>>6]
	return string(b[:])
}
