package crypto

import "encoding/hex"

// EIP55 formats an address using the mixed-case checksum encoding from
// EIP-55: a hex nibble is uppercased when the corresponding bit of
// Keccak256(lowercase hex string) is set. This lets a verifier catch a
// single transposed or mistyped character without needing a separate
// checksum byte.
func EIP55(a Address) string {
	lower := hex.EncodeToString(a[:])
	hash := Keccak256([]byte(lower))

	out := make([]byte, len(lower))
	for i, c := range lower {
		if c >= '0' && c <= '9' {
			out[i] = byte(c)
			continue
		}
		// hash byte i/2 holds two nibbles; the high nibble checksums the
		// even hex character, the low nibble the odd one.
		var nibble byte
		if i%2 == 0 {
			nibble = hash[i/2] >> 4
		} else {
			nibble = hash[i/2] & 0x0f
		}
		if nibble >= 8 {
			out[i] = byte(c) - ('a' - 'A')
		} else {
			out[i] = byte(c)
		}
	}
	return "0x" + string(out)
}
