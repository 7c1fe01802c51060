package bitcodec

import (
	"math/rand"
	"strings"
)

// RandomAddress draws a uniformly random address of the given width. It
// returns both the binary rendering, exactly bits characters long, and the hex
// rendering, left-padded with zeros to (bits+3)/4 digits.
func RandomAddress(r *rand.Rand, bits int) (binary, hex string) {
	if bits <= 0 {
		panic("address width must be positive")
	}

	var sb strings.Builder
	sb.Grow(bits)

	for i := 0; i < bits; i++ {
		sb.WriteByte(byte('0' + r.Intn(2)))
	}

	binary = sb.String()

	hex, err := BinaryToHex(binary)
	if err != nil {
		panic(err)
	}

	if pad := (bits+3)/4 - len(hex); pad > 0 {
		hex = strings.Repeat("0", pad) + hex
	}

	return binary, hex
}
