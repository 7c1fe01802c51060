// Package bitcodec converts addresses between hexadecimal text and
// fixed-width binary text.
package bitcodec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidHexDigit is returned when a character is not a hexadecimal
	// digit.
	ErrInvalidHexDigit = errors.New("invalid hexadecimal digit")

	// ErrInvalidBinaryString is returned when a string is empty or holds
	// characters other than 0 and 1.
	ErrInvalidBinaryString = errors.New("invalid binary string")

	// ErrOverflow is returned when a value does not fit in 64 bits.
	ErrOverflow = errors.New("value does not fit in 64 bits")
)

var nibbles = [16]string{
	"0000", "0001", "0010", "0011",
	"0100", "0101", "0110", "0111",
	"1000", "1001", "1010", "1011",
	"1100", "1101", "1110", "1111",
}

const hexDigits = "0123456789ABCDEF"

// HexToBinary expands every hex digit into 4 bits and then left-pads with
// zeros, or drops the most significant bits, so that the result is exactly
// width bits long. An empty input gives an empty output.
func HexToBinary(hex string, width int) (string, error) {
	if hex == "" {
		return "", nil
	}

	var sb strings.Builder
	sb.Grow(len(hex) * 4)

	for _, c := range hex {
		d, ok := hexValue(c)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidHexDigit, c)
		}

		sb.WriteString(nibbles[d])
	}

	binary := sb.String()
	width = max(width, 0)

	switch {
	case len(binary) < width:
		return strings.Repeat("0", width-len(binary)) + binary, nil
	case len(binary) > width:
		return binary[len(binary)-width:], nil
	default:
		return binary, nil
	}
}

// BinaryToHex renders a binary string as upper-case hex without leading
// zeros. Zero is rendered as "0".
func BinaryToHex(binary string) (string, error) {
	if binary == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBinaryString)
	}

	for _, c := range binary {
		if c != '0' && c != '1' {
			return "", fmt.Errorf("%w: %q in %q",
				ErrInvalidBinaryString, c, binary)
		}
	}

	if pad := len(binary) % 4; pad != 0 {
		binary = strings.Repeat("0", 4-pad) + binary
	}

	var sb strings.Builder
	sb.Grow(len(binary) / 4)

	for i := 0; i < len(binary); i += 4 {
		d := 0
		for _, c := range binary[i : i+4] {
			d = d<<1 | int(c-'0')
		}

		if d == 0 && sb.Len() == 0 {
			continue
		}

		sb.WriteByte(hexDigits[d])
	}

	if sb.Len() == 0 {
		return "0", nil
	}

	return sb.String(), nil
}

// ParseHex decodes a hexadecimal string into its unsigned value.
func ParseHex(hex string) (uint64, error) {
	if hex == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidHexDigit)
	}

	var v uint64
	significant := 0

	for _, c := range hex {
		d, ok := hexValue(c)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidHexDigit, c)
		}

		if d == 0 && significant == 0 {
			continue
		}

		significant++
		if significant > 16 {
			return 0, fmt.Errorf("%w: %q", ErrOverflow, hex)
		}

		v = v<<4 | uint64(d)
	}

	return v, nil
}

func hexValue(c rune) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
