// Package base45 implements the Base45 encoding of RFC 9285.
//
// Base45 maps every two bytes onto three characters of the QR code
// alphanumeric alphabet, so encoded text can be stored in the denser
// alphanumeric QR mode and never contains lowercase letters or line breaks.
package base45

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the 45-character QR alphanumeric set in Base45 order.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

var (
	// ErrInvalidLength is returned when the input length leaves a dangling
	// single character.
	ErrInvalidLength = errors.New("base45: invalid length")

	// ErrInvalidCharacter is returned for characters outside Alphabet.
	ErrInvalidCharacter = errors.New("base45: invalid character")

	// ErrOverflow is returned when a character group encodes a value larger
	// than its byte width allows.
	ErrOverflow = errors.New("base45: group value out of range")
)

var decodeMap = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		m[Alphabet[i]] = int8(i)
	}
	return m
}()

// EncodedLen returns the length of the Base45 encoding of n bytes.
func EncodedLen(n int) int {
	return n/2*3 + n%2*2
}

// MaxDecodedLen returns the largest byte count whose encoding fits in
// n characters.
func MaxDecodedLen(n int) int {
	out := n / 3 * 2
	if n%3 == 2 {
		out++
	}
	return out
}

// Encode returns the Base45 encoding of data.
func Encode(data []byte) string {
	var b strings.Builder
	b.Grow(EncodedLen(len(data)))

	for i := 0; i+1 < len(data); i += 2 {
		n := int(data[i])<<8 | int(data[i+1])
		b.WriteByte(Alphabet[n%45])
		b.WriteByte(Alphabet[n/45%45])
		b.WriteByte(Alphabet[n/2025])
	}
	if len(data)%2 == 1 {
		n := int(data[len(data)-1])
		b.WriteByte(Alphabet[n%45])
		b.WriteByte(Alphabet[n/45])
	}

	return b.String()
}

// Decode decodes Base45 text. Input must already be uppercase.
func Decode(s string) ([]byte, error) {
	if len(s)%3 == 1 {
		return nil, fmt.Errorf("%w: %d characters", ErrInvalidLength, len(s))
	}

	out := make([]byte, 0, MaxDecodedLen(len(s)))
	for i := 0; i < len(s); i += 3 {
		width := 3
		if len(s)-i == 2 {
			width = 2
		}

		n := 0
		mul := 1
		for j := 0; j < width; j++ {
			v := decodeMap[s[i+j]]
			if v < 0 {
				return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidCharacter, s[i+j], i+j)
			}
			n += int(v) * mul
			mul *= 45
		}

		if width == 3 {
			if n > 0xffff {
				return nil, fmt.Errorf("%w: offset %d", ErrOverflow, i)
			}
			out = append(out, byte(n>>8), byte(n))
		} else {
			if n > 0xff {
				return nil, fmt.Errorf("%w: offset %d", ErrOverflow, i)
			}
			out = append(out, byte(n))
		}
	}

	return out, nil
}
