// Package cards produces display-safe card numbers until a provisioning
// service issues real ones.
package cards

import (
	"math/rand/v2"
	"strings"
)

// TestBIN is the issuer prefix of every placeholder number. The 9 major
// industry identifier is reserved for national assignment and is never routed
// by card networks.
const TestBIN = "999000"

// NumberLength is the length of a generated number including the check digit.
const NumberLength = 16

// PlaceholderNumber returns a 16-digit number under TestBIN with a valid Luhn
// check digit.
func PlaceholderNumber() string {
	digits := make([]byte, 0, NumberLength)
	digits = append(digits, TestBIN...)
	for len(digits) < NumberLength-1 {
		digits = append(digits, byte('0'+rand.IntN(10)))
	}
	digits = append(digits, luhnCheckDigit(digits))
	return string(digits)
}

// IsPlaceholder reports whether number was produced by PlaceholderNumber.
func IsPlaceholder(number string) bool {
	number = strings.ReplaceAll(number, " ", "")
	return strings.HasPrefix(number, TestBIN) && len(number) == NumberLength && LuhnValid(number)
}

// LuhnValid reports whether a digit string passes the Luhn checksum.
func LuhnValid(number string) bool {
	if len(number) < 2 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func luhnCheckDigit(payload []byte) byte {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}

// Group formats a number in blocks of four.
func Group(number string) string {
	var b strings.Builder
	for i, r := range number {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Mask hides all but the last four digits.
func Mask(number string) string {
	number = strings.ReplaceAll(number, " ", "")
	if len(number) <= 4 {
		return number
	}
	return "**** **** **** " + number[len(number)-4:]
}
