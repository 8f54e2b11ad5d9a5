// Package util provides utility functions for the SwiftSend application.
package util

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2 for non-cryptographic identifiers.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateRandomAlphaNumeric generates a random alphanumeric string of the
// specified length. The alphabet deliberately excludes '|', which is reserved
// as the reply-id field separator, and ambiguous characters (0/O, 1/I/l).
func GenerateRandomAlphaNumeric(length int) string {
	if length <= 0 {
		return ""
	}

	const chars = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(chars[rand.IntN(len(chars))])
	}

	return builder.String()
}

// GenerateRefCode generates a human-readable order reference like "ORD-4821".
func GenerateRefCode() string {
	return fmt.Sprintf("ORD-%04d", rand.IntN(10000))
}

// GenerateStopCode generates the 4-digit numeric stop code given to the
// customer at creation.
func GenerateStopCode() string {
	return fmt.Sprintf("%04d", rand.IntN(10000))
}

// GenerateLinkCode generates a short one-time vendor link code.
func GenerateLinkCode() string {
	return GenerateRandomAlphaNumeric(6)
}

// GenerateRiderID generates a unique rider ID with "rd_" prefix.
func GenerateRiderID() string {
	return "rd_" + GenerateRandomHex(16)
}

// MaskPhone obscures the middle digits of a phone number for display,
// e.g. "2348011112222" becomes "2348****2222".
func MaskPhone(phone string) string {
	if len(phone) <= 8 {
		return phone
	}
	return phone[:4] + strings.Repeat("*", len(phone)-8) + phone[len(phone)-4:]
}
