// Package util provides phone number normalization helpers.
//
// Rider and customer phones arrive in whichever format a human typed:
// local with a leading zero ("08011112222"), international digits
// ("2348011112222"), or plus-prefixed ("+2348011112222"). Storage formats
// are equally inconsistent, so lookups work over all variants.
package util

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is prepended when converting local numbers.
const DefaultCountryCode = "234"

var (
	localMobileRe = regexp.MustCompile(`^0[789][01]\d{8}$`)
	intlMobileRe  = regexp.MustCompile(`^` + DefaultCountryCode + `[789][01]\d{8}$`)
)

// StripPhone removes everything except digits.
func StripPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalizePhone converts any accepted format to international digits
// form ("2348011112222"). Unrecognized input is returned stripped.
func CanonicalizePhone(phone string) string {
	digits := StripPhone(phone)
	if localMobileRe.MatchString(digits) {
		return DefaultCountryCode + digits[1:]
	}
	return digits
}

// PhoneVariants returns the formats a stored phone might use for the given
// number: international digits, local leading-zero, and plus-prefixed
// international, in lookup order.
func PhoneVariants(phone string) []string {
	intl := CanonicalizePhone(phone)
	variants := []string{intl}
	if strings.HasPrefix(intl, DefaultCountryCode) && len(intl) == len(DefaultCountryCode)+10 {
		variants = append(variants, "0"+intl[len(DefaultCountryCode):])
	}
	variants = append(variants, "+"+intl)
	return variants
}

// IsValidMobile reports whether the input is an accepted local or
// international mobile number.
func IsValidMobile(phone string) bool {
	digits := StripPhone(phone)
	return localMobileRe.MatchString(digits) || intlMobileRe.MatchString(digits)
}
