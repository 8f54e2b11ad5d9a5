package util

import (
	"reflect"
	"testing"
)

func TestCanonicalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"08011112222", "2348011112222"},
		{"2348011112222", "2348011112222"},
		{"+2348011112222", "2348011112222"},
		{"0801 111 2222", "2348011112222"},
		{"0911 000 1234", "2349110001234"},
		{"12345", "12345"}, // unrecognized input passes through stripped
	}
	for _, c := range cases {
		if got := CanonicalizePhone(c.in); got != c.want {
			t.Errorf("CanonicalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPhoneVariants(t *testing.T) {
	got := PhoneVariants("08011112222")
	want := []string{"2348011112222", "08011112222", "+2348011112222"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PhoneVariants = %v, want %v", got, want)
	}
}

func TestIsValidMobile(t *testing.T) {
	valid := []string{"08011112222", "2348011112222", "+2348011112222", "07061234567", "09130001122"}
	for _, p := range valid {
		if !IsValidMobile(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}
	invalid := []string{"", "0801111222", "080111122223", "1234567890", "0601234567", "hello"}
	for _, p := range invalid {
		if IsValidMobile(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}
