package util

import "testing"

func TestEnvOr(t *testing.T) {
	t.Setenv("SWIFTSEND_TEST_ENV", "  value  ")
	if got := EnvOr("SWIFTSEND_TEST_ENV", "fallback"); got != "value" {
		t.Errorf("EnvOr returned %q, want %q", got, "value")
	}
	t.Setenv("SWIFTSEND_TEST_ENV", "   ")
	if got := EnvOr("SWIFTSEND_TEST_ENV", "fallback"); got != "fallback" {
		t.Errorf("EnvOr on blank value returned %q, want fallback", got)
	}
	if got := EnvOr("SWIFTSEND_TEST_ENV_UNSET", "fallback"); got != "fallback" {
		t.Errorf("EnvOr on unset variable returned %q, want fallback", got)
	}
}

func TestBoolEnv(t *testing.T) {
	cases := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"", true, true},
		{"maybe", false, false},
		{"maybe", true, true},
	}
	for _, tc := range cases {
		t.Setenv("SWIFTSEND_TEST_BOOL", tc.value)
		if got := BoolEnv("SWIFTSEND_TEST_BOOL", tc.fallback); got != tc.want {
			t.Errorf("BoolEnv(%q, %v) = %v, want %v", tc.value, tc.fallback, got, tc.want)
		}
	}
}
