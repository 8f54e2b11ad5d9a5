package util

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerateRefCodeFormat(t *testing.T) {
	re := regexp.MustCompile(`^ORD-\d{4}$`)
	for i := 0; i < 50; i++ {
		if code := GenerateRefCode(); !re.MatchString(code) {
			t.Fatalf("unexpected ref code format: %q", code)
		}
	}
}

func TestGenerateStopCodeIsFourDigits(t *testing.T) {
	re := regexp.MustCompile(`^\d{4}$`)
	for i := 0; i < 50; i++ {
		if code := GenerateStopCode(); !re.MatchString(code) {
			t.Fatalf("unexpected stop code format: %q", code)
		}
	}
}

func TestGenerateLinkCodeAlphabet(t *testing.T) {
	// The separator must never appear in generated ids so that structured
	// reply ids split unambiguously.
	for i := 0; i < 100; i++ {
		code := GenerateLinkCode()
		if len(code) != 6 {
			t.Fatalf("expected 6-char link code, got %q", code)
		}
		if strings.ContainsAny(code, "|_01OIl") {
			t.Fatalf("link code contains reserved or ambiguous character: %q", code)
		}
	}
}

func TestGenerateRiderID(t *testing.T) {
	id := GenerateRiderID()
	if !strings.HasPrefix(id, "rd_") || len(id) != 3+16 {
		t.Errorf("unexpected rider id: %q", id)
	}
	if strings.Contains(id[3:], "|") {
		t.Errorf("rider id contains separator: %q", id)
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("2348011112222"); got != "2348*****2222" {
		t.Errorf("MaskPhone = %q", got)
	}
	if got := MaskPhone("12345678"); got != "12345678" {
		t.Errorf("short numbers should not be masked, got %q", got)
	}
}
