package service

import (
	"regexp"
	"testing"
)

var referenceCodePattern = regexp.MustCompile(`^APT-[A-Z0-9]{6,}$`)

func TestGenerateReferenceCodeMatchesSpecPattern(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateReferenceCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !referenceCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match ^APT-[A-Z0-9]{6,}$", code)
		}
	}
}

func TestGenerateReferenceCodeAvoidsLookalikeCharacters(t *testing.T) {
	forbidden := "0O1I"
	for i := 0; i < 50; i++ {
		code, err := GenerateReferenceCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		for _, c := range forbidden {
			if containsRune(code[4:], c) {
				t.Fatalf("code %q contains forbidden lookalike character %q", code, c)
			}
		}
	}
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
