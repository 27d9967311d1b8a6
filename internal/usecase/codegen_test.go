//go:build !integration

package usecase

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	for _, length := range []int{6, 12, 16} {
		code, err := generateCode(length)
		if err != nil {
			t.Fatalf("generateCode(%d): %v", length, err)
		}
		if len(code) != length {
			t.Errorf("expected length %d, got %d (%q)", length, len(code), code)
		}
		for _, ch := range code {
			if !strings.ContainsRune(codeAlphabet, ch) {
				t.Errorf("character %q outside the code alphabet", ch)
			}
		}
	}
}

func TestGenerateCode_AlphabetExcludesConfusables(t *testing.T) {
	for _, ch := range "0O1Il" {
		if strings.ContainsRune(codeAlphabet, ch) {
			t.Errorf("alphabet contains confusable character %q", ch)
		}
	}
}

func TestGenerateCode_NotConstant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateCode(6)
		if err != nil {
			t.Fatal(err)
		}
		seen[code] = true
	}
	// 50 draws from a 32^6 space should essentially never collide, let alone
	// all collapse to one value.
	if len(seen) < 45 {
		t.Fatalf("expected ~50 distinct codes, got %d", len(seen))
	}
}
