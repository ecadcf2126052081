package fragment_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"vidsteg/internal/fragment"
	"vidsteg/internal/services"
)

func TestSplitBalancedChunks(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		budget int
		want   []string
	}{
		{"shorter than budget", "HELLO WORLD", 15, []string{"H", "E", "L", "L", "O", " ", "W", "O", "R", "L", "D"}},
		{"exact multiple", "abcdef", 3, []string{"ab", "cd", "ef"}},
		{"remainder goes first", "abcdefg", 3, []string{"abc", "de", "fg"}},
		{"single fragment", "abc", 1, []string{"abc"}},
		{"multibyte runes", "héllo", 2, []string{"hél", "lo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fragment.Split(tt.input, tt.budget)
			if err != nil {
				t.Fatalf("Split returned error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitJoinInverse(t *testing.T) {
	inputs := []string{
		"a",
		"HELLO WORLD",
		strings.Repeat("0123456789", 37) + "x",
		"AQAAAAMAAQAABBBBBBBBBBBBBBBBBBBBBBBBBBBB==",
		"ünïcødé ✓ payload",
	}
	for _, s := range inputs {
		for budget := 1; budget <= 40; budget++ {
			parts, err := fragment.Split(s, budget)
			if err != nil {
				t.Fatalf("Split(%q, %d): %v", s, budget, err)
			}
			if len(parts) > budget {
				t.Fatalf("Split(%q, %d) produced %d fragments", s, budget, len(parts))
			}
			if got := fragment.Join(parts); got != s {
				t.Fatalf("Join(Split(%q, %d)) = %q", s, budget, got)
			}
			minLen, maxLen := -1, 0
			for _, p := range parts {
				l := utf8.RuneCountInString(p)
				if l == 0 {
					t.Fatalf("Split(%q, %d) produced an empty fragment", s, budget)
				}
				if minLen < 0 || l < minLen {
					minLen = l
				}
				maxLen = max(maxLen, l)
			}
			if maxLen-minLen > 1 {
				t.Fatalf("Split(%q, %d) fragment sizes range %d..%d", s, budget, minLen, maxLen)
			}
		}
	}
}

func TestSplitEmptyString(t *testing.T) {
	parts, err := fragment.Split("", 15)
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}
	if len(parts) != 0 {
		t.Fatalf("expected no fragments, got %v", parts)
	}
}

func TestSplitRejectsNonPositiveBudget(t *testing.T) {
	for _, budget := range []int{0, -3} {
		if _, err := fragment.Split("abc", budget); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Split budget %d: expected validation error, got %v", budget, err)
		}
	}
}
