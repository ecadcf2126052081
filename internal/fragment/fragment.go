// Package fragment partitions ciphertext into ordered fragments, one per
// carrier frame, and reassembles them.
package fragment

import (
	"fmt"
	"strings"

	"vidsteg/internal/services"
)

// Split partitions s into at most budget contiguous, non-empty fragments whose
// lengths (in runes) differ by at most one. Concatenating the result in order
// yields s exactly. When s is shorter than budget, one fragment per rune is
// returned; an empty string yields no fragments.
func Split(s string, budget int) ([]string, error) {
	if budget <= 0 {
		return nil, services.Wrap(services.ErrValidation, "fragment", "split", fmt.Sprintf("fragment budget must be positive, got %d", budget), nil)
	}
	if s == "" {
		return nil, nil
	}

	runes := []rune(s)
	n := min(budget, len(runes))
	base, extra := len(runes)/n, len(runes)%n

	fragments := make([]string, 0, n)
	start := 0
	for i := range n {
		size := base
		if i < extra {
			size++
		}
		fragments = append(fragments, string(runes[start:start+size]))
		start += size
	}
	return fragments, nil
}

// Join concatenates fragments in the order given. Callers pass fragments
// already sorted by carrier frame index.
func Join(fragments []string) string {
	return strings.Join(fragments, "")
}
