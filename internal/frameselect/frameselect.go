// Package frameselect chooses which video frames carry payload fragments and
// formats the resulting index list for the manifest channel.
//
// Selection is a pure function of the total frame count and the fragment
// count, so an encoder and a decoder given the same inputs always agree.
package frameselect

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"vidsteg/internal/services"
)

// MaxIndex is the largest frame index accepted from a caller or a manifest,
// a little over 155 hours of video at 30 fps.
const MaxIndex = 1<<24 - 1

// Select returns count strictly increasing frame indices in [0, total).
//
// Indices are spaced evenly at floor(i * total/(count+1)) for i = 1..count,
// computed in float64. If rounding collapses two slots the selection falls
// back to 0..count-1. The fallback is deterministic: with total >= count the
// spacing is at least one frame, so collisions only occur through float
// rounding and the same (total, count) pair always takes the same branch.
func Select(total, count int) ([]int, error) {
	if count < 1 {
		return nil, services.Wrap(services.ErrValidation, "frameselect", "select", fmt.Sprintf("fragment count must be positive, got %d", count), nil)
	}
	if total < count {
		return nil, services.Wrap(services.ErrInsufficientFrames, "frameselect", "select",
			fmt.Sprintf("video has %d frames, need at least %d", total, count), nil)
	}

	stride := float64(total) / float64(count+1)
	indices := make([]int, 0, count)
	for i := 1; i <= count; i++ {
		indices = append(indices, int(float64(i)*stride))
	}
	indices = Normalize(indices)
	if len(indices) < count {
		indices = indices[:0]
		for i := range count {
			indices = append(indices, i)
		}
	}
	return indices, nil
}

// Normalize returns a sorted copy of indices with duplicates removed.
func Normalize(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}

// FormatManifest renders indices as the manifest payload, e.g. "[9, 18, 27]".
func FormatManifest(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ParseManifest parses a decrypted manifest payload produced by FormatManifest.
// The result is normalized.
func ParseManifest(payload string) ([]int, error) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, services.Wrap(services.ErrValidation, "frameselect", "parse manifest", "manifest is not a bracketed index list", nil)
	}
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return nil, services.Wrap(services.ErrValidation, "frameselect", "parse manifest", "manifest lists no frames", nil)
	}
	return parseIndices(inner, "parse manifest")
}

// ParseList parses a caller supplied list such as "10, 20,30". Whitespace is
// ignored. The result is normalized.
func ParseList(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, services.Wrap(services.ErrValidation, "frameselect", "parse list", "frame list is empty", nil)
	}
	return parseIndices(list, "parse list")
}

func parseIndices(list, operation string) ([]int, error) {
	fields := strings.Split(list, ",")
	indices := make([]int, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		value, err := strconv.Atoi(field)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "frameselect", operation, fmt.Sprintf("invalid frame index %q", field), nil)
		}
		if value < 0 {
			return nil, services.Wrap(services.ErrValidation, "frameselect", operation, fmt.Sprintf("frame index %d is negative", value), nil)
		}
		if value > MaxIndex {
			return nil, services.Wrap(services.ErrValidation, "frameselect", operation, fmt.Sprintf("frame index %d exceeds %d", value, MaxIndex), nil)
		}
		indices = append(indices, value)
	}
	return Normalize(indices), nil
}
