package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrInsufficientFrames  = errors.New("insufficient frames")
	ErrMissingCredential   = errors.New("missing credential")
	ErrDecryption          = errors.New("decryption error")
	ErrMissingFrameIndices = errors.New("missing frame indices")
	ErrExternalTool        = errors.New("external tool error")
	ErrConfiguration       = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

var kinds = []struct {
	marker error
	name   string
}{
	{ErrInsufficientFrames, "InsufficientFramesError"},
	{ErrMissingCredential, "MissingCredentialError"},
	{ErrDecryption, "DecryptionError"},
	{ErrMissingFrameIndices, "MissingFrameIndicesError"},
	{ErrExternalTool, "ExternalToolError"},
	{ErrConfiguration, "ConfigurationError"},
	{ErrValidation, "ValidationError"},
}

// Kind returns the taxonomy name for err, or "Error" when no marker is present.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "Error"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
