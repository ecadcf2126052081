package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"vidsteg/internal/pipeline"
	"vidsteg/internal/services"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type errorOutput struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Operation string `json:"operation,omitempty"`
	Step      string `json:"step,omitempty"`
}

// writeJSONError reports err as a JSON document on stdout and returns err so
// the exit status still reflects the failure.
func writeJSONError(cmd *cobra.Command, err error) error {
	out := errorOutput{Error: err.Error(), Kind: services.Kind(err)}
	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) {
		out.Operation = stepErr.Operation
		out.Step = string(stepErr.State)
	}
	_ = writeJSON(cmd, out)
	return err
}

// exitCode maps an error to the process exit status: 2 for bad input that the
// caller can fix, 1 for everything else.
func exitCode(err error) int {
	switch services.Kind(err) {
	case "ValidationError", "MissingCredentialError", "MissingFrameIndicesError":
		return 2
	default:
		return 1
	}
}
