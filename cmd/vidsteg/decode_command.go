package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vidsteg/internal/frameselect"
	"vidsteg/internal/pipeline"
)

type decodeOutput struct {
	Message   string           `json:"message"`
	Recovered bool             `json:"recovered"`
	Indices   []int            `json:"indices"`
	Probes    []pipeline.Probe `json:"probes"`
	Misses    []int            `json:"misses"`
	RequestID string           `json:"request_id"`
	States    []pipeline.State `json:"states"`
}

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var keys keyOptions
	var manifestPath string
	var frameList string
	var report bool

	cmd := &cobra.Command{
		Use:   "decode VIDEO",
		Short: "Recover a hidden message from a video",
		Long: `Reveal the fragments hidden in the selected frames of VIDEO, join them in
frame order and decrypt the result.

Frames are chosen either by a manifest image written during encode
(--manifest) or by an explicit list (--frames "9,18,27"). Frames that carry
no fragment are skipped; use --report to list every probed frame.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var indices []int
			if strings.TrimSpace(frameList) != "" {
				indices, err = frameselect.ParseList(frameList)
				if err != nil {
					return err
				}
			}
			scheme, creds, err := keys.resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireDirectories(cmd.Context(), cfg); err != nil {
				return err
			}

			decoder := pipeline.NewDecoder(cfg, newFrameStore(cfg, logger), logger).WithMetrics(ctx.metrics)
			result, err := decoder.Decode(cmd.Context(), pipeline.DecodeRequest{
				VideoPath:    args[0],
				Scheme:       scheme,
				Credentials:  creds,
				ManifestPath: strings.TrimSpace(manifestPath),
				Indices:      indices,
			})
			ctx.flushMetrics(cfg, logger)
			if err != nil {
				if ctx.JSONMode() {
					return writeJSONError(cmd, err)
				}
				if report && len(result.Probes) > 0 {
					printProbeReport(cmd.ErrOrStderr(), result)
				}
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, decodeOutput{
					Message:   result.Message,
					Recovered: result.Recovered,
					Indices:   result.Indices,
					Probes:    result.Probes,
					Misses:    nonNilInts(result.Misses()),
					RequestID: result.RequestID,
					States:    result.States,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			if report {
				fmt.Fprintln(out)
				printProbeReport(out, result)
			}
			return nil
		},
	}

	keys.bind(cmd, false)
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Manifest image written by encode")
	cmd.Flags().StringVar(&frameList, "frames", "", "Comma separated frame indices, e.g. \"9,18,27\"")
	cmd.Flags().BoolVar(&report, "report", false, "Print a per-frame probe report")

	return cmd
}

func printProbeReport(out io.Writer, result pipeline.DecodeResult) {
	rows := make([][]string, 0, len(result.Probes))
	found := 0
	for _, p := range result.Probes {
		length := "-"
		if p.Found {
			found++
			length = strconv.Itoa(p.Length)
		}
		rows = append(rows, []string{strconv.Itoa(p.Index), yesNo(p.Found), length})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Frame", "Fragment", "Length"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	))
	report := newStatusReport(out)
	report.line("Recovered fragments", recoveryStatus(found, len(result.Probes)),
		fmt.Sprintf("%d of %d probed frames", found, len(result.Probes)))
}

func nonNilInts(values []int) []int {
	if values == nil {
		return []int{}
	}
	return values
}
