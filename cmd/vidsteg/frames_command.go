package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vidsteg/internal/frameselect"
	"vidsteg/internal/services"
)

func newFramesCommand(ctx *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "frames TOTAL",
		Short: "Preview which frames would carry fragments",
		Long: `Show the frame indices encode selects for a video with TOTAL frames.
The fragment count defaults to video.fragment_budget.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			total, err := strconv.Atoi(args[0])
			if err != nil || total < 0 {
				return services.Wrap(services.ErrValidation, "cli", "frames", fmt.Sprintf("TOTAL must be a non-negative integer, got %q", args[0]), nil)
			}
			if count == 0 {
				count = cfg.Video.FragmentBudget
			}

			indices, err := frameselect.Select(total, count)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"total_frames": total,
					"count":        count,
					"indices":      indices,
					"manifest":     frameselect.FormatManifest(indices),
				})
			}

			rows := make([][]string, 0, len(indices))
			for i, index := range indices {
				rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(index)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Fragment", "Frame"},
				rows,
				[]columnAlignment{alignRight, alignRight},
			))
			fmt.Fprintf(out, "Manifest: %s\n", frameselect.FormatManifest(indices))
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of fragments (default video.fragment_budget)")

	return cmd
}
