package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidsteg/internal/config"
	"vidsteg/internal/frameselect"
	"vidsteg/internal/pipeline"
	"vidsteg/internal/preflight"
	"vidsteg/internal/services"
)

type encodeOutput struct {
	Video       string           `json:"video"`
	Manifest    string           `json:"manifest,omitempty"`
	WrappedKey  string           `json:"wrapped_key,omitempty"`
	Indices     []int            `json:"indices"`
	Fragments   int              `json:"fragments"`
	TotalFrames int              `json:"total_frames"`
	RequestID   string           `json:"request_id"`
	States      []pipeline.State `json:"states"`
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var keys keyOptions
	var message string
	var messageFile string
	var manifestCarrier string
	var outputPath string
	var manifestOutput string

	cmd := &cobra.Command{
		Use:   "encode VIDEO",
		Short: "Encrypt a message and hide it across the frames of a video",
		Long: `Encrypt a message, split the ciphertext into fragments and hide each
fragment in an evenly spaced frame of VIDEO. The frames are rebuilt into a
lossless video; audio from the source is carried over when present.

With --manifest-carrier the chosen frame indices are encrypted and hidden in
a copy of the given image, which decode can read back with --manifest.`,
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

			text, err := readMessage(cmd.InOrStdin(), message, messageFile)
			if err != nil {
				return err
			}
			scheme, creds, err := keys.resolve(cmd)
			if err != nil {
				return err
			}
			if err := requireDirectories(cmd.Context(), cfg); err != nil {
				return err
			}

			encoder := pipeline.NewEncoder(cfg, newFrameStore(cfg, logger), logger).WithMetrics(ctx.metrics)
			result, err := encoder.Encode(cmd.Context(), pipeline.EncodeRequest{
				VideoPath:           args[0],
				Message:             text,
				Scheme:              scheme,
				Credentials:         creds,
				ManifestCarrierPath: strings.TrimSpace(manifestCarrier),
				OutputPath:          strings.TrimSpace(outputPath),
				ManifestOutputPath:  strings.TrimSpace(manifestOutput),
			})
			ctx.flushMetrics(cfg, logger)
			if err != nil {
				if ctx.JSONMode() {
					return writeJSONError(cmd, err)
				}
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, encodeOutput{
					Video:       result.VideoPath,
					Manifest:    result.ManifestPath,
					WrappedKey:  result.WrappedKey,
					Indices:     result.Indices,
					Fragments:   result.Fragments,
					TotalFrames: result.TotalFrames,
					RequestID:   result.RequestID,
					States:      result.States,
				})
			}
			printEncodeResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	keys.bind(cmd, true)
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message to hide")
	cmd.Flags().StringVar(&messageFile, "message-file", "", "Read the message from a file (- for stdin)")
	cmd.Flags().StringVar(&manifestCarrier, "manifest-carrier", "", "Image that receives the encrypted frame index list")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Encoded video path (default <output_dir>/<name>-encoded.<container>)")
	cmd.Flags().StringVar(&manifestOutput, "manifest-output", "", "Manifest image path (default <output_dir>/<name>-manifest.png)")

	return cmd
}

func readMessage(stdin io.Reader, message, messageFile string) (string, error) {
	messageFile = strings.TrimSpace(messageFile)
	switch {
	case message != "" && messageFile != "":
		return "", services.Wrap(services.ErrValidation, "cli", "message", "use either --message or --message-file", nil)
	case message != "":
		return message, nil
	case messageFile == "":
		return "", services.Wrap(services.ErrValidation, "cli", "message", "--message or --message-file is required", nil)
	}

	var data []byte
	var err error
	if messageFile == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(messageFile)
	}
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cli", "message", "read message file", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// requireDirectories fails fast when a configured directory is unusable.
func requireDirectories(ctx context.Context, cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg))
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, r := range failed {
		details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "directories", strings.Join(details, "; "), nil)
}

func printEncodeResult(out io.Writer, result pipeline.EncodeResult) {
	size := "size unknown"
	if info, err := os.Stat(result.VideoPath); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	fmt.Fprintf(out, "Encoded video:   %s (%s)\n", result.VideoPath, size)
	fmt.Fprintf(out, "Carrier frames:  %d of %d\n", result.Fragments, result.TotalFrames)
	fmt.Fprintf(out, "Frame indices:   %s\n", frameselect.FormatManifest(result.Indices))
	if result.HasManifest() {
		fmt.Fprintf(out, "Manifest image:  %s\n", result.ManifestPath)
	}
	if result.HasWrappedKey() {
		fmt.Fprintf(out, "Wrapped key:     %s\n", result.WrappedKey)
		fmt.Fprintln(out, "Recover the secret with `vidsteg unwrap-key` and the matching private key.")
	}
}
