package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vidsteg/internal/cipher"
	"vidsteg/internal/config"
	"vidsteg/internal/fileutil"
	"vidsteg/internal/fragment"
	"vidsteg/internal/frameselect"
	"vidsteg/internal/framestore"
	"vidsteg/internal/logging"
	"vidsteg/internal/metrics"
	"vidsteg/internal/services"
	"vidsteg/internal/staging"
	"vidsteg/internal/stego"
)

// EncodeRequest describes one encode run.
type EncodeRequest struct {
	VideoPath   string
	Message     string
	Scheme      cipher.Scheme
	Credentials cipher.Credentials
	// ManifestCarrierPath, when set, receives the encrypted frame index list.
	ManifestCarrierPath string
	// OutputPath defaults to <output_dir>/<base>-encoded.<container>.
	OutputPath string
	// ManifestOutputPath defaults to <output_dir>/<base>-manifest.png.
	ManifestOutputPath string
}

// EncodeResult is the published artifact of a successful encode.
type EncodeResult struct {
	VideoPath    string
	ManifestPath string
	// WrappedKey is the base64 RSA-OAEP wrapped secret in hybrid mode.
	WrappedKey  string
	Indices     []int
	Fragments   int
	TotalFrames int
	RequestID   string
	States      []State
}

// HasManifest reports whether a manifest image was written.
func (r EncodeResult) HasManifest() bool { return r.ManifestPath != "" }

// HasWrappedKey reports whether the symmetric secret was wrapped for transport.
func (r EncodeResult) HasWrappedKey() bool { return r.WrappedKey != "" }

// Encoder hides encrypted messages in carrier videos.
type Encoder struct {
	frames     FrameStore
	gateway    *cipher.Gateway
	budget     int
	container  string
	stagingDir string
	outputDir  string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewEncoder builds an Encoder from configuration.
func NewEncoder(cfg *config.Config, frames FrameStore, logger *slog.Logger) *Encoder {
	return &Encoder{
		frames: frames,
		gateway: cipher.NewGateway(cipher.KDFParams{
			Time:    cfg.Crypto.Argon2Time,
			Memory:  cfg.Crypto.Argon2MemoryKiB,
			Threads: cfg.Crypto.Argon2Threads,
		}),
		budget:     cfg.Video.FragmentBudget,
		container:  cfg.Video.Container,
		stagingDir: cfg.Paths.StagingDir,
		outputDir:  cfg.Paths.OutputDir,
		logger:     logging.NewComponentLogger(logger, "encoder"),
	}
}

// WithMetrics attaches a metrics collector.
func (e *Encoder) WithMetrics(m *metrics.Metrics) *Encoder {
	e.metrics = m
	return e
}

// Encode runs Init → FramesExtracted → Encrypted → FragmentsPlaced →
// Reassembled → Done. Any failure returns a *StepError and leaves no output
// files behind.
func (e *Encoder) Encode(ctx context.Context, req EncodeRequest) (EncodeResult, error) {
	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	run := newTracker(ctx, operationEncode, e.logger, e.metrics)
	result := EncodeResult{RequestID: requestID}
	fail := func(step State, err error) (EncodeResult, error) {
		err = run.fail(step, err)
		return EncodeResult{RequestID: requestID, States: run.snapshot()}, err
	}

	outputPath, manifestOut, err := e.validate(req)
	if err != nil {
		return fail(StateInit, err)
	}

	run.log().Info("encode started",
		logging.String(logging.FieldEventType, "encode_started"),
		logging.String("video", req.VideoPath),
		logging.String("scheme", req.Scheme.String()),
		logging.Bool("manifest", req.ManifestCarrierPath != ""),
	)

	ws, err := staging.Acquire(e.stagingDir, operationEncode, requestID)
	if err != nil {
		return fail(StateFramesExtracted, err)
	}
	defer releaseWorkspace(run, ws)

	// FramesExtracted
	set, err := e.frames.Extract(ctx, req.VideoPath, ws.Join("frames"))
	if err != nil {
		return fail(StateFramesExtracted, err)
	}
	result.TotalFrames = set.Count
	if set.Count < e.budget {
		err := services.Wrap(services.ErrInsufficientFrames, "encoder", "check frames",
			fmt.Sprintf("video has %d frames; the fragment budget needs %d", set.Count, e.budget), nil)
		return fail(StateFramesExtracted, err)
	}
	run.advance(StateFramesExtracted, logging.Int("frame_count", set.Count))

	// Encrypted
	ciphertext, err := e.gateway.Encrypt([]byte(req.Message), req.Scheme, req.Credentials)
	if err != nil {
		return fail(StateEncrypted, err)
	}
	if req.Credentials.Hybrid(req.Scheme) {
		wrapped, err := cipher.WrapKey(req.Credentials.Secret, req.Credentials.PublicKeyPath)
		if err != nil {
			return fail(StateEncrypted, err)
		}
		result.WrappedKey = wrapped
	}
	run.advance(StateEncrypted, logging.Int("ciphertext_length", len(ciphertext)))

	// FragmentsPlaced
	fragments, err := fragment.Split(ciphertext, e.budget)
	if err != nil {
		return fail(StateFragmentsPlaced, err)
	}
	indices, err := frameselect.Select(set.Count, len(fragments))
	if err != nil {
		return fail(StateFragmentsPlaced, err)
	}
	for i, part := range fragments {
		if err := ctx.Err(); err != nil {
			return fail(StateFragmentsPlaced, err)
		}
		framePath := framestore.FramePath(set.Dir, indices[i])
		if err := stego.HideFile(framePath, framePath, part); err != nil {
			err = fmt.Errorf("frame %d: %w", indices[i], err)
			return fail(StateFragmentsPlaced, err)
		}
		run.log().Debug("fragment hidden",
			logging.FrameIndex(indices[i]),
			logging.Int("fragment", i),
			logging.Int("length", len(part)),
		)
	}
	e.metrics.AddFragments(len(fragments))
	result.Indices = indices
	result.Fragments = len(fragments)

	stagedManifest := ""
	if req.ManifestCarrierPath != "" {
		stagedManifest = ws.Join("manifest.png")
		carrier := ws.Join("carrier" + filepath.Ext(req.ManifestCarrierPath))
		if err := fileutil.CopyFile(req.ManifestCarrierPath, carrier); err != nil {
			return fail(StateFragmentsPlaced, fmt.Errorf("stage manifest carrier: %w", err))
		}
		if err := e.writeManifest(req, indices, carrier, stagedManifest); err != nil {
			return fail(StateFragmentsPlaced, err)
		}
	}
	run.advance(StateFragmentsPlaced,
		logging.Int("fragment_count", len(fragments)),
		logging.String("indices", frameselect.FormatManifest(indices)),
	)

	// Reassembled
	stagedVideo := ws.Join("out", "encoded"+filepath.Ext(outputPath))
	if err := e.frames.Reassemble(ctx, framestore.ReassembleRequest{
		Frames:  set,
		WorkDir: ws.Path,
		Output:  stagedVideo,
	}); err != nil {
		return fail(StateReassembled, err)
	}
	run.advance(StateReassembled)

	// Publish the manifest before the video; a failed video move removes it.
	if stagedManifest != "" {
		if err := fileutil.MoveFile(stagedManifest, manifestOut); err != nil {
			return fail(StateDone, fmt.Errorf("publish manifest: %w", err))
		}
		result.ManifestPath = manifestOut
	}
	if err := fileutil.MoveFile(stagedVideo, outputPath); err != nil {
		if result.ManifestPath != "" {
			_ = os.Remove(result.ManifestPath)
		}
		return fail(StateDone, fmt.Errorf("publish video: %w", err))
	}
	result.VideoPath = outputPath

	run.finish(metrics.OutcomeSuccess)
	result.States = run.snapshot()
	run.log().Info("encode completed",
		logging.String(logging.FieldEventType, "encode_completed"),
		logging.String("output", result.VideoPath),
		logging.String("manifest_output", result.ManifestPath),
		logging.Int("fragment_count", result.Fragments),
		logging.Bool("wrapped_key", result.HasWrappedKey()),
	)
	return result, nil
}

func (e *Encoder) validate(req EncodeRequest) (string, string, error) {
	if strings.TrimSpace(req.VideoPath) == "" {
		return "", "", services.Wrap(services.ErrValidation, "encoder", "validate", "video path is required", nil)
	}
	if info, err := os.Stat(req.VideoPath); err != nil || info.IsDir() {
		return "", "", services.Wrap(services.ErrValidation, "encoder", "validate", fmt.Sprintf("video %s is not a readable file", req.VideoPath), err)
	}
	if req.Message == "" {
		return "", "", services.Wrap(services.ErrValidation, "encoder", "validate", "message is empty", nil)
	}
	if e.budget < 1 {
		return "", "", services.Wrap(services.ErrConfiguration, "encoder", "validate", "video.fragment_budget must be positive", nil)
	}
	if err := cipher.RequireEncrypt(req.Scheme, req.Credentials); err != nil {
		return "", "", err
	}
	if req.ManifestCarrierPath != "" {
		if _, err := os.Stat(req.ManifestCarrierPath); err != nil {
			return "", "", services.Wrap(services.ErrValidation, "encoder", "validate", fmt.Sprintf("manifest carrier %s", req.ManifestCarrierPath), err)
		}
	}

	base := strings.TrimSuffix(filepath.Base(req.VideoPath), filepath.Ext(req.VideoPath))
	output := strings.TrimSpace(req.OutputPath)
	if output == "" {
		output = filepath.Join(e.outputDir, base+"-encoded."+e.container)
	} else if filepath.Ext(output) == "" {
		output += "." + e.container
	}
	manifest := strings.TrimSpace(req.ManifestOutputPath)
	if manifest == "" && req.ManifestCarrierPath != "" {
		manifest = filepath.Join(e.outputDir, base+"-manifest.png")
	}
	return output, manifest, nil
}

// writeManifest encrypts the index list with the run's scheme and hides it in
// the staged copy of the carrier image.
func (e *Encoder) writeManifest(req EncodeRequest, indices []int, carrier, dst string) error {
	payload, err := e.gateway.Encrypt([]byte(frameselect.FormatManifest(indices)), req.Scheme, req.Credentials)
	if err != nil {
		return err
	}
	if err := stego.HideFile(carrier, dst, payload); err != nil {
		return fmt.Errorf("manifest carrier: %w", err)
	}
	return nil
}
