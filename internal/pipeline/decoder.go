package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"

	"vidsteg/internal/cipher"
	"vidsteg/internal/config"
	"vidsteg/internal/fragment"
	"vidsteg/internal/frameselect"
	"vidsteg/internal/framestore"
	"vidsteg/internal/logging"
	"vidsteg/internal/metrics"
	"vidsteg/internal/services"
	"vidsteg/internal/staging"
	"vidsteg/internal/stego"
)

// NothingRecovered is the message reported when no probed frame carried a
// fragment.
const NothingRecovered = "Failed to recover any message parts from the specified frames."

// DecodeRequest describes one decode run. Exactly one of ManifestPath and
// Indices must be set.
type DecodeRequest struct {
	VideoPath    string
	Scheme       cipher.Scheme
	Credentials  cipher.Credentials
	ManifestPath string
	Indices      []int
}

// Probe records the outcome of revealing one frame.
type Probe struct {
	Index  int  `json:"index"`
	Found  bool `json:"found"`
	Length int  `json:"length"`
}

// DecodeResult is the outcome of a decode run. Recovered is false, and
// Message is NothingRecovered, when no fragment was found.
type DecodeResult struct {
	Message   string
	Recovered bool
	// Ciphertext is the joined fragments, kept for reporting when decryption fails.
	Ciphertext string
	Probes     []Probe
	Indices    []int
	RequestID  string
	States     []State
}

// Misses returns the probed indices that carried no fragment.
func (r DecodeResult) Misses() []int {
	var misses []int
	for _, p := range r.Probes {
		if !p.Found {
			misses = append(misses, p.Index)
		}
	}
	return misses
}

// Decoder recovers messages hidden by Encoder.
type Decoder struct {
	frames     FrameStore
	gateway    *cipher.Gateway
	stagingDir string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewDecoder builds a Decoder from configuration.
func NewDecoder(cfg *config.Config, frames FrameStore, logger *slog.Logger) *Decoder {
	return &Decoder{
		frames: frames,
		gateway: cipher.NewGateway(cipher.KDFParams{
			Time:    cfg.Crypto.Argon2Time,
			Memory:  cfg.Crypto.Argon2MemoryKiB,
			Threads: cfg.Crypto.Argon2Threads,
		}),
		stagingDir: cfg.Paths.StagingDir,
		logger:     logging.NewComponentLogger(logger, "decoder"),
	}
}

// WithMetrics attaches a metrics collector.
func (d *Decoder) WithMetrics(m *metrics.Metrics) *Decoder {
	d.metrics = m
	return d
}

// Decode runs Init → IndicesResolved → FramesProbed → FragmentsOrdered →
// Decrypted → Done. Frames without a payload are misses, not errors. When no
// fragment is found the result reports NothingRecovered with a nil error.
func (d *Decoder) Decode(ctx context.Context, req DecodeRequest) (DecodeResult, error) {
	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	run := newTracker(ctx, operationDecode, d.logger, d.metrics)
	result := DecodeResult{RequestID: requestID}
	fail := func(step State, err error) (DecodeResult, error) {
		err = run.fail(step, err)
		result.States = run.snapshot()
		return result, err
	}

	if err := d.validate(req); err != nil {
		return fail(StateInit, err)
	}

	run.log().Info("decode started",
		logging.String(logging.FieldEventType, "decode_started"),
		logging.String("video", req.VideoPath),
		logging.String("scheme", req.Scheme.String()),
		logging.Bool("manifest", req.ManifestPath != ""),
	)

	// IndicesResolved
	indices, err := d.resolveIndices(req)
	if err != nil {
		return fail(StateIndicesResolved, err)
	}
	result.Indices = indices
	run.advance(StateIndicesResolved, logging.String("indices", frameselect.FormatManifest(indices)))

	// FramesProbed
	ws, err := staging.Acquire(d.stagingDir, operationDecode, requestID)
	if err != nil {
		return fail(StateFramesProbed, err)
	}
	defer releaseWorkspace(run, ws)

	set, err := d.frames.ExtractUpTo(ctx, req.VideoPath, ws.Join("frames"), slices.Max(indices))
	if err != nil {
		return fail(StateFramesProbed, err)
	}
	found := make(map[int]string, len(indices))
	for _, index := range indices {
		if err := ctx.Err(); err != nil {
			return fail(StateFramesProbed, err)
		}
		part, ok := d.probe(run, set, index)
		result.Probes = append(result.Probes, Probe{Index: index, Found: ok, Length: len(part)})
		d.metrics.FrameProbed(ok)
		if ok {
			found[index] = part
		}
	}
	run.advance(StateFramesProbed,
		logging.Int("probed", len(result.Probes)),
		logging.Int("found", len(found)),
	)

	// FragmentsOrdered
	ordered := make([]string, 0, len(found))
	for _, index := range indices {
		if part, ok := found[index]; ok {
			ordered = append(ordered, part)
		}
	}
	result.Ciphertext = fragment.Join(ordered)
	run.advance(StateFragmentsOrdered, logging.Int("fragment_count", len(ordered)))

	if result.Ciphertext == "" {
		result.Message = NothingRecovered
		run.finish(metrics.OutcomeEmpty)
		result.States = run.snapshot()
		logging.WarnWithContext(run.log(), "no message fragments recovered", "nothing_recovered",
			logging.Int("probed", len(result.Probes)),
			logging.String(logging.FieldErrorHint, "check the frame list or manifest matches this video"),
			logging.String(logging.FieldImpact, "no message returned"),
		)
		return result, nil
	}

	// Decrypted
	plaintext, err := d.gateway.Decrypt(result.Ciphertext, req.Scheme, req.Credentials)
	if err != nil {
		if misses := result.Misses(); len(misses) > 0 {
			err = fmt.Errorf("%w (frames %s carried no fragment)", err, frameselect.FormatManifest(misses))
		}
		return fail(StateDecrypted, err)
	}
	run.advance(StateDecrypted)

	result.Message = string(plaintext)
	result.Recovered = true
	run.finish(metrics.OutcomeSuccess)
	result.States = run.snapshot()
	run.log().Info("decode completed",
		logging.String(logging.FieldEventType, "decode_completed"),
		logging.Int("fragment_count", len(ordered)),
		logging.Int("misses", len(result.Misses())),
	)
	return result, nil
}

func (d *Decoder) validate(req DecodeRequest) error {
	if strings.TrimSpace(req.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, "decoder", "validate", "video path is required", nil)
	}
	if info, err := os.Stat(req.VideoPath); err != nil || info.IsDir() {
		return services.Wrap(services.ErrValidation, "decoder", "validate", fmt.Sprintf("video %s is not a readable file", req.VideoPath), err)
	}
	hasManifest := strings.TrimSpace(req.ManifestPath) != ""
	hasIndices := len(req.Indices) > 0
	switch {
	case hasManifest && hasIndices:
		return services.Wrap(services.ErrValidation, "decoder", "validate", "supply either a manifest image or a frame list, not both", nil)
	case !hasManifest && !hasIndices:
		return services.Wrap(services.ErrMissingFrameIndices, "decoder", "validate", "a manifest image or a frame list is required", nil)
	}
	return cipher.RequireDecrypt(req.Scheme, req.Credentials)
}

func (d *Decoder) resolveIndices(req DecodeRequest) ([]int, error) {
	if len(req.Indices) > 0 {
		for _, index := range req.Indices {
			if index < 0 {
				return nil, services.Wrap(services.ErrValidation, "decoder", "resolve indices", fmt.Sprintf("frame index %d is negative", index), nil)
			}
			if index > frameselect.MaxIndex {
				return nil, services.Wrap(services.ErrValidation, "decoder", "resolve indices", fmt.Sprintf("frame index %d exceeds %d", index, frameselect.MaxIndex), nil)
			}
		}
		return frameselect.Normalize(req.Indices), nil
	}

	payload, found, err := stego.RevealFile(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, services.Wrap(services.ErrMissingFrameIndices, "decoder", "read manifest",
			fmt.Sprintf("%s carries no frame map", req.ManifestPath), nil)
	}
	plain, err := d.gateway.Decrypt(payload, req.Scheme, req.Credentials)
	if err != nil {
		return nil, err
	}
	indices, err := frameselect.ParseManifest(string(plain))
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		return nil, services.Wrap(services.ErrMissingFrameIndices, "decoder", "read manifest", "manifest lists no frames", nil)
	}
	return indices, nil
}

// probe reveals the fragment in frame index. A frame past the end of the
// video, an unreadable frame and a frame without payload are all misses.
func (d *Decoder) probe(run *tracker, set framestore.FrameSet, index int) (string, bool) {
	if index >= set.Count {
		d.logMiss(run, index, "frame is past the end of the video", nil)
		return "", false
	}
	part, ok, err := stego.RevealFile(framestore.FramePath(set.Dir, index))
	switch {
	case err != nil:
		d.logMiss(run, index, "frame could not be read", err)
		return "", false
	case !ok || part == "":
		d.logMiss(run, index, "frame carries no payload", nil)
		return "", false
	}
	run.log().Debug("fragment revealed", logging.FrameIndex(index), logging.Int("length", len(part)))
	return part, true
}

func (d *Decoder) logMiss(run *tracker, index int, reason string, err error) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "reveal_miss"),
		logging.FrameIndex(index),
		logging.String("reason", reason),
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		attrs = append(attrs, logging.Error(err))
	}
	run.log().Info("no fragment in frame", logging.Args(attrs...)...)
}
