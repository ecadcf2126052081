package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vidsteg/internal/framestore"
	"vidsteg/internal/logging"
	"vidsteg/internal/metrics"
	"vidsteg/internal/services"
	"vidsteg/internal/staging"
)

// State names a step of the encode or decode state machine.
type State string

const (
	StateInit             State = "init"
	StateFramesExtracted  State = "frames_extracted"
	StateEncrypted        State = "encrypted"
	StateFragmentsPlaced  State = "fragments_placed"
	StateReassembled      State = "reassembled"
	StateIndicesResolved  State = "indices_resolved"
	StateFramesProbed     State = "frames_probed"
	StateFragmentsOrdered State = "fragments_ordered"
	StateDecrypted        State = "decrypted"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

const (
	operationEncode = "encode"
	operationDecode = "decode"
)

// StepError reports the single step an encode or decode run failed on. It
// unwraps to the underlying error so services markers remain matchable.
type StepError struct {
	Operation string
	// State is the transition that was being attempted.
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Operation, e.State, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FrameStore is the video I/O the orchestrators depend on.
type FrameStore interface {
	Extract(ctx context.Context, video, dir string) (framestore.FrameSet, error)
	ExtractUpTo(ctx context.Context, video, dir string, last int) (framestore.FrameSet, error)
	Reassemble(ctx context.Context, req framestore.ReassembleRequest) error
}

// tracker records state transitions for one run and emits the matching log
// records and metrics.
type tracker struct {
	ctx       context.Context
	operation string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	started   time.Time
	states    []State
}

func newTracker(ctx context.Context, operation string, logger *slog.Logger, m *metrics.Metrics) *tracker {
	return &tracker{
		ctx:       ctx,
		operation: operation,
		logger:    logger,
		metrics:   m,
		started:   time.Now(),
		states:    []State{StateInit},
	}
}

func (t *tracker) log() *slog.Logger {
	return logging.WithContext(services.WithStep(t.ctx, string(t.current())), t.logger)
}

func (t *tracker) current() State {
	return t.states[len(t.states)-1]
}

func (t *tracker) advance(next State, attrs ...logging.Attr) {
	t.states = append(t.states, next)
	attrs = append(attrs, logging.String(logging.FieldEventType, "state_transition"))
	t.log().Debug(t.operation+" state advanced", logging.Args(attrs...)...)
}

func (t *tracker) fail(target State, err error) error {
	t.states = append(t.states, StateFailed)
	logging.ErrorWithContext(t.log(), t.operation+" failed", t.operation+"_failed",
		logging.String("failed_step", string(target)),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
	t.metrics.ObserveOperation(t.operation, metrics.OutcomeFailure, time.Since(t.started))
	return &StepError{Operation: t.operation, State: target, Err: err}
}

func (t *tracker) finish(outcome string) {
	t.states = append(t.states, StateDone)
	t.metrics.ObserveOperation(t.operation, outcome, time.Since(t.started))
}

func (t *tracker) snapshot() []State {
	return append([]State(nil), t.states...)
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "InsufficientFramesError":
		return "use a longer carrier video or lower video.fragment_budget"
	case "MissingCredentialError":
		return "supply --key for symmetric or the key file for asymmetric"
	case "DecryptionError":
		return "check the key and scheme match the ones used to encode"
	case "MissingFrameIndicesError":
		return "pass either --manifest or --frames"
	case "ExternalToolError":
		return "run vidsteg doctor and check ffmpeg output"
	default:
		return "check inputs and logs for details"
	}
}

func releaseWorkspace(run *tracker, ws *staging.Workspace) {
	if err := ws.Release(); err != nil {
		logging.WarnWithContext(run.log(), "failed to remove staging workspace", "staging_cleanup_failed",
			logging.String("path", ws.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run vidsteg staging clean"),
			logging.String(logging.FieldImpact, "frame files remain on disk"),
		)
	}
}
