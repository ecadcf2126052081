package framestore_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"vidsteg/internal/framestore"
	"vidsteg/internal/logging"
	"vidsteg/internal/services"
	"vidsteg/internal/testsupport"
)

const probeWithAudio = `{"streams":[{"codec_type":"video","r_frame_rate":"25/1"},{"codec_type":"audio"}],"format":{}}`
const probeSilent = `{"streams":[{"codec_type":"video","r_frame_rate":"0/0","avg_frame_rate":"0/0"}],"format":{}}`

type fakeFFmpeg struct {
	t        *testing.T
	probe    string
	frames   int
	failStep string
	calls    [][]string
}

func (f *fakeFFmpeg) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if name == "ffprobe" {
		if f.failStep == framestore.StepProbe {
			return nil, errors.New("exit status 1: moov atom not found")
		}
		return []byte(f.probe), nil
	}
	out := args[len(args)-1]
	switch {
	case strings.HasSuffix(out, "%d.png"):
		if f.failStep == framestore.StepExtractFrames {
			return nil, errors.New("exit status 1")
		}
		n := f.frames
		if i := slices.Index(args, "-frames:v"); i >= 0 {
			limit, _ := strconv.Atoi(args[i+1])
			n = min(n, limit)
		}
		testsupport.WriteFrames(f.t, filepath.Dir(out), n, 4, 4)
	case strings.HasSuffix(out, "audio.mka"):
		if f.failStep == framestore.StepExtractAudio {
			return nil, errors.New("exit status 1")
		}
		writeStub(f.t, out)
	case strings.Contains(filepath.Base(out), "stills."):
		if f.failStep == framestore.StepEncodeStills {
			return nil, errors.New("exit status 1")
		}
		writeStub(f.t, out)
	case strings.Contains(filepath.Base(out), "remuxed."):
		if f.failStep == framestore.StepRemux {
			return nil, errors.New("exit status 1: invalid argument")
		}
		writeStub(f.t, out)
	default:
		f.t.Fatalf("unexpected ffmpeg invocation: %v", args)
	}
	return nil, nil
}

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newStore(t *testing.T, fake *fakeFFmpeg) (*framestore.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := framestore.New(cfg, logging.NewNop())
	store.WithCommandRunner(fake.run)
	video := filepath.Join(t.TempDir(), "clip.mp4")
	writeStub(t, video)
	return store, video
}

func TestExtractWritesContiguousFrames(t *testing.T) {
	fake := &fakeFFmpeg{t: t, probe: probeWithAudio, frames: 12}
	store, video := newStore(t, fake)
	dir := filepath.Join(t.TempDir(), "frames")

	set, err := store.Extract(context.Background(), video, dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if set.Count != 12 || set.FrameRate != "25/1" || !set.HasAudio || set.Dir != dir || set.Source != video {
		t.Fatalf("unexpected frame set %+v", set)
	}
	if _, err := os.Stat(framestore.FramePath(dir, 11)); err != nil {
		t.Fatalf("expected last frame on disk: %v", err)
	}
	extract := fake.calls[1]
	if slices.Contains(extract, "-frames:v") {
		t.Fatalf("full extraction must not limit frames: %v", extract)
	}
	if !slices.Contains(extract, "rgb24") || !slices.Contains(extract, "passthrough") {
		t.Fatalf("expected lossless passthrough extraction: %v", extract)
	}
}

func TestExtractUpToLimitsFrames(t *testing.T) {
	fake := &fakeFFmpeg{t: t, probe: probeSilent, frames: 150}
	store, video := newStore(t, fake)

	set, err := store.ExtractUpTo(context.Background(), video, filepath.Join(t.TempDir(), "frames"), 30)
	if err != nil {
		t.Fatalf("ExtractUpTo: %v", err)
	}
	if set.Count != 31 {
		t.Fatalf("expected 31 frames, got %d", set.Count)
	}
	if set.FrameRate != "30" {
		t.Fatalf("expected fallback frame rate, got %q", set.FrameRate)
	}
	if set.HasAudio {
		t.Fatal("expected no audio")
	}
}

func TestExtractUpToRejectsUnboundedIndex(t *testing.T) {
	fake := &fakeFFmpeg{t: t, probe: probeWithAudio, frames: 3}
	store, video := newStore(t, fake)
	_, err := store.ExtractUpTo(context.Background(), video, t.TempDir(), math.MaxInt)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no tool invocations, got %v", fake.calls)
	}
}

func TestExtractCreatesFrameDirectory(t *testing.T) {
	fake := &fakeFFmpeg{t: t, probe: probeWithAudio, frames: 2}
	store, video := newStore(t, fake)
	dir := filepath.Join(t.TempDir(), "encode-1", "frames")
	store.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				t.Fatalf("frame directory must exist before ffmpeg runs: %v", err)
			}
		}
		return fake.run(ctx, name, args...)
	})

	set, err := store.Extract(context.Background(), video, dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if set.Count != 2 {
		t.Fatalf("expected 2 frames, got %d", set.Count)
	}
}

func TestExtractProbeFailureIsExternalToolError(t *testing.T) {
	fake := &fakeFFmpeg{t: t, probe: probeWithAudio, frames: 3, failStep: framestore.StepProbe}
	store, video := newStore(t, fake)
	_, err := store.Extract(context.Background(), video, t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "probe") {
		t.Fatalf("expected probe tool error, got %v", err)
	}
}

func TestExtractMissingSource(t *testing.T) {
	fake := &fakeFFmpeg{t: t, probe: probeWithAudio}
	store, _ := newStore(t, fake)
	_, err := store.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"), t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no tool invocations, got %v", fake.calls)
	}
}

func TestCountFramesDetectsGap(t *testing.T) {
	dir := t.TempDir()
	for _, i := range []int{0, 1, 3} {
		writeStub(t, framestore.FramePath(dir, i))
	}
	writeStub(t, filepath.Join(dir, "notes.txt"))
	if _, err := framestore.CountFrames(dir); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected gap to be reported, got %v", err)
	}
}

func TestReassembleWithAudio(t *testing.T) {
	fake := &fakeFFmpeg{t: t}
	store, video := newStore(t, fake)
	work := t.TempDir()
	frames := filepath.Join(work, "frames")
	testsupport.WriteFrames(t, frames, 5, 4, 4)
	output := filepath.Join(t.TempDir(), "out", "clip-encoded.mkv")

	err := store.Reassemble(context.Background(), framestore.ReassembleRequest{
		Frames:  framestore.FrameSet{Source: video, Dir: frames, Count: 5, FrameRate: "25/1", HasAudio: true},
		WorkDir: work,
		Output:  output,
	})
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if len(fake.calls) != 3 {
		t.Fatalf("expected 3 ffmpeg steps, got %d: %v", len(fake.calls), fake.calls)
	}
	stills := fake.calls[1]
	if i := slices.Index(stills, "-c:v"); i < 0 || stills[i+1] != "png" {
		t.Fatalf("expected png stills codec: %v", stills)
	}
	if i := slices.Index(stills, "-framerate"); i < 0 || stills[i+1] != "25/1" {
		t.Fatalf("expected source frame rate: %v", stills)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "remuxed.mkv" {
		t.Fatalf("expected remuxed output, got %q", data)
	}
}

func TestReassembleWithoutAudioSkipsAudioSteps(t *testing.T) {
	fake := &fakeFFmpeg{t: t}
	store, video := newStore(t, fake)
	work := t.TempDir()
	output := filepath.Join(work, "final.mov")

	err := store.Reassemble(context.Background(), framestore.ReassembleRequest{
		Frames:  framestore.FrameSet{Source: video, Dir: filepath.Join(work, "frames"), Count: 2, FrameRate: "30"},
		WorkDir: work,
		Output:  output,
	})
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a single ffmpeg step, got %v", fake.calls)
	}
	data, _ := os.ReadFile(output)
	if string(data) != "stills.mov" {
		t.Fatalf("expected stills output, got %q", data)
	}
}

func TestReassembleFailureNamesStep(t *testing.T) {
	for _, step := range []string{framestore.StepExtractAudio, framestore.StepEncodeStills, framestore.StepRemux} {
		t.Run(step, func(t *testing.T) {
			fake := &fakeFFmpeg{t: t, failStep: step}
			store, video := newStore(t, fake)
			work := t.TempDir()
			output := filepath.Join(work, "final.mkv")

			err := store.Reassemble(context.Background(), framestore.ReassembleRequest{
				Frames:  framestore.FrameSet{Source: video, Dir: filepath.Join(work, "frames"), Count: 2, FrameRate: "30", HasAudio: true},
				WorkDir: work,
				Output:  output,
			})
			if !errors.Is(err, services.ErrExternalTool) {
				t.Fatalf("expected external tool error, got %v", err)
			}
			if !strings.Contains(err.Error(), step) {
				t.Fatalf("expected step %q in %v", step, err)
			}
			if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
				t.Fatalf("output must not exist after failure, stat err = %v", statErr)
			}
		})
	}
}
