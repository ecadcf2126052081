package framestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"vidsteg/internal/config"
	"vidsteg/internal/fileutil"
	"vidsteg/internal/logging"
	"vidsteg/internal/media/ffprobe"
	"vidsteg/internal/services"
)

// Step names reported in ExternalTool errors.
const (
	StepProbe         = "probe"
	StepExtractFrames = "extract_frames"
	StepExtractAudio  = "extract_audio"
	StepEncodeStills  = "encode_stills"
	StepRemux         = "remux"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FrameSet describes frames extracted from a source video.
type FrameSet struct {
	Source    string
	Dir       string
	Count     int
	FrameRate string
	HasAudio  bool
}

// ReassembleRequest describes a stills-plus-audio rebuild.
type ReassembleRequest struct {
	Frames FrameSet
	// WorkDir holds intermediate audio and video files.
	WorkDir string
	// Output is the final video path; it only appears when every step succeeds.
	Output string
}

// Store extracts and reassembles frame sequences.
type Store struct {
	ffmpeg       string
	ffprobe      string
	fallbackRate string
	container    string
	logger       *slog.Logger
	run          CommandRunner
}

// New constructs a Store from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Store {
	s := &Store{
		ffmpeg:       "ffmpeg",
		ffprobe:      "ffprobe",
		fallbackRate: "30",
		container:    "mkv",
		logger:       logging.NewComponentLogger(logger, "framestore"),
		run:          defaultCommandRunner,
	}
	if cfg != nil {
		s.ffmpeg = cfg.FFmpegBinary()
		s.ffprobe = cfg.FFprobeBinary()
		if cfg.Video.FallbackFrameRate != "" {
			s.fallbackRate = cfg.Video.FallbackFrameRate
		}
		if cfg.Video.Container != "" {
			s.container = cfg.Video.Container
		}
	}
	return s
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (s *Store) WithCommandRunner(r CommandRunner) {
	if s != nil && r != nil {
		s.run = r
	}
}

// Container returns the configured output container extension.
func (s *Store) Container() string {
	return s.container
}

// FramePath returns the file holding frame index inside dir.
func FramePath(dir string, index int) string {
	return filepath.Join(dir, strconv.Itoa(index)+".png")
}

// Probe inspects video with ffprobe.
func (s *Store) Probe(ctx context.Context, video string) (ffprobe.Result, error) {
	output, err := s.run(ctx, s.ffprobe, ffprobe.Args(video)...)
	if err != nil {
		return ffprobe.Result{}, toolError(StepProbe, s.ffprobe, err)
	}
	result, err := ffprobe.Parse(output)
	if err != nil {
		return ffprobe.Result{}, toolError(StepProbe, s.ffprobe, err)
	}
	if result.VideoStreamCount() == 0 {
		return ffprobe.Result{}, services.Wrap(services.ErrValidation, "framestore", StepProbe, fmt.Sprintf("%s has no video stream", video), nil)
	}
	return result, nil
}

// Extract writes every frame of video into dir.
func (s *Store) Extract(ctx context.Context, video, dir string) (FrameSet, error) {
	return s.extract(ctx, video, dir, -1)
}

// ExtractUpTo decodes video sequentially and writes frames 0..last into dir.
// Fewer frames are written when the video is shorter.
func (s *Store) ExtractUpTo(ctx context.Context, video, dir string, last int) (FrameSet, error) {
	if last < 0 {
		return FrameSet{}, services.Wrap(services.ErrValidation, "framestore", StepExtractFrames, "last frame index must not be negative", nil)
	}
	if last == math.MaxInt {
		return FrameSet{}, services.Wrap(services.ErrValidation, "framestore", StepExtractFrames, "last frame index is out of range", nil)
	}
	return s.extract(ctx, video, dir, last)
}

func (s *Store) extract(ctx context.Context, video, dir string, last int) (FrameSet, error) {
	if _, err := os.Stat(video); err != nil {
		return FrameSet{}, services.Wrap(services.ErrValidation, "framestore", StepExtractFrames, fmt.Sprintf("source video %s", video), err)
	}
	probe, err := s.Probe(ctx, video)
	if err != nil {
		return FrameSet{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FrameSet{}, fmt.Errorf("create frame directory: %w", err)
	}

	args := []string{"-nostdin", "-v", "error", "-i", video, "-map", "0:v:0", "-fps_mode", "passthrough"}
	if last >= 0 {
		args = append(args, "-frames:v", strconv.Itoa(last+1))
	}
	args = append(args, "-pix_fmt", "rgb24", "-start_number", "0", filepath.Join(dir, "%d.png"))

	s.logger.Debug("extracting frames",
		logging.String("video", video),
		logging.Int("last_index", last),
	)
	if _, err := s.run(ctx, s.ffmpeg, args...); err != nil {
		return FrameSet{}, toolError(StepExtractFrames, s.ffmpeg, err)
	}

	count, err := CountFrames(dir)
	if err != nil {
		return FrameSet{}, err
	}

	rate := probe.FrameRate()
	if rate == "" {
		rate = s.fallbackRate
		logging.WarnWithContext(s.logger, "source frame rate unknown", "frame_rate_fallback",
			logging.String("video", video),
			logging.String("fallback_rate", rate),
			logging.String(logging.FieldImpact, "output playback speed may differ from the source"),
			logging.String(logging.FieldErrorHint, "set video.fallback_frame_rate to the source rate"),
		)
	}

	set := FrameSet{
		Source:    video,
		Dir:       dir,
		Count:     count,
		FrameRate: rate,
		HasAudio:  probe.HasAudio(),
	}
	s.logger.Info("frames extracted",
		logging.String(logging.FieldEventType, "frames_extracted"),
		logging.Int("frame_count", set.Count),
		logging.String("frame_rate", set.FrameRate),
		logging.Bool("has_audio", set.HasAudio),
	)
	return set, nil
}

// CountFrames returns the number of frames in dir and verifies they are
// numbered contiguously from zero.
func CountFrames(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read frame directory: %w", err)
	}
	seen := make(map[int]struct{}, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".png") {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(name, ".png"))
		if err != nil || index < 0 {
			continue
		}
		seen[index] = struct{}{}
	}
	for i := range len(seen) {
		if _, ok := seen[i]; !ok {
			return 0, services.Wrap(services.ErrExternalTool, "framestore", StepExtractFrames,
				fmt.Sprintf("frame sequence has a gap at index %d", i), nil)
		}
	}
	return len(seen), nil
}

// Reassemble rebuilds a playable video from req.Frames, carrying over the
// source audio when present. The output is moved into place only after every
// step succeeds.
func (s *Store) Reassemble(ctx context.Context, req ReassembleRequest) error {
	if req.Frames.Count == 0 {
		return services.Wrap(services.ErrValidation, "framestore", StepEncodeStills, "no frames to reassemble", nil)
	}
	if strings.TrimSpace(req.Output) == "" {
		return services.Wrap(services.ErrValidation, "framestore", StepRemux, "output path is required", nil)
	}
	workDir := req.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(req.Frames.Dir)
	}
	ext := strings.TrimPrefix(filepath.Ext(req.Output), ".")
	if ext == "" {
		ext = s.container
	}
	rate := req.Frames.FrameRate
	if rate == "" {
		rate = s.fallbackRate
	}

	audioPath := filepath.Join(workDir, "audio.mka")
	if req.Frames.HasAudio {
		args := []string{"-nostdin", "-v", "error", "-y", "-i", req.Frames.Source, "-map", "0:a:0", "-vn", "-c:a", "copy", audioPath}
		if _, err := s.run(ctx, s.ffmpeg, args...); err != nil {
			return toolError(StepExtractAudio, s.ffmpeg, err)
		}
	}

	stillsPath := filepath.Join(workDir, "stills."+ext)
	args := []string{
		"-nostdin", "-v", "error", "-y",
		"-framerate", rate, "-start_number", "0", "-i", filepath.Join(req.Frames.Dir, "%d.png"),
		"-frames:v", strconv.Itoa(req.Frames.Count),
		"-c:v", "png", "-pix_fmt", "rgb24", stillsPath,
	}
	if _, err := s.run(ctx, s.ffmpeg, args...); err != nil {
		return toolError(StepEncodeStills, s.ffmpeg, err)
	}

	result := stillsPath
	if req.Frames.HasAudio {
		result = filepath.Join(workDir, "remuxed."+ext)
		args := []string{
			"-nostdin", "-v", "error", "-y",
			"-i", stillsPath, "-i", audioPath,
			"-map", "0:v:0", "-map", "1:a:0", "-c", "copy", result,
		}
		if _, err := s.run(ctx, s.ffmpeg, args...); err != nil {
			return toolError(StepRemux, s.ffmpeg, err)
		}
	}

	if err := fileutil.MoveFile(result, req.Output); err != nil {
		return fmt.Errorf("publish reassembled video: %w", err)
	}
	s.logger.Info("video reassembled",
		logging.String(logging.FieldEventType, "video_reassembled"),
		logging.String("output", req.Output),
		logging.Int("frame_count", req.Frames.Count),
		logging.Bool("audio_copied", req.Frames.HasAudio),
	)
	return nil
}

func toolError(step, binary string, err error) error {
	return services.Wrap(services.ErrExternalTool, "framestore", step, fmt.Sprintf("%s failed", filepath.Base(binary)), err)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("exit status %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return output, err
	}
	return output, nil
}
