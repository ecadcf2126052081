package deps

import (
	"context"
	"fmt"
	"strings"
)

// CheckEncoder reports whether the ffmpeg binary lists encoder among its
// video encoders. Encoded videos store frames with the lossless png codec, so
// a build without it cannot produce decodable output.
func CheckEncoder(ctx context.Context, ffmpegCommand, encoder string) Status {
	result := Status{
		Name:        "FFmpeg " + encoder + " encoder",
		Command:     strings.TrimSpace(ffmpegCommand),
		Description: "Required to store payload frames losslessly",
	}
	if result.Command == "" {
		result.Detail = "command not configured"
		return result
	}
	listing := run(ctx, result.Command, "-hide_banner", "-encoders")
	if listing == "" {
		result.Detail = fmt.Sprintf("could not list encoders from %q", result.Command)
		return result
	}
	if !hasVideoEncoder(listing, encoder) {
		result.Detail = fmt.Sprintf("encoder %q not available in this ffmpeg build", encoder)
		return result
	}
	result.Available = true
	return result
}

// hasVideoEncoder scans `ffmpeg -encoders` output, whose rows look like
// " V....D png                  PNG (Portable Network Graphics) image".
func hasVideoEncoder(listing, encoder string) bool {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if strings.HasPrefix(fields[0], "V") && fields[1] == encoder {
			return true
		}
	}
	return false
}
