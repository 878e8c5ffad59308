package export

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Formats maps each supported output format to its content type.
var Formats = map[string]string{
	"mp4":  "video/mp4",
	"gif":  "image/gif",
	"webm": "video/webm",
}

// Encoder runs ffmpeg over a directory of numbered PNG frames.
type Encoder struct {
	FfmpegPath string
}

// Encode writes output.<format> into dir and returns its path.
func (enc Encoder) Encode(ctx context.Context, dir string, fps int, format string) (string, error) {
	input := filepath.Join(dir, framePattern)
	rate := strconv.Itoa(fps)
	output := filepath.Join(dir, "output."+format)

	switch format {
	case "mp4":
		return output, enc.run(ctx,
			"-framerate", rate,
			"-i", input,
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-crf", "18",
			"-preset", "fast",
			"-movflags", "+faststart",
			output,
		)

	case "gif":
		// Two-pass GIF: generate palette then apply
		palette := filepath.Join(dir, "palette.png")
		if err := enc.run(ctx,
			"-framerate", rate,
			"-i", input,
			"-vf", "palettegen=stats_mode=diff",
			palette,
		); err != nil {
			return "", err
		}
		return output, enc.run(ctx,
			"-framerate", rate,
			"-i", input,
			"-i", palette,
			"-lavfi", "paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle",
			output,
		)

	case "webm":
		return output, enc.run(ctx,
			"-framerate", rate,
			"-i", input,
			"-c:v", "libvpx-vp9",
			"-crf", "30",
			"-b:v", "0",
			"-pix_fmt", "yuva420p",
			output,
		)
	}
	return "", fmt.Errorf("invalid format %q: must be mp4, gif, or webm", format)
}

func (enc Encoder) run(ctx context.Context, args ...string) error {
	// -y overwrites output without prompting
	fullArgs := append([]string{"-y"}, args...)
	cmd := exec.CommandContext(ctx, enc.FfmpegPath, fullArgs...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v: %s", err, stderr.String())
	}
	return nil
}
