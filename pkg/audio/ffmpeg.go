package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Environment variable for a custom ffmpeg path.
const envFFmpegPath = "FFMPEG_PATH"

// Converter normalizes an audio file on disk into the pipeline's canonical
// format.
type Converter interface {
	// Convert transcodes src into dst. dst is removed on failure.
	Convert(ctx context.Context, src, dst string) error
}

// FFmpegConverter shells out to ffmpeg to transcode arbitrary audio
// containers into 16 kHz mono WAV, the input format the ASR and diarization
// services expect.
type FFmpegConverter struct {
	path   string
	target Format

	// run is swapped in tests.
	run func(ctx context.Context, name string, args ...string) error
}

var _ Converter = (*FFmpegConverter)(nil)

// NewFFmpegConverter locates ffmpeg and returns a converter targeting 16 kHz
// mono. FFMPEG_PATH takes precedence over the system PATH.
func NewFFmpegConverter() (*FFmpegConverter, error) {
	path, err := resolveFFmpeg()
	if err != nil {
		return nil, err
	}
	return &FFmpegConverter{
		path:   path,
		target: Format{SampleRate: 16000, Channels: 1},
		run:    runCommand,
	}, nil
}

// Convert transcodes src into dst as 16-bit PCM WAV at the target format.
func (c *FFmpegConverter) Convert(ctx context.Context, src, dst string) error {
	args := []string{
		"-y",
		"-i", src,
		"-ar", strconv.Itoa(c.target.SampleRate),
		"-ac", strconv.Itoa(c.target.Channels),
		"-c:a", "pcm_s16le",
		dst,
	}
	if err := c.run(ctx, c.path, args...); err != nil {
		os.Remove(dst)
		return fmt.Errorf("audio: convert %s: %w", src, err)
	}
	return nil
}

func resolveFFmpeg() (string, error) {
	if envPath := os.Getenv(envFFmpegPath); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("audio: %s is set to %q but binary not found", envFFmpegPath, envPath)
		}
		return envPath, nil
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("audio: ffmpeg not found in PATH (set %s to override)", envFFmpegPath)
	}
	return path, nil
}

// runCommand executes the binary, surfacing stderr in the error since ffmpeg
// writes its diagnostics there.
func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, stderr.String())
	}
	return nil
}
