// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MinSliceSeconds is the floor for slice duration. Whisper models reject
// inputs shorter than this, so shorter segments are padded up to it.
const MinSliceSeconds = 0.5

// Converter normalizes source media into the 16 kHz mono WAV format the
// downstream speech models expect, and cuts per-segment slices from it.
type Converter struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
	logger      *slog.Logger
}

// ConverterOption is a functional option for configuring a Converter.
type ConverterOption func(*Converter)

// WithFFmpegPath overrides the ffmpeg binary path.
func WithFFmpegPath(path string) ConverterOption {
	return func(c *Converter) {
		c.ffmpegPath = path
	}
}

// WithFFprobePath overrides the ffprobe binary path.
func WithFFprobePath(path string) ConverterOption {
	return func(c *Converter) {
		c.ffprobePath = path
	}
}

// WithRunner overrides the command runner, mainly for tests.
func WithRunner(runner CommandRunner) ConverterOption {
	return func(c *Converter) {
		c.runner = runner
	}
}

// NewConverter creates a converter that shells out to ffmpeg and ffprobe
// on the PATH unless overridden by options.
func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      &ExecRunner{},
		logger:      slog.Default().With("component", "media-converter"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToWAV converts the media at inputPath into a 16 kHz mono PCM WAV file
// under outDir and returns the output path. Video streams are stripped.
func (c *Converter) ToWAV(ctx context.Context, inputPath, outDir string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("cannot access input media %s: %w", inputPath, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create output directory %s: %w", outDir, err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outPath := filepath.Join(outDir, base+"-16k-mono.wav")

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}

	c.logger.Debug("converting audio", "input", inputPath, "output", outPath)
	result, err := c.runner.Run(ctx, c.ffmpegPath, args...)
	if err != nil {
		c.logger.Error("ffmpeg conversion failed",
			"input", inputPath,
			"exit_code", result.ExitCode,
			"stderr", result.Stderr)
		return "", fmt.Errorf("%w: ffmpeg exit %d: %v", ErrCommandFailed, result.ExitCode, err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingOutput, outPath)
	}

	return outPath, nil
}

// Probe returns the duration of the media at path in seconds.
func (c *Converter) Probe(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	result, err := c.runner.Run(ctx, c.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe exit %d: %v", ErrProbeFailed, result.ExitCode, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(result.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable duration %q", ErrProbeFailed, result.Stdout)
	}
	return duration, nil
}

// Slice extracts [start, end) seconds of wavPath into outPath. Ranges
// shorter than MinSliceSeconds are padded to the floor so the speech
// model gets a usable input.
func (c *Converter) Slice(ctx context.Context, wavPath string, start, end float64, outPath string) error {
	if start < 0 || end <= start {
		return fmt.Errorf("%w: start=%.3f end=%.3f", ErrInvalidSlice, start, end)
	}
	if end-start < MinSliceSeconds {
		end = start + MinSliceSeconds
	}

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", wavPath,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-c:a", "pcm_s16le",
		outPath,
	}

	result, err := c.runner.Run(ctx, c.ffmpegPath, args...)
	if err != nil {
		c.logger.Error("ffmpeg slice failed",
			"input", wavPath,
			"start", start,
			"end", end,
			"exit_code", result.ExitCode)
		return fmt.Errorf("%w: ffmpeg exit %d: %v", ErrCommandFailed, result.ExitCode, err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingOutput, outPath)
	}
	return nil
}

// formatSeconds renders a timestamp with millisecond precision, which is
// what ffmpeg's -ss/-to accept.
func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
