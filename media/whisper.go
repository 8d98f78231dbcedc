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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/recollect/ai"
)

// WhisperTranscriber implements ai.SpeechTranscriber by shelling out to
// whisper.cpp with JSON output enabled.
type WhisperTranscriber struct {
	binaryPath string
	modelPath  string
	runner     CommandRunner
	logger     *slog.Logger
}

var _ ai.SpeechTranscriber = (*WhisperTranscriber)(nil)

// WhisperOption is a functional option for configuring a WhisperTranscriber.
type WhisperOption func(*WhisperTranscriber)

// WithWhisperBinary overrides the whisper.cpp binary path.
func WithWhisperBinary(path string) WhisperOption {
	return func(w *WhisperTranscriber) {
		w.binaryPath = path
	}
}

// WithWhisperRunner overrides the command runner, mainly for tests.
func WithWhisperRunner(runner CommandRunner) WhisperOption {
	return func(w *WhisperTranscriber) {
		w.runner = runner
	}
}

// NewWhisperTranscriber creates a transcriber using the model at modelPath.
func NewWhisperTranscriber(modelPath string, opts ...WhisperOption) *WhisperTranscriber {
	w := &WhisperTranscriber{
		binaryPath: "whisper.cpp",
		modelPath:  modelPath,
		runner:     &ExecRunner{},
		logger:     slog.Default().With("component", "whisper-transcriber"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// whisperOutput mirrors the parts of whisper.cpp's -oj JSON we consume.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs whisper.cpp on the slice at path. When language is
// empty the model auto-detects; the detected language is returned either
// way.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, path string, language string) (string, string, error) {
	outBase := strings.TrimSuffix(path, filepath.Ext(path))
	args := []string{
		"-m", w.modelPath,
		"-f", path,
		"-of", outBase,
		"-oj",
	}
	if lang := strings.TrimSpace(language); lang != "" && !strings.EqualFold(lang, "auto") {
		args = append(args, "-l", lang)
	}

	result, err := w.runner.Run(ctx, w.binaryPath, args...)
	if err != nil {
		w.logger.Error("whisper.cpp failed",
			"input", path,
			"exit_code", result.ExitCode,
			"stderr", result.Stderr)
		return "", "", fmt.Errorf("%w: whisper.cpp exit %d: %v", ErrCommandFailed, result.ExitCode, err)
	}

	jsonPath := outBase + ".json"
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrMissingOutput, jsonPath)
	}
	defer os.Remove(jsonPath)

	var output whisperOutput
	if err := json.Unmarshal(raw, &output); err != nil {
		return "", "", fmt.Errorf("parsing whisper output %s: %w", jsonPath, err)
	}

	var sb strings.Builder
	for _, segment := range output.Transcription {
		sb.WriteString(segment.Text)
	}
	text := strings.TrimSpace(sb.String())

	detected := output.Result.Language
	if detected == "" {
		detected = language
	}
	return text, detected, nil
}

// ModelParams identifies the binary and model for transcript cache keying.
func (w *WhisperTranscriber) ModelParams() string {
	return w.binaryPath + "|" + w.modelPath
}
