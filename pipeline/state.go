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


package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-crypt/x/blake2b"

	"github.com/poiesic/recollect/core"
)

// state carries stage outputs through one pipeline run. Stages populate
// it as they execute; resumed stages restore their slice of it from the
// checkpoint payload instead.
type state struct {
	// fp is the fingerprint of the last completed stage. Each stage's
	// own fingerprint chains on it, so upstream changes cascade.
	fp string

	SourceDigest string
	AudioPath    string
	Duration     float64
	Segments     []core.DiarizationSegment
	Transcript   []core.TranscriptSegment
	Language     string
}

// Per-stage checkpoint payloads. Only the fields a later resume needs
// are persisted.

type conversionPayload struct {
	AudioPath string  `json:"audio_path"`
	Duration  float64 `json:"duration"`
}

type diarizationPayload struct {
	Segments []core.DiarizationSegment `json:"segments"`
}

type transcriptionPayload struct {
	Segments []core.TranscriptSegment `json:"segments"`
	Language string                   `json:"language"`
}

// stageFingerprint computes the checkpoint fingerprint for stage given
// the current state and the recording's stage-relevant settings.
func (o *Orchestrator) stageFingerprint(stage core.Stage, rec *core.Recording, st *state) string {
	switch stage {
	case core.StageConversion:
		return core.Fingerprint(string(stage), rec.SourcePath, st.SourceDigest)
	case core.StageDiarization:
		return core.Fingerprint(string(stage), st.fp, strconv.Itoa(rec.SpeakerHint))
	case core.StageTranscription:
		return core.Fingerprint(string(stage), st.fp, o.transcriber.ModelParams(), rec.LanguageHint)
	case core.StageAnalysis:
		return core.Fingerprint(string(stage), st.fp, analysisPromptVersion)
	default:
		return core.Fingerprint(string(stage), st.fp)
	}
}

// restore applies a verified checkpoint's payload to the state.
func (st *state) restore(stage core.Stage, payload []byte) error {
	switch stage {
	case core.StageConversion:
		var p conversionPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		st.AudioPath = p.AudioPath
		st.Duration = p.Duration
	case core.StageDiarization:
		var p diarizationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		st.Segments = p.Segments
	case core.StageTranscription:
		var p transcriptionPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		st.Transcript = p.Segments
		st.Language = p.Language
	case core.StageAnalysis:
		// Analysis output lives on the recording itself.
	}
	return nil
}

// artifactsPresent reports whether the filesystem artifacts a restored
// stage points at still exist. Scratch dirs under the system temp dir
// can be reclaimed between a failure and a retry; a checkpoint whose
// artifact is gone must re-run its stage instead of wedging every
// downstream slice operation.
func (st *state) artifactsPresent(stage core.Stage) bool {
	if stage != core.StageConversion {
		return true
	}
	_, err := os.Stat(st.AudioPath)
	return err == nil
}

// payload serializes the stage's slice of the state for checkpointing.
func (st *state) payload(stage core.Stage) ([]byte, error) {
	switch stage {
	case core.StageConversion:
		return json.Marshal(conversionPayload{AudioPath: st.AudioPath, Duration: st.Duration})
	case core.StageDiarization:
		return json.Marshal(diarizationPayload{Segments: st.Segments})
	case core.StageTranscription:
		return json.Marshal(transcriptionPayload{Segments: st.Transcript, Language: st.Language})
	default:
		return []byte(`{}`), nil
	}
}

// digestFile hashes a file's content for fingerprinting. Moving a file
// without changing its bytes keeps checkpoints valid.
func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, _ := blake2b.New(16, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// segmentsDigest fingerprints a diarization segment list for the
// transcription cache key.
func segmentsDigest(segments []core.DiarizationSegment) string {
	parts := make([]string, 0, len(segments)*3)
	for _, s := range segments {
		parts = append(parts,
			s.Speaker,
			strconv.FormatFloat(s.Start, 'f', 3, 64),
			strconv.FormatFloat(s.End, 'f', 3, 64))
	}
	return core.Fingerprint(parts...)
}
