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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
)

// HTTPDiarizer implements ai.Diarizer against the diarization sidecar
// service (pyannote behind a small HTTP wrapper).
type HTTPDiarizer struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ ai.Diarizer = (*HTTPDiarizer)(nil)

// DiarizerOption is a functional option for configuring an HTTPDiarizer.
type DiarizerOption func(*HTTPDiarizer)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) DiarizerOption {
	return func(d *HTTPDiarizer) {
		d.client = client
	}
}

// NewHTTPDiarizer creates a diarizer talking to the service at baseURL.
func NewHTTPDiarizer(baseURL string, opts ...DiarizerOption) *HTTPDiarizer {
	d := &HTTPDiarizer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Minute},
		logger:  slog.Default().With("component", "http-diarizer"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type diarizeRequest struct {
	AudioPath   string `json:"audio_path"`
	SpeakerHint int    `json:"speaker_hint,omitempty"`
}

type diarizeResponse struct {
	Segments []core.DiarizationSegment `json:"segments"`
}

// Diarize sends the audio path to the diarization service and returns
// speaker segments ordered by start time. Server-side (5xx) and network
// failures are marked transient so callers can retry.
func (d *HTTPDiarizer) Diarize(ctx context.Context, path string, speakerHint int) ([]core.DiarizationSegment, error) {
	body, err := json.Marshal(diarizeRequest{AudioPath: path, SpeakerHint: speakerHint})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/diarize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("diarization request failed", "err", err)
		return nil, core.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w: status %d: %s", ErrDiarizationFailed, resp.StatusCode, payload)
		if resp.StatusCode >= 500 {
			return nil, core.Transient(err)
		}
		return nil, err
	}

	var parsed diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiarizationFailed, err)
	}

	slices.SortFunc(parsed.Segments, func(a, b core.DiarizationSegment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
	return parsed.Segments, nil
}
