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


package core

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Domain validation errors
var (
	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidRecording indicates a Recording failed validation.
	ErrInvalidRecording = errors.New("invalid recording")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyText indicates a text field required to be non-empty is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidTransition indicates a job status change outside the state machine.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrDimensionMismatch indicates a vector whose length does not match the
	// active embedding configuration.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Failure classification errors
var (
	// ErrTransient marks infrastructure failures (connection, timeout) that
	// the task runner may retry with backoff.
	ErrTransient = errors.New("transient failure")

	// ErrStageInput marks corrupt or unreadable stage input. Fatal, never
	// retried automatically.
	ErrStageInput = errors.New("unusable stage input")

	// ErrAnalysisFailed marks a structured analysis failure. The completed
	// transcription is preserved and the job may be retried at the analysis
	// stage only.
	ErrAnalysisFailed = errors.New("analysis failed")
)

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err is a retryable infrastructure failure:
// anything explicitly marked via Transient, a network timeout, or a
// deadline expiry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
