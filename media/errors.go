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

import "errors"

var (
	// ErrCommandFailed indicates an external tool exited non-zero.
	ErrCommandFailed = errors.New("external command failed")

	// ErrMissingOutput indicates a tool exited cleanly but its expected
	// output file is absent.
	ErrMissingOutput = errors.New("expected output file is missing")

	// ErrProbeFailed indicates ffprobe could not determine media metadata.
	ErrProbeFailed = errors.New("media probe failed")

	// ErrInvalidSlice indicates a slice request with a non-positive or
	// inverted time range.
	ErrInvalidSlice = errors.New("invalid slice range")

	// ErrDiarizationFailed indicates the diarization service rejected the
	// request or returned an unusable response.
	ErrDiarizationFailed = errors.New("diarization failed")
)
