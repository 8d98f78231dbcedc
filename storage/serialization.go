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


package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/poiesic/recollect/core"
)

// Records are stored as JSON values. Checkpoint payloads are opaque JSON
// already, so the whole store shares one encoding.

// MarshalID serializes an ID to its fixed 8-byte big-endian form, used
// as the ID suffix of composite store keys so iteration follows numeric
// ID order.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: id wants 8 bytes, got %d", ErrSerializationFailed, len(data))
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

// MarshalJob serializes a Job.
func MarshalJob(job *core.Job) ([]byte, error) {
	return marshal(job)
}

// UnmarshalJob deserializes a Job.
func UnmarshalJob(data []byte) (*core.Job, error) {
	return unmarshal[core.Job](data)
}

// MarshalRecording serializes a Recording.
func MarshalRecording(rec *core.Recording) ([]byte, error) {
	return marshal(rec)
}

// UnmarshalRecording deserializes a Recording.
func UnmarshalRecording(data []byte) (*core.Recording, error) {
	return unmarshal[core.Recording](data)
}

// MarshalCheckpoint serializes a Checkpoint.
func MarshalCheckpoint(checkpoint *core.Checkpoint) ([]byte, error) {
	return marshal(checkpoint)
}

// UnmarshalCheckpoint deserializes a Checkpoint.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	return unmarshal[core.Checkpoint](data)
}

// MarshalChunk serializes a Chunk.
func MarshalChunk(chunk *core.Chunk) ([]byte, error) {
	return marshal(chunk)
}

// UnmarshalChunk deserializes a Chunk.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	return unmarshal[core.Chunk](data)
}

// MarshalSpeaker serializes a Speaker.
func MarshalSpeaker(speaker *core.Speaker) ([]byte, error) {
	return marshal(speaker)
}

// UnmarshalSpeaker deserializes a Speaker.
func UnmarshalSpeaker(data []byte) (*core.Speaker, error) {
	return unmarshal[core.Speaker](data)
}

// MarshalEmbeddingConfig serializes an EmbeddingConfig.
func MarshalEmbeddingConfig(cfg *core.EmbeddingConfig) ([]byte, error) {
	return marshal(cfg)
}

// UnmarshalEmbeddingConfig deserializes an EmbeddingConfig.
func UnmarshalEmbeddingConfig(data []byte) (*core.EmbeddingConfig, error) {
	return unmarshal[core.EmbeddingConfig](data)
}

// MarshalSegments serializes a transcript segment list.
func MarshalSegments(segments []core.TranscriptSegment) ([]byte, error) {
	data, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalSegments deserializes a transcript segment list.
func UnmarshalSegments(data []byte) ([]core.TranscriptSegment, error) {
	var segments []core.TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return segments, nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}
