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


// Package pipeline runs a recording through the four processing stages:
// audio conversion, speaker diarization, transcription, and LLM analysis.
//
// Every stage writes a checkpoint with a fingerprint over its inputs.
// When a failed job is retried, stages whose checkpoints still match are
// restored instead of re-run, so a crash during analysis never repeats
// hours of transcription. Fingerprints chain: invalidating one stage
// invalidates everything after it.
package pipeline
