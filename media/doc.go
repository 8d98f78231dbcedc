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


// Package media wraps the external audio tooling the pipeline depends on:
// ffmpeg/ffprobe for conversion and probing, whisper.cpp for speech-to-text,
// and the HTTP diarization service for speaker segmentation.
//
// External processes run through the CommandRunner abstraction so every
// component can be exercised in tests without the binaries installed.
package media
