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


// Package index turns recording content into embedded chunks ready for
// similarity search. Text is split into overlapping word windows, each
// window is embedded under the active embedding configuration, and the
// finished chunk set replaces the entity's previous chunks in one
// atomic swap, so search never observes a half-indexed recording.
package index
