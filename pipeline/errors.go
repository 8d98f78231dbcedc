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

import "errors"

var (
	// ErrDependencyRequired indicates the orchestrator was built without
	// one of its required repositories or services.
	ErrDependencyRequired = errors.New("missing orchestrator dependency")

	// ErrJobActive indicates Run was called for a job already being
	// processed.
	ErrJobActive = errors.New("job is already processing")

	// ErrAnalysisRejected indicates the model's analysis output failed
	// validation after all parse attempts. The transcript survives; only
	// the analysis stage needs to re-run.
	ErrAnalysisRejected = errors.New("analysis output rejected")
)
