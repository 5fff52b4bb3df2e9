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


package escalation

import "errors"

var (
	// ErrMalformedAnswer indicates the model did not answer in the two-line format.
	ErrMalformedAnswer = errors.New("malformed re-rank answer")

	// ErrUnknownCandidate indicates the model chose a label that was not offered.
	ErrUnknownCandidate = errors.New("answer is not one of the offered candidates")

	// ErrDeclined indicates the model stated it could not choose.
	ErrDeclined = errors.New("model declined to choose")
)
