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


package funnel

import "errors"

var (
	// ErrTaxonomyRequired indicates a nil taxonomy was passed.
	ErrTaxonomyRequired = errors.New("taxonomy is required")

	// ErrScorerRequired indicates a nil scorer was passed.
	ErrScorerRequired = errors.New("scorer is required")

	// ErrInvalidConfig indicates a non-positive K or a floor outside [0, 1].
	ErrInvalidConfig = errors.New("invalid funnel configuration")
)
