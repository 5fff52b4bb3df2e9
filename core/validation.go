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
	"fmt"
	"math"
)

// ValidateCandidate validates a ScoredCandidate.
//
// Validation rules:
//   - Label must not be empty
//   - Score must be a finite value in [0, 1]
func ValidateCandidate(c ScoredCandidate) error {
	if c.Label == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyLabel)
	}
	if !IsValidScore(c.Score) {
		return fmt.Errorf("%w: %w: %s=%v", ErrInvalidCandidate, ErrScoreOutOfRange, c.Label, c.Score)
	}
	return nil
}

// ValidateLevelResult validates a LevelResult.
//
// Validation rules:
//   - Every candidate must be valid
//   - Candidates must be in non-increasing score order
//   - A non-Unknown label must appear among the candidates
//   - Margin must be non-negative
//
// The Unknown sentinel is always valid.
func ValidateLevelResult(r LevelResult) error {
	if r.IsUnknown() && len(r.Candidates) == 0 {
		return nil
	}
	for i, c := range r.Candidates {
		if err := ValidateCandidate(c); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidLevelResult, err)
		}
		if i > 0 && c.Score > r.Candidates[i-1].Score {
			return fmt.Errorf("%w: %w", ErrInvalidLevelResult, ErrUnorderedCandidates)
		}
	}
	if r.Margin < 0 {
		return fmt.Errorf("%w: negative margin %v", ErrInvalidLevelResult, r.Margin)
	}
	if !r.IsUnknown() {
		if r.Label == "" {
			return fmt.Errorf("%w: %w", ErrInvalidLevelResult, ErrEmptyLabel)
		}
		if !IsValidScore(r.Score) {
			return fmt.Errorf("%w: %w", ErrInvalidLevelResult, ErrScoreOutOfRange)
		}
		found := false
		for _, c := range r.Candidates {
			if c.Label == r.Label {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: label %q not among candidates", ErrInvalidLevelResult, r.Label)
		}
	}
	return nil
}

// ValidateCachedVector validates a CachedVector before it is persisted.
func ValidateCachedVector(v *CachedVector) error {
	if v == nil {
		return fmt.Errorf("%w: vector is nil", ErrInvalidCachedVector)
	}
	if v.Model == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCachedVector, ErrEmptyModel)
	}
	if len(v.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCachedVector, ErrEmptyVector)
	}
	return nil
}

// IsValidScore reports whether s is a finite value in [0, 1].
func IsValidScore(s float64) bool {
	return !math.IsNaN(s) && s >= 0 && s <= 1
}
