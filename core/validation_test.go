package core

import (
	"errors"
	"math"
	"testing"
)

func TestValidateCandidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate ScoredCandidate
		wantErr   error
	}{
		{name: "valid", candidate: ScoredCandidate{Label: "IT", Score: 0.4}},
		{name: "zero score", candidate: ScoredCandidate{Label: "IT", Score: 0}},
		{name: "one score", candidate: ScoredCandidate{Label: "IT", Score: 1}},
		{name: "empty label", candidate: ScoredCandidate{Score: 0.4}, wantErr: ErrEmptyLabel},
		{name: "negative", candidate: ScoredCandidate{Label: "IT", Score: -0.1}, wantErr: ErrScoreOutOfRange},
		{name: "above one", candidate: ScoredCandidate{Label: "IT", Score: 1.01}, wantErr: ErrScoreOutOfRange},
		{name: "nan", candidate: ScoredCandidate{Label: "IT", Score: math.NaN()}, wantErr: ErrScoreOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.candidate)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCandidate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCandidate() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidCandidate) {
				t.Errorf("ValidateCandidate() error should wrap ErrInvalidCandidate")
			}
		})
	}
}

func TestValidateLevelResult(t *testing.T) {
	tests := []struct {
		name    string
		result  LevelResult
		wantErr bool
	}{
		{name: "unknown sentinel", result: UnknownLevel()},
		{
			name: "ordered",
			result: LevelResult{Label: "IT", Score: 0.5, Margin: 0.2, Candidates: []ScoredCandidate{
				{Label: "IT", Score: 0.5}, {Label: "Retail", Score: 0.3},
			}},
		},
		{
			name: "label chosen below rank one",
			result: LevelResult{Label: "Retail", Score: 0.3, Margin: 0.2, Candidates: []ScoredCandidate{
				{Label: "IT", Score: 0.5}, {Label: "Retail", Score: 0.3},
			}},
		},
		{
			name: "unordered",
			result: LevelResult{Label: "IT", Score: 0.3, Candidates: []ScoredCandidate{
				{Label: "IT", Score: 0.3}, {Label: "Retail", Score: 0.5},
			}},
			wantErr: true,
		},
		{
			name: "negative margin",
			result: LevelResult{Label: "IT", Score: 0.5, Margin: -0.1, Candidates: []ScoredCandidate{
				{Label: "IT", Score: 0.5},
			}},
			wantErr: true,
		},
		{
			name: "label not in candidates",
			result: LevelResult{Label: "Healthcare", Score: 0.5, Candidates: []ScoredCandidate{
				{Label: "IT", Score: 0.5},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLevelResult(tt.result)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLevelResult() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidLevelResult) {
				t.Errorf("error should wrap ErrInvalidLevelResult")
			}
		})
	}
}

func TestValidateCachedVector(t *testing.T) {
	if err := ValidateCachedVector(nil); !errors.Is(err, ErrInvalidCachedVector) {
		t.Errorf("nil vector error = %v", err)
	}
	if err := ValidateCachedVector(&CachedVector{Vector: []float32{1}}); !errors.Is(err, ErrEmptyModel) {
		t.Errorf("missing model error = %v", err)
	}
	if err := ValidateCachedVector(&CachedVector{Model: "m"}); !errors.Is(err, ErrEmptyVector) {
		t.Errorf("empty vector error = %v", err)
	}
	if err := ValidateCachedVector(&CachedVector{Model: "m", Vector: []float32{1}}); err != nil {
		t.Errorf("valid vector error = %v", err)
	}
}
