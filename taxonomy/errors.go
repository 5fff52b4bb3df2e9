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


package taxonomy

import (
	"errors"
	"fmt"
)

var (
	// ErrTaxonomyLoad is the sentinel wrapped by every LoadError.
	ErrTaxonomyLoad = errors.New("taxonomy load failed")

	// ErrMissingColumn indicates a required column is absent from the source.
	ErrMissingColumn = errors.New("required column missing")

	// ErrUnsupportedFormat indicates a source file extension that cannot be loaded.
	ErrUnsupportedFormat = errors.New("unsupported taxonomy format")

	// ErrInconsistent indicates the built index violates a structural invariant.
	ErrInconsistent = errors.New("taxonomy is inconsistent")
)

// LoadError reports why a taxonomy source could not be loaded.
// It matches ErrTaxonomyLoad with errors.Is, as well as any underlying cause.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "taxonomy load error"
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTaxonomyLoad}
	}
	return []error{ErrTaxonomyLoad, e.Err}
}

func loadError(path, reason string, err error) error {
	return &LoadError{Path: path, Reason: reason, Err: err}
}

func missingColumns(path string, cols []string) error {
	return loadError(path, fmt.Sprintf("columns %v not found in header", cols), ErrMissingColumn)
}
