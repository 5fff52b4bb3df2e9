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


package classit

import "errors"

var (
	// ErrTaxonomyRequired is returned when a classifier is built without a taxonomy.
	ErrTaxonomyRequired = errors.New("taxonomy is required")

	// ErrNilContext is returned when a classification is run without a ClassifierContext.
	ErrNilContext = errors.New("classifier context is nil")
)
