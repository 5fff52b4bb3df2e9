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


// Package calibration re-ranks funnel candidates by label specificity and
// derives a calibrated confidence for the final prediction.
//
// Specificity favours multi-word labels made of non-generic words that also
// occur in the company text. Evidence density measures how much of the
// weighted document set independently supports the winning label.
package calibration
