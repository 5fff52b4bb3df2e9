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


// Package taxonomy loads and indexes the three-level sector / industry /
// sub-industry label hierarchy together with its classification codes.
//
// The source is a flat table with one row per sub-industry leaf and the
// columns sector, industry, sub_industry, code and code_description
// (sic_code and sic_description are accepted too). CSV, TSV and XLSX
// files are supported:
//
//	tax, err := taxonomy.Load("taxonomy.csv")
//	if err != nil {
//	    var le *taxonomy.LoadError
//	    errors.As(err, &le)
//	}
//
// Each label carries a descriptive text used for similarity scoring.
// Sectors borrow the names of up to 10 child industries. Industries add
// their parent sector, up to 10 sub-industries and up to 5 code
// descriptions. Sub-industries add their lineage and repeat the code
// description twice to weight its vocabulary.
//
// A Taxonomy is immutable after Build and safe for concurrent reads.
package taxonomy
