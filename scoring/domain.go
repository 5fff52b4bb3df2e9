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


package scoring

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/classit/core"
)

//go:embed domain_keywords.yaml
var defaultDomainKeywords []byte

// DomainTable maps taxonomy labels to curated keyword lists, per level.
// Only sector and industry levels carry entries.
type DomainTable struct {
	Sector   map[string][]string `yaml:"sector"`
	Industry map[string][]string `yaml:"industry"`
}

// DefaultDomainTable returns the built-in keyword table.
func DefaultDomainTable() *DomainTable {
	table, err := ParseDomainTable(defaultDomainKeywords)
	if err != nil {
		panic(fmt.Sprintf("scoring: built-in domain table: %v", err))
	}
	return table
}

// ParseDomainTable decodes a YAML keyword table.
func ParseDomainTable(data []byte) (*DomainTable, error) {
	var table DomainTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDomainTable, err)
	}
	table.normalize()
	return &table, nil
}

// LoadDomainTable reads a YAML keyword table from path.
func LoadDomainTable(path string) (*DomainTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDomainTable, err)
	}
	return ParseDomainTable(data)
}

func (t *DomainTable) normalize() {
	for _, m := range []map[string][]string{t.Sector, t.Industry} {
		for label, keywords := range m {
			phrases := make([]string, 0, len(keywords))
			for _, k := range keywords {
				if p := phraseText(k); strings.TrimSpace(p) != "" {
					phrases = append(phrases, p)
				}
			}
			m[label] = phrases
		}
	}
}

// Keywords returns the normalised keyword phrases for label at level.
func (t *DomainTable) Keywords(level core.Level, label string) []string {
	if t == nil {
		return nil
	}
	switch level {
	case core.LevelSector:
		return t.Sector[label]
	case core.LevelIndustry:
		return t.Industry[label]
	default:
		return nil
	}
}

// signal returns the fraction of label's keywords found in the query.
// queryPhrase must come from phraseText. Keywords match on word boundaries.
func (t *DomainTable) signal(queryPhrase string, level core.Level, label string) float64 {
	keywords := t.Keywords(level, label)
	if len(keywords) == 0 {
		return 0
	}
	matches := 0
	for _, k := range keywords {
		if strings.Contains(queryPhrase, k) {
			matches++
		}
	}
	return min(float64(matches)/float64(len(keywords)), 1)
}
