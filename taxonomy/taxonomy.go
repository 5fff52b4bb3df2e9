package taxonomy

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/poiesic/classit/core"
)

const (
	sectorTextIndustries      = 10
	industryTextSubIndustries = 10
	industryTextDescriptions  = 5
)

// Row is one leaf of the taxonomy table.
type Row struct {
	Sector          string
	Industry        string
	SubIndustry     string
	Code            string
	CodeDescription string
}

// Code is the classification code attached to a sub-industry.
type Code struct {
	Code        string
	Description string
}

// Pair identifies an industry under a specific sector.
type Pair struct {
	Sector   string
	Industry string
}

// Taxonomy is the immutable three-level label index.
// It is built once and safe for concurrent reads.
type Taxonomy struct {
	sectors       []string
	industries    []string
	subIndustries []string

	industriesBySector  map[string][]string
	subIndustriesByPair map[Pair][]string
	codes               map[string]Code
	lineage             map[string]Pair

	sectorText      map[string]string
	industryText    map[Pair]string
	industryLabel   map[string]string
	industrySector  map[string]string
	subIndustryText map[string]string
}

// Build indexes rows into a Taxonomy. Rows missing a sector, industry or
// sub-industry are skipped. Lists are sorted alphabetically. When a
// sub-industry appears more than once its first row supplies the code.
func Build(rows []Row) *Taxonomy {
	t := &Taxonomy{
		industriesBySector:  make(map[string][]string),
		subIndustriesByPair: make(map[Pair][]string),
		codes:               make(map[string]Code),
		lineage:             make(map[string]Pair),
		sectorText:          make(map[string]string),
		industryText:        make(map[Pair]string),
		industryLabel:       make(map[string]string),
		industrySector:      make(map[string]string),
		subIndustryText:     make(map[string]string),
	}

	sectors := make(map[string]struct{})
	industries := make(map[string]struct{})
	industrySet := make(map[string]map[string]struct{})
	subSet := make(map[Pair]map[string]struct{})
	descriptions := make(map[Pair][]string)
	var pairOrder []Pair

	for _, r := range rows {
		r = trimRow(r)
		if r.Sector == "" || r.Industry == "" || r.SubIndustry == "" {
			continue
		}
		pair := Pair{Sector: r.Sector, Industry: r.Industry}

		sectors[r.Sector] = struct{}{}
		industries[r.Industry] = struct{}{}
		if industrySet[r.Sector] == nil {
			industrySet[r.Sector] = make(map[string]struct{})
		}
		industrySet[r.Sector][r.Industry] = struct{}{}

		if subSet[pair] == nil {
			subSet[pair] = make(map[string]struct{})
			pairOrder = append(pairOrder, pair)
		}
		subSet[pair][r.SubIndustry] = struct{}{}

		if r.CodeDescription != "" && !slices.Contains(descriptions[pair], r.CodeDescription) {
			descriptions[pair] = append(descriptions[pair], r.CodeDescription)
		}

		if _, ok := t.codes[r.SubIndustry]; !ok {
			t.codes[r.SubIndustry] = Code{Code: r.Code, Description: r.CodeDescription}
			t.lineage[r.SubIndustry] = pair
		}
	}

	t.sectors = sortedKeys(sectors)
	t.industries = sortedKeys(industries)
	t.subIndustries = sortedKeys(t.codes)

	for sector, set := range industrySet {
		t.industriesBySector[sector] = sortedKeys(set)
	}
	for pair, set := range subSet {
		t.subIndustriesByPair[pair] = sortedKeys(set)
	}

	for _, sector := range t.sectors {
		children := t.industriesBySector[sector]
		t.sectorText[sector] = fmt.Sprintf("sector: %s. %s", sector, strings.Join(head(children, sectorTextIndustries), " "))
	}
	for _, pair := range pairOrder {
		subs := t.subIndustriesByPair[pair]
		text := fmt.Sprintf("industry: %s in sector %s. %s. %s",
			pair.Industry, pair.Sector,
			strings.Join(head(subs, industryTextSubIndustries), " "),
			strings.Join(head(descriptions[pair], industryTextDescriptions), " "))
		t.industryText[pair] = text
		if _, ok := t.industryLabel[pair.Industry]; !ok {
			t.industryLabel[pair.Industry] = text
			t.industrySector[pair.Industry] = pair.Sector
		}
	}
	for sub, pair := range t.lineage {
		desc := t.codes[sub].Description
		t.subIndustryText[sub] = fmt.Sprintf("sub_industry: %s. industry: %s. sector: %s. %s. %s",
			sub, pair.Industry, pair.Sector, desc, desc)
	}

	return t
}

func trimRow(r Row) Row {
	return Row{
		Sector:          strings.TrimSpace(r.Sector),
		Industry:        strings.TrimSpace(r.Industry),
		SubIndustry:     strings.TrimSpace(r.SubIndustry),
		Code:            strings.TrimSpace(r.Code),
		CodeDescription: strings.TrimSpace(r.CodeDescription),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Validate checks the structural invariants of the index: every sub-industry
// has a code entry, and every industry listed under a sector has at least one
// sub-industry under that (sector, industry) pair.
func (t *Taxonomy) Validate() error {
	for sector, industries := range t.industriesBySector {
		for _, industry := range industries {
			if len(t.subIndustriesByPair[Pair{Sector: sector, Industry: industry}]) == 0 {
				return fmt.Errorf("%w: industry %q under %q has no sub-industries", ErrInconsistent, industry, sector)
			}
		}
	}
	for pair, subs := range t.subIndustriesByPair {
		if !slices.Contains(t.industriesBySector[pair.Sector], pair.Industry) {
			return fmt.Errorf("%w: pair (%q, %q) missing from sector index", ErrInconsistent, pair.Sector, pair.Industry)
		}
		for _, sub := range subs {
			if _, ok := t.codes[sub]; !ok {
				return fmt.Errorf("%w: sub-industry %q has no code", ErrInconsistent, sub)
			}
		}
	}
	return nil
}

// IsEmpty reports whether the taxonomy has no sectors.
func (t *Taxonomy) IsEmpty() bool {
	return t == nil || len(t.sectors) == 0
}

// Sectors returns all sector labels in alphabetical order.
func (t *Taxonomy) Sectors() []string {
	return slices.Clone(t.sectors)
}

// Industries returns all distinct industry labels in alphabetical order.
func (t *Taxonomy) Industries() []string {
	return slices.Clone(t.industries)
}

// SubIndustries returns all distinct sub-industry labels in alphabetical order.
func (t *Taxonomy) SubIndustries() []string {
	return slices.Clone(t.subIndustries)
}

// IndustriesOf returns the industries under sector.
func (t *Taxonomy) IndustriesOf(sector string) []string {
	return slices.Clone(t.industriesBySector[sector])
}

// SubIndustriesOf returns the sub-industries under the (sector, industry) pair.
func (t *Taxonomy) SubIndustriesOf(sector, industry string) []string {
	return slices.Clone(t.subIndustriesByPair[Pair{Sector: sector, Industry: industry}])
}

// Pairs returns every (sector, industry) pair ordered by sector then industry.
func (t *Taxonomy) Pairs() []Pair {
	var pairs []Pair
	for _, sector := range t.sectors {
		for _, industry := range t.industriesBySector[sector] {
			pairs = append(pairs, Pair{Sector: sector, Industry: industry})
		}
	}
	return pairs
}

// SectorOf returns the sector an industry was first listed under.
func (t *Taxonomy) SectorOf(industry string) (string, bool) {
	s, ok := t.industrySector[industry]
	return s, ok
}

// CodeOf returns the classification code for a sub-industry.
func (t *Taxonomy) CodeOf(subIndustry string) (Code, bool) {
	c, ok := t.codes[subIndustry]
	return c, ok
}

// Lineage returns the (sector, industry) pair a sub-industry was first listed under.
func (t *Taxonomy) Lineage(subIndustry string) (Pair, bool) {
	p, ok := t.lineage[subIndustry]
	return p, ok
}

// SectorTexts returns the descriptive text of every sector.
func (t *Taxonomy) SectorTexts() map[string]string {
	return maps.Clone(t.sectorText)
}

// IndustryTextsOf returns the descriptive texts of the industries under sector,
// each built from that sector's own children.
func (t *Taxonomy) IndustryTextsOf(sector string) map[string]string {
	out := make(map[string]string, len(t.industriesBySector[sector]))
	for _, industry := range t.industriesBySector[sector] {
		out[industry] = t.industryText[Pair{Sector: sector, Industry: industry}]
	}
	return out
}

// SubIndustryTextsOf returns the descriptive texts of the sub-industries under a pair.
func (t *Taxonomy) SubIndustryTextsOf(sector, industry string) map[string]string {
	subs := t.subIndustriesByPair[Pair{Sector: sector, Industry: industry}]
	out := make(map[string]string, len(subs))
	for _, sub := range subs {
		out[sub] = t.subIndustryText[sub]
	}
	return out
}

// LabelTexts returns the descriptive text of every label at a level.
// An industry listed under several sectors uses the text of its first pair.
func (t *Taxonomy) LabelTexts(level core.Level) map[string]string {
	switch level {
	case core.LevelSector:
		return maps.Clone(t.sectorText)
	case core.LevelIndustry:
		return maps.Clone(t.industryLabel)
	case core.LevelSubIndustry:
		return maps.Clone(t.subIndustryText)
	default:
		return map[string]string{}
	}
}

// Labels returns every label at a level in alphabetical order.
func (t *Taxonomy) Labels(level core.Level) []string {
	switch level {
	case core.LevelSector:
		return t.Sectors()
	case core.LevelIndustry:
		return t.Industries()
	case core.LevelSubIndustry:
		return t.SubIndustries()
	default:
		return nil
	}
}

// AllTexts returns every distinct descriptive text in the taxonomy in a stable order.
func (t *Taxonomy) AllTexts() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, sector := range t.sectors {
		add(t.sectorText[sector])
	}
	for _, pair := range t.Pairs() {
		add(t.industryText[pair])
	}
	for _, sub := range t.subIndustries {
		add(t.subIndustryText[sub])
	}
	return out
}

// Stats summarises the taxonomy size.
type Stats struct {
	Sectors       int
	Industries    int
	Pairs         int
	SubIndustries int
}

// Stats returns label counts per level.
func (t *Taxonomy) Stats() Stats {
	return Stats{
		Sectors:       len(t.sectors),
		Industries:    len(t.industries),
		Pairs:         len(t.subIndustriesByPair),
		SubIndustries: len(t.subIndustries),
	}
}
