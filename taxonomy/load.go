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
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx/v2"
)

// Column names accepted for each field, compared case-insensitively.
var columnAliases = map[string][]string{
	"sector":           {"sector"},
	"industry":         {"industry"},
	"sub_industry":     {"sub_industry", "subindustry", "sub-industry", "sub industry"},
	"code":             {"code", "sic_code"},
	"code_description": {"code_description", "sic_description"},
}

var requiredColumns = []string{"sector", "industry", "sub_industry", "code", "code_description"}

// Load reads a taxonomy from a .csv, .tsv or .xlsx file.
// Any failure is returned as a *LoadError.
func Load(path string) (*Taxonomy, error) {
	var (
		t   *Taxonomy
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		t, err = loadDelimited(path, ',')
	case ".tsv":
		t, err = loadDelimited(path, '\t')
	case ".xlsx":
		t, err = LoadXLSX(path)
	default:
		return nil, loadError(path, "", ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	stats := t.Stats()
	slog.Default().With("component", "taxonomy").Info("taxonomy loaded",
		"path", path,
		"sectors", stats.Sectors,
		"industries", stats.Industries,
		"sub_industries", stats.SubIndustries)
	return t, nil
}

func loadDelimited(path string, comma rune) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, loadError(path, "cannot open file", err)
	}
	defer f.Close()

	t, err := LoadCSV(f, comma)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return t, nil
}

// LoadCSV reads a delimited taxonomy table whose first record is the header.
func LoadCSV(r io.Reader, comma rune) (*Taxonomy, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, loadError("", "malformed table", err)
	}
	return fromRecords("", records)
}

// LoadXLSX reads the first sheet of a spreadsheet whose first row is the header.
func LoadXLSX(path string) (*Taxonomy, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, loadError(path, "cannot open spreadsheet", err)
	}
	if len(f.Sheets) == 0 {
		return nil, loadError(path, "spreadsheet has no sheets", nil)
	}

	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		records = append(records, cells)
	}
	return fromRecords(path, records)
}

func fromRecords(path string, records [][]string) (*Taxonomy, error) {
	if len(records) == 0 {
		return nil, loadError(path, "source has no header row", nil)
	}

	index, missing := mapHeader(records[0])
	if len(missing) > 0 {
		return nil, missingColumns(path, missing)
	}

	cell := func(rec []string, col string) string {
		i := index[col]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, Row{
			Sector:          cell(rec, "sector"),
			Industry:        cell(rec, "industry"),
			SubIndustry:     cell(rec, "sub_industry"),
			Code:            cell(rec, "code"),
			CodeDescription: cell(rec, "code_description"),
		})
	}

	t := Build(rows)
	if err := t.Validate(); err != nil {
		return nil, loadError(path, "", err)
	}
	return t, nil
}

// mapHeader resolves column positions and reports required columns that are absent.
func mapHeader(header []string) (map[string]int, []string) {
	index := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for col, aliases := range columnAliases {
			if _, seen := index[col]; seen {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					index[col] = i
				}
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	return index, missing
}
