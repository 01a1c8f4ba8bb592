package reference

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MajorVersions are the standard major versions the engine recognizes.
var MajorVersions = []string{"1", "2"}

// CodelistNames are the codelists loaded for each major version.
var CodelistNames = []string{
	"Version",
	"ActivityStatus",
	"Currency",
	"Sector",
	"SectorCategory",
	"DocumentCategory",
	"AidType",
	"BudgetNotProvided",
	"OrganisationRegistrationAgency",
	"CRSChannelCode",
}

type codelistFile struct {
	Data []struct {
		Code string `json:"code"`
	} `json:"data"`
}

// LoadDir builds Tables from a reference directory with the layout
//
//	codelists/<major>/<name>.json
//	country_lang_map.csv
//	reference_spend.csv
//
// The CSV files are optional; a missing codelist file is an error since the
// validity criteria are meaningless without it.
func LoadDir(dir string) (*Tables, error) {
	codelists := make(map[string]map[string]Codelist)
	for _, major := range MajorVersions {
		codelists[major] = make(map[string]Codelist)
		for _, name := range CodelistNames {
			path := filepath.Join(dir, "codelists", major, name+".json")
			list, err := loadCodelist(path)
			if err != nil {
				return nil, fmt.Errorf("codelist %s/%s: %w", major, name, err)
			}
			codelists[major][name] = list
		}
	}

	langs, err := loadCountryLanguages(filepath.Join(dir, "country_lang_map.csv"))
	if err != nil {
		return nil, fmt.Errorf("country language map: %w", err)
	}

	spend, err := loadReferenceSpend(filepath.Join(dir, "reference_spend.csv"))
	if err != nil {
		return nil, fmt.Errorf("reference spend data: %w", err)
	}

	return NewTables(codelists, langs, spend), nil
}

func loadCodelist(path string) (Codelist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file codelistFile
	if err := json.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	list := make(Codelist, len(file.Data))
	for _, entry := range file.Data {
		list[entry.Code] = struct{}{}
	}
	return list, nil
}

// loadCountryLanguages reads rows of (country code, country name, language).
// A country may appear on several rows, one per language.
func loadCountryLanguages(path string) (map[string][]string, error) {
	rows, err := readCSV(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, err
	}
	out := make(map[string][]string)
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		out[row[0]] = append(out[row[0]], row[2])
	}
	return out, nil
}

// loadReferenceSpend reads the transparency indicator reference spend sheet.
// Column layout follows the published CSV: publisher name, registry id, 2014
// spend, DAC membership, ..., 2015 spend, ..., 2015 official forecast,
// currency, error-reported flag.
func loadReferenceSpend(path string) (map[string]SpendFigures, error) {
	rows, err := readCSV(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]SpendFigures{}, nil
		}
		return nil, err
	}
	out := make(map[string]SpendFigures)
	for i, row := range rows {
		// The published sheet always carries a header row.
		if i == 0 || len(row) < 13 {
			continue
		}
		out[row[1]] = SpendFigures{
			PublisherName: row[0],
			RefSpend2014:  row[2],
			RefSpend2015:  row[6],
			Forecast2015:  row[10],
			Currency:      row[11],
			ErrorReported: row[12] == "Y",
			DAC:           strings.Contains(row[3], "DAC"),
		}
	}
	return out, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
