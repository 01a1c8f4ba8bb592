package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeCodelists(t *testing.T, dir string) {
	t.Helper()
	for _, major := range MajorVersions {
		for _, name := range CodelistNames {
			content := `{"data":[{"code":"1"},{"code":"2"}]}`
			switch name {
			case "Version":
				content = `{"data":[{"code":"1.01"},{"code":"2.02"},{"code":"2.03"}]}`
			case "OrganisationRegistrationAgency":
				content = `{"data":[{"code":"XM-DAC"},{"code":"GB-COH"}]}`
			}
			writeFile(t, filepath.Join(dir, "codelists", major, name+".json"), content)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeCodelists(t, dir)
	writeFile(t, filepath.Join(dir, "country_lang_map.csv"),
		"KE,Kenya,sw\nKE,Kenya,en\nTZ,Tanzania,sw\n")
	writeFile(t, filepath.Join(dir, "reference_spend.csv"),
		"publisher_name,publisher_id,2014_ref_spend,dac_status,a,b,2015_ref_spend,c,d,e,2015_official_forecast,currency,error_reported\n"+
			"World Bank,worldbank,\"1,000\",DAC member,,,2000,,,,3000,USD,Y\n")

	tables, err := LoadDir(dir)
	require.NoError(t, err)

	assert.True(t, tables.CodelistHas("2", "Version", "2.02"))
	assert.False(t, tables.CodelistHas("2", "Version", "9.9"))
	assert.False(t, tables.CodelistHas("3", "Version", "2.02"))

	prefix, ok := tables.ValidOrgPrefix("2", "XM-DAC-1-100")
	require.True(t, ok)
	assert.Equal(t, "XM-DAC", prefix)
	_, ok = tables.ValidOrgPrefix("2", "ZZ-UNKNOWN")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"sw", "en"}, tables.CountryLanguages("KE"))
	assert.Empty(t, tables.CountryLanguages("XX"))

	spend, ok := tables.Spend("worldbank")
	require.True(t, ok)
	assert.Equal(t, "World Bank", spend.PublisherName)
	assert.Equal(t, "1,000", spend.RefSpend2014)
	assert.Equal(t, "2000", spend.RefSpend2015)
	assert.Equal(t, "3000", spend.Forecast2015)
	assert.Equal(t, "USD", spend.Currency)
	assert.True(t, spend.ErrorReported)
	assert.True(t, spend.DAC)
}

func TestLoadDir_MissingCodelistFails(t *testing.T) {
	dir := t.TempDir()
	writeCodelists(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "codelists", "2", "Sector.json")))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "Sector")
}

func TestLoadDir_OptionalCSVs(t *testing.T) {
	dir := t.TempDir()
	writeCodelists(t, dir)

	tables, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, tables.CountryLanguages("KE"))
	_, ok := tables.Spend("worldbank")
	assert.False(t, ok)
}
