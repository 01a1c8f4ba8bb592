package reference

import "strings"

// Codelist is a set of permitted coded values.
type Codelist map[string]struct{}

// SpendFigures carries the static reference spend data for one publisher, as
// published in the transparency indicator source sheet. Amounts stay as the
// raw strings from the sheet; they may include thousands separators or be
// blank.
type SpendFigures struct {
	PublisherName    string
	RefSpend2014     string
	RefSpend2015     string
	Forecast2015     string
	Currency         string
	ErrorReported    bool
	DAC              bool
}

// Tables holds every read-only lookup structure the engine needs. It is built
// once at process start and passed explicitly into evaluation; after that it
// is never mutated, so unsynchronized concurrent reads are safe.
type Tables struct {
	// codelists is keyed by standard major version, then codelist name.
	codelists map[string]map[string]Codelist
	// orgPrefixes and channelCodes are valid organisation identifier
	// prefixes per major version.
	orgPrefixes  map[string][]string
	channelCodes map[string][]string
	// countryLangs maps ISO 3166-1 country codes to ISO 639-1 languages.
	countryLangs map[string][]string
	// spend is keyed by publisher registry identifier.
	spend map[string]SpendFigures
}

// NewTables assembles a Tables value from already-loaded data. Organisation
// prefixes and CRS channel codes are derived from the corresponding
// codelists.
func NewTables(
	codelists map[string]map[string]Codelist,
	countryLangs map[string][]string,
	spend map[string]SpendFigures,
) *Tables {
	t := &Tables{
		codelists:    codelists,
		orgPrefixes:  make(map[string][]string),
		channelCodes: make(map[string][]string),
		countryLangs: countryLangs,
		spend:        spend,
	}
	if t.codelists == nil {
		t.codelists = map[string]map[string]Codelist{}
	}
	if t.countryLangs == nil {
		t.countryLangs = map[string][]string{}
	}
	if t.spend == nil {
		t.spend = map[string]SpendFigures{}
	}
	for major, lists := range t.codelists {
		for code := range lists["OrganisationRegistrationAgency"] {
			t.orgPrefixes[major] = append(t.orgPrefixes[major], code)
		}
		for code := range lists["CRSChannelCode"] {
			t.channelCodes[major] = append(t.channelCodes[major], code)
		}
	}
	return t
}

// CodelistHas reports whether a code is valid for the named codelist at the
// given major version. Unknown codelists accept nothing.
func (t *Tables) CodelistHas(major, name, code string) bool {
	lists, ok := t.codelists[major]
	if !ok {
		return false
	}
	_, ok = lists[name][code]
	return ok
}

// HasCodelist reports whether the named codelist is loaded for a version.
func (t *Tables) HasCodelist(major, name string) bool {
	lists, ok := t.codelists[major]
	if !ok {
		return false
	}
	_, ok = lists[name]
	return ok
}

// ValidOrgPrefix reports whether an organisation identifier starts with a
// known registration agency prefix or CRS channel code, returning the match.
func (t *Tables) ValidOrgPrefix(major, orgID string) (string, bool) {
	for _, prefix := range t.orgPrefixes[major] {
		if strings.HasPrefix(orgID, prefix) {
			return prefix, true
		}
	}
	for _, code := range t.channelCodes[major] {
		if strings.HasPrefix(orgID, code) {
			return code, true
		}
	}
	return "", false
}

// CountryLanguages returns the languages spoken in a country, or nil.
func (t *Tables) CountryLanguages(country string) []string {
	return t.countryLangs[country]
}

// Spend returns the reference spend figures for a publisher.
func (t *Tables) Spend(publisher string) (SpendFigures, bool) {
	s, ok := t.spend[publisher]
	return s, ok
}
