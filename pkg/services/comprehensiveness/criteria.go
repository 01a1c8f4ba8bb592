package comprehensiveness

import (
	"strings"
	"time"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/services/reference"
)

// view is the per-record evaluation scope for the criteria battery.
type view struct {
	rec   *domain.Record
	root  *domain.Node
	ref   *reference.Tables
	now   time.Time
	major string
	codes domain.Codes
}

func (v *view) transactions() []*domain.Node {
	return v.root.FindAll("transaction")
}

func (v *view) transactionsOfType(typeCodes ...string) []*domain.Node {
	var out []*domain.Node
	for _, t := range v.transactions() {
		code := domain.TransactionType(t)
		for _, want := range typeCodes {
			if code == want {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// fundedTransactions are the transactions that bring money into the
// activity: incoming funds plus the 2.03 incoming commitment (11) and
// incoming pledge (13) types.
func (v *view) fundedTransactions() []*domain.Node {
	return v.transactionsOfType(v.codes.IncomingFunds, "11", "13")
}

func (v *view) startDate() (time.Time, bool) {
	if ds := domain.ActivityDates(v.root, v.codes.ActualStart); len(ds) > 0 {
		return ds[0], true
	}
	if ds := domain.ActivityDates(v.root, v.codes.PlannedStart); len(ds) > 0 {
		return ds[0], true
	}
	return time.Time{}, false
}

func (v *view) reportingOrgRef() string {
	for _, org := range v.root.FindAll("reporting-org") {
		if ref := org.Attr("ref"); ref != "" {
			return ref
		}
	}
	return ""
}

func (v *view) participatingRefsByRole(roles ...string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, org := range v.root.FindAll("participating-org") {
		role := org.Attr("role")
		for _, want := range roles {
			if role == want {
				out[org.Attr("ref")] = struct{}{}
				break
			}
		}
	}
	return out
}

// isDonorPublisher: the reporting org also appears as a funding or extending
// participant, and not as an implementing one.
func (v *view) isDonorPublisher() bool {
	ref := v.reportingOrgRef()
	if ref == "" {
		return false
	}
	funders := v.participatingRefsByRole(v.codes.FundingRole, v.codes.ExtendingRole)
	if _, ok := funders[ref]; !ok {
		return false
	}
	implementers := v.participatingRefsByRole(v.codes.ImplementingRole)
	_, implementing := implementers[ref]
	return !implementing
}

// dacSectors returns activity-level sector elements using a DAC vocabulary
// (or none, which defaults to DAC 5-digit).
func dacSectors(n *domain.Node, codes domain.Codes) []*domain.Node {
	var out []*domain.Node
	for _, s := range n.FindAll("sector") {
		v := s.Attr("vocabulary")
		if v == "" || v == codes.DAC5 || v == codes.DAC3 {
			out = append(out, s)
		}
	}
	return out
}

func (v *view) isSectorDAC() bool {
	if len(dacSectors(v.root, v.codes)) > 0 {
		return true
	}
	if v.major == "1" {
		return false
	}
	var perTransaction []bool
	for _, t := range v.transactions() {
		perTransaction = append(perTransaction, len(dacSectors(t, v.codes)) > 0)
	}
	return allTrueAndNotEmpty(perTransaction)
}

func (v *view) budgetNotProvided() (string, bool) {
	val, ok := v.root.Attrs["budget-not-provided"]
	return val, ok
}

// recipientLanguageUsed: with exactly one recipient country, both the title
// and the description use at least one of that country's languages.
func (v *view) recipientLanguageUsed() bool {
	countries := v.root.FindAll("recipient-country")
	if len(countries) != 1 {
		return false
	}
	countryLangs := map[string]struct{}{}
	for _, lang := range v.ref.CountryLanguages(countries[0].Attr("code")) {
		countryLangs[lang] = struct{}{}
	}
	used := func(tag string) bool {
		for _, el := range v.root.FindAll(tag) {
			for _, lang := range domain.Languages(v.major, v.root, el) {
				if _, ok := countryLangs[lang]; ok {
					return true
				}
			}
		}
		return false
	}
	return used("title") && used("description")
}

func (v *view) websites() []*domain.Node {
	if v.major == "1" {
		return v.root.FindAll("activity-website")
	}
	var out []*domain.Node
	for _, dl := range v.root.FindAll("document-link") {
		for _, cat := range dl.FindAll("category") {
			if cat.Attr("code") == "A12" {
				out = append(out, dl)
				break
			}
		}
	}
	return out
}

func (v *view) countryOrRegion(n *domain.Node) bool {
	return n.Find("recipient-country") != nil || n.Find("recipient-region") != nil
}

func (v *view) aidTypeCodes(n *domain.Node) []string {
	var out []string
	for _, at := range n.FindAll("aid-type") {
		if code := at.Attr("code"); code != "" {
			out = append(out, code)
		}
	}
	return out
}

// presenceBools runs the presence test of every criterion.
func (v *view) presenceBools() map[string]bool {
	hasText := func(tag string) bool {
		for _, el := range v.root.FindAll(tag) {
			if domain.NarrativeText(v.major, el) {
				return true
			}
		}
		return false
	}

	sectorPresent := v.root.Find("sector") != nil
	if !sectorPresent && v.major != "1" {
		var perTransaction []bool
		for _, t := range v.transactions() {
			perTransaction = append(perTransaction, t.Find("sector") != nil)
		}
		sectorPresent = allTrueAndNotEmpty(perTransaction)
	}

	countryPresent := v.countryOrRegion(v.root)
	if !countryPresent && v.major != "1" {
		var perTransaction []bool
		for _, t := range v.transactions() {
			perTransaction = append(perTransaction, v.countryOrRegion(t))
		}
		countryPresent = allTrueAndNotEmpty(perTransaction)
	}

	var currencyPerTransaction []bool
	for _, t := range v.transactions() {
		hasValueDate := t.Find("value").Attr("value-date") != ""
		hasCurrency := v.root.Attr("default-currency") != "" || t.Find("value").Attr("currency") != ""
		currencyPerTransaction = append(currencyPerTransaction, hasValueDate && hasCurrency)
	}

	var traceablePerTransaction []bool
	for _, t := range v.fundedTransactions() {
		traceablePerTransaction = append(traceablePerTransaction,
			t.Find("provider-org").Attr("provider-activity-id") != "")
	}

	aidTypePresent := v.root.Find("default-aid-type").Attr("code") != ""
	if !aidTypePresent {
		var perTransaction []bool
		for _, t := range v.transactions() {
			perTransaction = append(perTransaction, len(v.aidTypeCodes(t)) > 0)
		}
		aidTypePresent = allTrueAndNotEmpty(perTransaction)
	}

	var locations []*domain.Node
	for _, loc := range v.root.FindAll("location") {
		if loc.Find("point").Find("pos") != nil || loc.Find("name") != nil ||
			loc.Find("description") != nil || loc.Find("location-administrative") != nil {
			locations = append(locations, loc)
		}
	}

	_, bnp := v.budgetNotProvided()

	return map[string]bool{
		"version":           v.rec.FileVersion != "",
		"reporting-org":     v.reportingOrgRef() != "" && hasText("reporting-org"),
		"iati-identifier":   strings.TrimSpace(v.root.ChildText("iati-identifier")) != "",
		"participating-org": v.root.Find("participating-org") != nil,
		"title":             hasText("title"),
		"description":       hasText("description"),
		"activity-status":   v.root.Find("activity-status") != nil,
		"activity-date":     v.root.Find("activity-date") != nil,
		"sector":            sectorPresent,
		"country_or_region": countryPresent,
		"transaction_commitment": len(v.transactionsOfType(v.codes.Commitment, "11")) > 0,
		"transaction_spend":      len(v.transactionsOfType(v.codes.Disbursement, v.codes.Expenditure)) > 0,
		"transaction_currency":   allTrueAndNotEmpty(currencyPerTransaction),
		"transaction_traceability": allTrueAndNotEmpty(traceablePerTransaction) ||
			v.isDonorPublisher(),
		"budget":              v.root.Find("budget") != nil,
		"budget_not_provided": bnp,
		"contact-info":        v.root.Find("contact-info").Find("email") != nil,
		"location":            len(locations) > 0,
		"location_point_pos":  len(v.locationPositions()) > 0,
		"sector_dac":          v.isSectorDAC(),
		"capital-spend":       v.root.Find("capital-spend").HasAttr("percentage"),
		"document-link":       v.root.Find("document-link") != nil,
		"activity-website":    len(v.websites()) > 0,
		"recipient_language":  v.recipientLanguageUsed(),
		"conditions_attached": v.root.Find("conditions").HasAttr("attached"),
		"result_indicator":    v.root.Find("result").Find("indicator") != nil,
		"aid_type":            aidTypePresent,
	}
}

func (v *view) locationPositions() []*domain.Node {
	var out []*domain.Node
	for _, loc := range v.root.FindAll("location") {
		if pos := loc.Find("point").Find("pos"); pos != nil {
			out = append(out, pos)
		}
	}
	return out
}

// validatedBools tightens the presence tests with format, codelist and
// percentage-sum constraints.
func (v *view) validatedBools() map[string]bool {
	bools := v.presenceBools()
	codelist := func(name, code string) bool {
		return v.ref.CodelistHas(v.major, name, code)
	}

	bools["version"] = bools["version"] && codelist("Version", v.rec.FileVersion)

	// 1.x data gets an automatic pass on the identifier prefix condition.
	if v.major != "1" {
		id := strings.TrimSpace(v.root.ChildText("iati-identifier"))
		prefixes := []string{v.reportingOrgRef()}
		for _, oi := range v.root.FindAll("other-identifier") {
			if oi.Attr("type") == "B1" && oi.Attr("ref") != "" {
				prefixes = append(prefixes, oi.Attr("ref"))
			}
		}
		matched := false
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(id, p) {
				matched = true
				break
			}
		}
		bools["iati-identifier"] = bools["iati-identifier"] && matched
	}

	fundingRolePresent := false
	for _, org := range v.root.FindAll("participating-org") {
		if org.Attr("role") == v.codes.FundingRole {
			fundingRolePresent = true
			break
		}
	}
	bools["participating-org"] = bools["participating-org"] && fundingRolePresent

	var statusCodes []bool
	for _, st := range v.root.FindAll("activity-status") {
		statusCodes = append(statusCodes, codelist("ActivityStatus", st.Attr("code")))
	}
	bools["activity-status"] = bools["activity-status"] && allTrueAndNotEmpty(statusCodes)

	var allDates []bool
	for _, ad := range v.root.FindAll("activity-date") {
		allDates = append(allDates, validDateElement(ad))
	}
	hasStart := len(domain.ActivityDates(v.root, v.codes.PlannedStart)) > 0 ||
		len(domain.ActivityDates(v.root, v.codes.ActualStart)) > 0
	bools["activity-date"] = bools["activity-date"] && hasStart && allTrueAndNotEmpty(allDates)

	bools["sector"] = bools["sector"] && percentageSumIs100ByVocab(v.root.FindAll("sector"))

	var countryRegion []*domain.Node
	countryRegion = append(countryRegion, v.root.FindAll("recipient-country")...)
	countryRegion = append(countryRegion, v.root.FindAll("recipient-region")...)
	bools["country_or_region"] = bools["country_or_region"] && percentageSumIs100(countryRegion)

	validFinancial := func(ts []*domain.Node) bool {
		var dated []bool
		for _, t := range ts {
			if !validValue(t.Find("value")) {
				return false
			}
			dated = append(dated, validDateElement(t.Find("transaction-date")) || validValueDate(t.Find("value")))
		}
		return allTrueAndNotEmpty(dated)
	}
	commitments := v.transactionsOfType(v.codes.Commitment, "11")
	spend := v.transactionsOfType(v.codes.Disbursement, v.codes.Expenditure)
	bools["transaction_commitment"] = bools["transaction_commitment"] && validFinancial(commitments)
	bools["transaction_spend"] = bools["transaction_spend"] && validFinancial(spend)

	// Vacuously true with no transactions, matching the published
	// methodology: the validated score is reported alongside the presence
	// score, not combined with it.
	currencyValid := true
	for _, t := range v.transactions() {
		for _, val := range t.FindAll("value") {
			if !validValueDate(val) {
				currencyValid = false
			}
			if cur := val.Attr("currency"); cur != "" && !codelist("Currency", cur) {
				currencyValid = false
			}
		}
		if def := v.root.Attr("default-currency"); def != "" && !codelist("Currency", def) {
			currencyValid = false
		}
	}
	bools["transaction_currency"] = currencyValid

	budgetsValid := true
	for _, b := range v.root.FindAll("budget") {
		if !validDateElement(b.Find("period-start")) || !validDateElement(b.Find("period-end")) ||
			!validValueDate(b.Find("value")) || !validValue(b.Find("value")) {
			budgetsValid = false
			break
		}
	}
	bools["budget"] = bools["budget"] && budgetsValid

	if bnp, ok := v.budgetNotProvided(); ok {
		bools["budget_not_provided"] = bools["budget_not_provided"] && codelist("BudgetNotProvided", bnp)
	} else {
		bools["budget_not_provided"] = false
	}

	var coords []bool
	for _, pos := range v.locationPositions() {
		coords = append(coords, validCoords(strings.TrimSpace(pos.Text)))
	}
	bools["location_point_pos"] = allTrueAndNotEmpty(coords)

	sectorCodesValid := true
	for _, s := range v.root.FindAll("sector") {
		switch s.Attr("vocabulary") {
		case "", v.codes.DAC5:
			if !codelist("Sector", s.Attr("code")) {
				sectorCodesValid = false
			}
		case v.codes.DAC3:
			if !codelist("SectorCategory", s.Attr("code")) {
				sectorCodesValid = false
			}
		}
	}
	bools["sector_dac"] = bools["sector_dac"] && sectorCodesValid

	var docLinks []bool
	for _, dl := range v.root.FindAll("document-link") {
		cat := dl.Find("category")
		docLinks = append(docLinks, validURL(dl) && cat != nil && codelist("DocumentCategory", cat.Attr("code")))
	}
	bools["document-link"] = allTrueAndNotEmpty(docLinks)

	var sites []bool
	for _, w := range v.websites() {
		sites = append(sites, validURL(w))
	}
	bools["activity-website"] = allTrueAndNotEmpty(sites)

	if bools["aid_type"] {
		defaultValid := false
		if code := v.root.Find("default-aid-type").Attr("code"); code != "" {
			defaultValid = codelist("AidType", code)
		}
		var perTransaction []bool
		for _, t := range v.transactions() {
			anyValid := false
			for _, code := range v.aidTypeCodes(t) {
				if codelist("AidType", code) {
					anyValid = true
					break
				}
			}
			perTransaction = append(perTransaction, anyValid)
		}
		bools["aid_type"] = defaultValid || allTrueAndNotEmpty(perTransaction)
	}

	return bools
}
