package stats

import (
	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

// The humanitarian attribute only exists from 2.02 onwards.
var humanitarianFlagVersions = map[string]struct{}{"2.02": {}, "2.03": {}}

// DAC sector codes deemed humanitarian.
var (
	humanitarianSectorsDAC5 = map[string]struct{}{
		"72010": {}, "72011": {}, "72012": {}, "72040": {},
		"72050": {}, "73010": {}, "74010": {}, "74020": {},
	}
	humanitarianSectorsDAC3 = map[string]struct{}{
		"720": {}, "730": {}, "740": {},
	}
)

func flagTrue(v string) bool  { return v == "1" || v == "true" }
func flagFalse(v string) bool { return v == "0" || v == "false" }

func sectorMatch(n *domain.Node, vocabularies map[string]bool, codeSet map[string]struct{}) bool {
	for _, s := range n.FindAll("sector") {
		if !vocabularies[s.Attr("vocabulary")] {
			continue
		}
		if _, ok := codeSet[s.Attr("code")]; ok {
			return true
		}
	}
	return false
}

// statHumanitarian combines the explicit humanitarian flags with inference
// from DAC sector codes. An explicit "not humanitarian" flag on the record
// vetoes every other positive signal and is applied last.
func statHumanitarian(c *Context) Value {
	root := c.Rec.Root
	codes := c.Codes()
	version := c.Version()
	_, flagVersion := humanitarianFlagVersions[version]

	byAttrActivity := flagTrue(root.Attr("humanitarian"))
	notByAttrActivity := flagFalse(root.Attr("humanitarian"))
	byAttrTransaction := false
	for _, t := range c.Transactions() {
		if flagTrue(t.Attr("humanitarian")) {
			byAttrTransaction = true
			break
		}
	}
	byAttr := flagVersion && (byAttrActivity || (byAttrTransaction && !notByAttrActivity))

	dac5Vocabs := map[string]bool{"": true, codes.DAC5: true}
	dac3Vocabs := map[string]bool{codes.DAC3: true}

	bySectorActivity := sectorMatch(root, dac5Vocabs, humanitarianSectorsDAC5) ||
		sectorMatch(root, dac3Vocabs, humanitarianSectorsDAC3)
	bySectorTransaction := false
	for _, t := range c.Transactions() {
		if flagFalse(t.Attr("humanitarian")) {
			continue
		}
		if sectorMatch(t, dac5Vocabs, humanitarianSectorsDAC5) ||
			sectorMatch(t, dac3Vocabs, humanitarianSectorsDAC3) {
			bySectorTransaction = true
			break
		}
	}
	bySector := bySectorActivity || (bySectorTransaction && c.MajorVersion() == "2")

	isHumanitarian := byAttr || bySector
	// Veto: an explicit record-level "not humanitarian" beats everything.
	if notByAttrActivity {
		isHumanitarian = false
	}

	hasScope := false
	if flagVersion {
		var types, scopeCodes []bool
		for _, hs := range root.FindAll("humanitarian-scope") {
			types = append(types, hs.Attr("type") != "")
			scopeCodes = append(scopeCodes, hs.Attr("code") != "")
		}
		hasScope = allTrue(types) && allTrue(scopeCodes) && len(types) > 0
	}

	usesClustersVocab := false
	usesGlide := false
	usesHRP := false
	if flagVersion {
		for _, s := range root.FindAll("sector") {
			if s.Attr("vocabulary") == "10" {
				usesClustersVocab = true
				break
			}
		}
		for _, hs := range root.FindAll("humanitarian-scope") {
			switch hs.Attr("vocabulary") {
			case "1-2":
				usesGlide = true
			case "2-1":
				usesHRP = true
			}
		}
	}

	bit := func(b bool) decimal.Decimal {
		if b {
			return one
		}
		return decimal.Zero
	}
	return C1(Counter1{
		"is_humanitarian":           bit(isHumanitarian),
		"is_humanitarian_by_attrib": bit(byAttr),
		"contains_humanitarian_scope":                      bit(isHumanitarian && hasScope),
		"contains_humanitarian_scope_without_humanitarian": bit(!isHumanitarian && hasScope),
		"uses_humanitarian_clusters_vocab":                      bit(isHumanitarian && usesClustersVocab),
		"uses_humanitarian_clusters_vocab_without_humanitarian": bit(!isHumanitarian && usesClustersVocab),
		"uses_humanitarian_glide_codes":                      bit(isHumanitarian && usesGlide),
		"uses_humanitarian_glide_codes_without_humanitarian": bit(!isHumanitarian && usesGlide),
		"uses_humanitarian_hrp_codes":                      bit(isHumanitarian && usesHRP),
		"uses_humanitarian_hrp_codes_without_humanitarian": bit(!isHumanitarian && usesHRP),
	})
}

func allTrue(bools []bool) bool {
	for _, b := range bools {
		if !b {
			return false
		}
	}
	return true
}
