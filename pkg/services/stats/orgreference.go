package stats

import (
	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

// orgReferenceTotalKeys is the quality ladder for organisation references:
// each level requires every level above it.
var orgReferenceTotalKeys = []string{
	"total_orgs",         // elements of the given role or kind
	"total_refs",         // ref attribute declared, possibly empty
	"total_full_refs",    // ref non-empty
	"total_notself_refs", // ref differs from the reporting organisation
	"total_valid_refs",   // ref starts with a known agency or channel prefix
}

// reportingOrgRef is the first non-empty reporting-org reference.
func reportingOrgRef(root *domain.Node) string {
	for _, org := range root.FindAll("reporting-org") {
		if ref := org.Attr("ref"); ref != "" {
			return ref
		}
	}
	return ""
}

// tallyOrgReferences walks the ladder for one set of organisation elements.
// The prefix counter is keyed by the matched identifier prefix, with invalid
// references collected under "None".
func tallyOrgReferences(c *Context, orgs []*domain.Node) (totals, prefixes Counter1) {
	totals = make(Counter1, len(orgReferenceTotalKeys))
	for _, k := range orgReferenceTotalKeys {
		totals[k] = decimal.Zero
	}
	prefixes = Counter1{}

	reporting := reportingOrgRef(c.Rec.Root)
	major := c.MajorVersion()
	for _, org := range orgs {
		totals["total_orgs"] = totals["total_orgs"].Add(one)
		if !org.HasAttr("ref") {
			continue
		}
		totals["total_refs"] = totals["total_refs"].Add(one)
		ref := org.Attr("ref")
		if ref == "" {
			continue
		}
		totals["total_full_refs"] = totals["total_full_refs"].Add(one)
		if ref == reporting {
			continue
		}
		totals["total_notself_refs"] = totals["total_notself_refs"].Add(one)
		prefix, ok := c.Ref.ValidOrgPrefix(major, ref)
		if !ok {
			prefix = "None"
		}
		prefixes[prefix] = prefixes[prefix].Add(one)
		if ok {
			totals["total_valid_refs"] = totals["total_valid_refs"].Add(one)
		}
	}
	return totals, prefixes
}

func participatingOrgsWithRole(c *Context, role string) []*domain.Node {
	var out []*domain.Node
	for _, org := range c.Rec.Root.FindAll("participating-org") {
		if org.Attr("role") == role {
			out = append(out, org)
		}
	}
	return out
}

// transactionOrgs collects the provider-org or receiver-org element of every
// transaction that carries one.
func transactionOrgs(c *Context, tag string) []*domain.Node {
	var out []*domain.Node
	for _, t := range c.Transactions() {
		if org := t.Find(tag); org != nil {
			out = append(out, org)
		}
	}
	return out
}

func statParticipatingOrgReferences(role func(domain.Codes) string) Func {
	return func(c *Context) Value {
		totals, _ := tallyOrgReferences(c, participatingOrgsWithRole(c, role(c.Codes())))
		return C1(totals)
	}
}

func statParticipatingOrgPrefixes(role func(domain.Codes) string) Func {
	return func(c *Context) Value {
		_, prefixes := tallyOrgReferences(c, participatingOrgsWithRole(c, role(c.Codes())))
		return C1(prefixes)
	}
}

func statTransactionOrgReferences(tag string) Func {
	return func(c *Context) Value {
		totals, _ := tallyOrgReferences(c, transactionOrgs(c, tag))
		return C1(totals)
	}
}

func statTransactionOrgPrefixes(tag string) Func {
	return func(c *Context) Value {
		_, prefixes := tallyOrgReferences(c, transactionOrgs(c, tag))
		return C1(prefixes)
	}
}
