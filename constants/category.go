package constants

// DefaultLabel is returned by every table scan that finds no match.
const DefaultLabel = "General"

// KeywordRule maps a label to the lowercase substrings that select it.
type KeywordRule struct {
	Label    string
	Keywords []string
}

// CategoryTable is scanned in order; the first rule with a matching keyword wins.
var CategoryTable = []KeywordRule{
	{Label: "Target Market Assessment", Keywords: []string{"target market", "assessment", "sales force"}},
	{Label: "Site Visitation", Keywords: []string{"site visit", "physical", "business operating address"}},
	{Label: "Business Operations", Keywords: []string{"business", "trading", "operations", "revenue"}},
	{Label: "Entity Structure", Keywords: []string{"entity", "ownership", "shareholders", "beneficial"}},
	{Label: "Staffing", Keywords: []string{"employee", "staff", "personnel"}},
	{Label: "Compliance", Keywords: []string{"compliance", "regulatory", "cii account", "relationship"}},
	{Label: "Financial", Keywords: []string{"financial", "revenue", "sales", "l2group"}},
	{Label: "Documentation", Keywords: []string{"document", "provide", "evidence"}},
}

// ComplianceTable uses the same first-match scan as CategoryTable.
var ComplianceTable = []KeywordRule{
	{Label: "KYC", Keywords: []string{"know your customer", "client", "customer", "identity"}},
	{Label: "AML", Keywords: []string{"anti money laundering", "suspicious", "transaction"}},
	{Label: "CDD", Keywords: []string{"customer due diligence", "beneficial owner", "ownership"}},
	{Label: "Operational", Keywords: []string{"site visit", "physical", "operations", "staff"}},
	{Label: "Financial", Keywords: []string{"revenue", "sales", "trading", "financial"}},
}

// RegulatoryTerms are reported verbatim, in this order, when present (case-insensitive).
var RegulatoryTerms = []string{
	"CII account", "L2group", "beneficial owner", "CSSP", "SOEID",
	"compliance", "regulatory", "assessment", "due diligence",
}

// CategoryLabels lists the category table labels plus the default.
func CategoryLabels() []string {
	out := make([]string, 0, len(CategoryTable)+1)
	for _, r := range CategoryTable {
		out = append(out, r.Label)
	}
	return append(out, DefaultLabel)
}
