// Package clauses holds the static, jurisdiction-keyed clause templates used
// to assemble the drafting prompt. Templates reference field tokens
// abstractly; the provider fills them with the masked record's placeholders.
package clauses

import "sort"

// Regime classifies how a jurisdiction divides marital property.
type Regime string

const (
	RegimeCommunityProperty     Regime = "community_property"
	RegimeEquitableDistribution Regime = "equitable_distribution"
)

// Template is one clause the provider must draft for the agreement.
type Template struct {
	ID    string
	Title string
	Guide string // drafting guidance handed to the provider
}

type jurisdiction struct {
	Name   string
	Regime Regime
}

var jurisdictions = map[string]jurisdiction{
	"CA": {Name: "California", Regime: RegimeCommunityProperty},
	"TX": {Name: "Texas", Regime: RegimeCommunityProperty},
	"WA": {Name: "Washington", Regime: RegimeCommunityProperty},
	"AZ": {Name: "Arizona", Regime: RegimeCommunityProperty},
	"NV": {Name: "Nevada", Regime: RegimeCommunityProperty},
	"NY": {Name: "New York", Regime: RegimeEquitableDistribution},
	"FL": {Name: "Florida", Regime: RegimeEquitableDistribution},
	"IL": {Name: "Illinois", Regime: RegimeEquitableDistribution},
	"MA": {Name: "Massachusetts", Regime: RegimeEquitableDistribution},
	"CO": {Name: "Colorado", Regime: RegimeEquitableDistribution},
}

var baseTemplates = []Template{
	{ID: "recitals", Title: "Recitals",
		Guide: "Identify both parties by their placeholder names, state the intended wedding date placeholder and the governing jurisdiction."},
	{ID: "disclosure", Title: "Financial Disclosure",
		Guide: "Enumerate every listed asset and debt with its description and value placeholders, grouped by owning party."},
	{ID: "separate_property", Title: "Separate Property",
		Guide: "Define which pre-marital assets remain separate property of each party."},
	{ID: "marital_property", Title: "Marital Property",
		Guide: "Define treatment of property acquired during the marriage."},
	{ID: "debts", Title: "Debt Responsibility",
		Guide: "Allocate responsibility for each listed debt to its responsible party."},
	{ID: "spousal_support", Title: "Spousal Support",
		Guide: "State the parties' agreement regarding spousal support or its waiver."},
	{ID: "general", Title: "General Provisions",
		Guide: "Severability, governing law, entire agreement, amendment in writing, independent counsel acknowledgment."},
}

var communityExtra = Template{
	ID: "community_property", Title: "Community Property Opt-Out",
	Guide: "State that the parties opt out of the default community-property regime and how future earnings are characterized.",
}

var equitableExtra = Template{
	ID: "equitable_distribution", Title: "Equitable Distribution Waiver",
	Guide: "State how the parties modify the default equitable-distribution rules for listed property.",
}

// Supported reports whether a jurisdiction code has a clause set.
func Supported(code string) bool {
	_, ok := jurisdictions[code]
	return ok
}

// Name returns the human-readable jurisdiction name.
func Name(code string) string {
	return jurisdictions[code].Name
}

// RegimeFor returns the property regime of a supported jurisdiction.
func RegimeFor(code string) Regime {
	return jurisdictions[code].Regime
}

// For returns the ordered clause templates for a jurisdiction, or nil when
// the code is unsupported.
func For(code string) []Template {
	j, ok := jurisdictions[code]
	if !ok {
		return nil
	}
	out := make([]Template, 0, len(baseTemplates)+1)
	out = append(out, baseTemplates...)
	if j.Regime == RegimeCommunityProperty {
		out = append(out, communityExtra)
	} else {
		out = append(out, equitableExtra)
	}
	return out
}

// Codes lists supported jurisdiction codes in stable order.
func Codes() []string {
	out := make([]string, 0, len(jurisdictions))
	for code := range jurisdictions {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
