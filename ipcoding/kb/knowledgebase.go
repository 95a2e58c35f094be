// Package kb holds the knowledge base the derivation engine is configured with: the master
// code index, NCCI procedure-to-procedure pairs and the bundling rules. A KnowledgeBase is
// immutable once built; reloads publish a new value through a Store.
package kb

import (
	"sort"
	"strings"
)

const (
	KindCPT   = "cpt"
	KindHCPCS = "hcpcs"

	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDeleted  = "deleted"
)

// CodeEntry is one master code index entry.
type CodeEntry struct {
	Kind        string `mapstructure:"kind"`
	Status      string `mapstructure:"status"`
	Description string `mapstructure:"description"`
	// WorkRVU is the simplified work RVU. It is kept as decoded so that non numeric values
	// can be reported instead of failing the load.
	WorkRVU   interface{}            `mapstructure:"work_rvu"`
	RVUByYear map[string]interface{} `mapstructure:"rvu_by_year"`
	// MaxUnits is the medically unlikely edit for the code. Zero means unset.
	MaxUnits int  `mapstructure:"max_units"`
	AddOn    bool `mapstructure:"add_on"`
}

// Billable reports whether the entry is a code type that is billed and therefore needs an RVU.
func (e CodeEntry) Billable() bool {
	k := strings.ToLower(e.Kind)
	return k == KindCPT || k == KindHCPCS
}

// Active reports whether the entry is neither inactive nor deleted.
func (e CodeEntry) Active() bool {
	switch strings.ToLower(e.Status) {
	case StatusInactive, StatusDeleted, "retired":
		return false
	}
	return true
}

// NCCIPair is a procedure-to-procedure edit. When ModifierAllowed is false the two codes can
// never be billed together.
type NCCIPair struct {
	Primary         string `mapstructure:"primary"`
	Secondary       string `mapstructure:"secondary"`
	ModifierAllowed bool   `mapstructure:"modifier_allowed"`
	Reason          string `mapstructure:"reason"`
}

// Edge is a directed bundling relation: when both codes are present Keep survives and Drop is
// removed. Source names where the edge came from.
type Edge struct {
	Keep   string
	Drop   string
	Source string
	Reason string
}

// KnowledgeBase is an immutable, loaded knowledge base document.
type KnowledgeBase struct {
	version  string
	source   string
	codes    map[string]CodeEntry
	pairs    []NCCIPair
	rules    []Rule
	document map[string]interface{}
}

// Version is the document's declared version string.
func (kb *KnowledgeBase) Version() string {
	return kb.version
}

// Source is the path the knowledge base was loaded from, if any.
func (kb *KnowledgeBase) Source() string {
	return kb.source
}

// Snapshot returns kb itself so that a fixed KnowledgeBase can be used wherever a Store is.
func (kb *KnowledgeBase) Snapshot() *KnowledgeBase {
	return kb
}

// Document returns the generic document the knowledge base was decoded from. Callers must not
// modify it.
func (kb *KnowledgeBase) Document() map[string]interface{} {
	return kb.document
}

// Codes returns the normalized codes of the master index in sorted order.
func (kb *KnowledgeBase) Codes() []string {
	codes := make([]string, 0, len(kb.codes))
	for c := range kb.codes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Entry returns the master index entry for code.
func (kb *KnowledgeBase) Entry(code string) (CodeEntry, bool) {
	e, ok := kb.codes[NormalizeCode(code)]
	return e, ok
}

// NCCIPairs returns the NCCI pairs with normalized codes, in document order.
func (kb *KnowledgeBase) NCCIPairs() []NCCIPair {
	out := make([]NCCIPair, len(kb.pairs))
	copy(out, kb.pairs)
	return out
}

// Rules returns the bundling rules in document order.
func (kb *KnowledgeBase) Rules() []Rule {
	out := make([]Rule, len(kb.rules))
	copy(out, kb.rules)
	return out
}

// BundlingEdges flattens every bundling rule into keep -> drop edges.
func (kb *KnowledgeBase) BundlingEdges() []Edge {
	var edges []Edge
	for _, r := range kb.rules {
		edges = append(edges, r.Edges()...)
	}
	return edges
}

// TotalRVU resolves the work RVU for code. The second result is false when the code is not
// indexed or its value cannot be resolved.
func (kb *KnowledgeBase) TotalRVU(code string) (float64, bool) {
	e, ok := kb.Entry(code)
	if !ok {
		return 0, false
	}
	rvu, err := e.ResolveWorkRVU()
	if err != nil {
		return 0, false
	}
	return rvu, true
}

// MaxUnits returns the configured unit cap for code.
func (kb *KnowledgeBase) MaxUnits(code string) (int, bool) {
	e, ok := kb.Entry(code)
	if !ok || e.MaxUnits <= 0 {
		return 0, false
	}
	return e.MaxUnits, true
}

// CodeStatus returns the lower cased status of code.
func (kb *KnowledgeBase) CodeStatus(code string) (string, bool) {
	e, ok := kb.Entry(code)
	if !ok {
		return "", false
	}
	return strings.ToLower(e.Status), true
}

// NormalizeCode strips the add-on marker and surrounding space and upper cases the code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(code), "+"))
}
