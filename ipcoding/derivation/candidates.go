package derivation

import (
	"sort"
	"strings"

	"github.com/CMSgov/ipcoding-app/ipcoding/models"
)

// Candidates is the working code set passed from the evaluator through the resolver. Codes is
// kept sorted and free of duplicates.
type Candidates struct {
	Codes      []string
	Rationales map[string]string
	RuleIDs    map[string]string
	// Sites holds the normalized site tokens each code was emitted for. The resolver uses them
	// to decide whether two services were performed at distinct sites.
	Sites map[string]map[string]bool
	// Distinct marks codes whose documentation says they were performed on a separate lesion or
	// site, which keeps them from being bundled even when the site tokens overlap.
	Distinct map[string]bool
	Warnings []models.Warning
}

func newCandidates() *Candidates {
	return &Candidates{
		Rationales: make(map[string]string),
		RuleIDs:    make(map[string]string),
		Sites:      make(map[string]map[string]bool),
		Distinct:   make(map[string]bool),
	}
}

// Has reports whether code is a candidate.
func (c *Candidates) Has(code string) bool {
	i := sort.SearchStrings(c.Codes, code)
	return i < len(c.Codes) && c.Codes[i] == code
}

// HasAny reports whether any of codes is a candidate.
func (c *Candidates) HasAny(codes ...string) bool {
	for _, code := range codes {
		if c.Has(code) {
			return true
		}
	}
	return false
}

func (c *Candidates) add(e emission) {
	if !c.Has(e.code) {
		i := sort.SearchStrings(c.Codes, e.code)
		c.Codes = append(c.Codes, "")
		copy(c.Codes[i+1:], c.Codes[i:])
		c.Codes[i] = e.code
		c.Rationales[e.code] = e.rationale
		c.RuleIDs[e.code] = e.ruleID
	} else if e.rationale != "" && !strings.Contains(c.Rationales[e.code], e.rationale) {
		c.Rationales[e.code] += "; " + e.rationale
	}
	if e.distinct {
		c.Distinct[e.code] = true
	}
	if len(e.sites) > 0 {
		if c.Sites[e.code] == nil {
			c.Sites[e.code] = make(map[string]bool)
		}
		for s := range e.sites {
			c.Sites[e.code][s] = true
		}
	}
}

// remove drops code together with its rationale, rule id and sites.
func (c *Candidates) remove(code string) bool {
	i := sort.SearchStrings(c.Codes, code)
	if i >= len(c.Codes) || c.Codes[i] != code {
		return false
	}
	c.Codes = append(c.Codes[:i], c.Codes[i+1:]...)
	delete(c.Rationales, code)
	delete(c.RuleIDs, code)
	delete(c.Sites, code)
	delete(c.Distinct, code)
	return true
}

func (c *Candidates) warn(w models.Warning) {
	c.Warnings = append(c.Warnings, w)
}
