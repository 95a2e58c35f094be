package derivation

import (
	"fmt"

	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/kb"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
	"github.com/sirupsen/logrus"
)

// Resolver removes conflicting candidates. It runs four ordered passes over the candidate set:
// static mutual exclusion, family bundling heuristics, knowledge base hard bundles and add-on
// gating. Every removal is reported as a warning.
type Resolver struct {
	logger logrus.FieldLogger
}

func NewResolver(logger logrus.FieldLogger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve mutates c in place.
func (r *Resolver) Resolve(c *Candidates, k KnowledgeBase) {
	r.staticExclusions(c)
	r.familyHeuristics(c)
	r.hardBundles(c, k)
	r.gateAddOns(c)
}

func (r *Resolver) drop(c *Candidates, dropped, kept, reason string) {
	if !c.remove(dropped) {
		return
	}
	c.warn(models.Warning{Kind: models.WarningConflictRemoved, Code: dropped, Other: kept, Detail: reason})
	r.logger.WithFields(logrus.Fields{"dropped": dropped, "kept": kept}).Debug(reason)
}

func (r *Resolver) staticExclusions(c *Candidates) {
	for _, pair := range staticExclusions {
		if c.Has(pair[0]) && c.Has(pair[1]) {
			r.drop(c, pair[1], pair[0], "more specific alternative")
		}
	}
}

// distinctSites reports whether a and b are documented at provably different sites or on a
// separate lesion.
func distinctSites(c *Candidates, a, b string) bool {
	return c.Distinct[a] || c.Distinct[b] || evidence.Disjoint(c.Sites[a], c.Sites[b])
}

func (r *Resolver) familyHeuristics(c *Candidates) {
	if c.Has(CodeStentRevision) {
		for _, code := range []string{CodeForeignBody, CodeTrachealStent, CodeBronchialStent, CodeStentAdditionalBronchi} {
			if c.Has(code) {
				r.drop(c, code, CodeStentRevision, "stent revision or exchange includes removal and placement")
			}
		}
	}

	if c.Has(CodeDilation) {
		for _, stent := range []string{CodeTrachealStent, CodeBronchialStent, CodeStentRevision} {
			if c.Has(stent) && !distinctSites(c, CodeDilation, stent) {
				r.drop(c, CodeDilation, stent, "dilation is included in stent work at the same site")
				break
			}
		}
	}

	if c.Has(CodeTumorExcision) && c.Has(CodeTumorDestruction) && !distinctSites(c, CodeTumorDestruction, CodeTumorExcision) {
		r.drop(c, CodeTumorDestruction, CodeTumorExcision, "destruction is included in excision of the same lesion")
	}

	if c.Has(CodeValveInsertion) && c.Has(CodeBalloonOcclusion) &&
		!evidence.Disjoint(c.Sites[CodeBalloonOcclusion], c.Sites[CodeValveInsertion]) {
		r.drop(c, CodeBalloonOcclusion, CodeValveInsertion, "balloon occlusion assessment is included in valve placement in the same lobe")
	}

	if c.Has(CodeDiagnosticBronchoscopy) {
		for _, primary := range bronchoscopicPrimaries {
			if primary != CodeDiagnosticBronchoscopy && c.Has(primary) {
				r.drop(c, CodeDiagnosticBronchoscopy, primary, "diagnostic bronchoscopy is included in every other bronchoscopic procedure")
				break
			}
		}
	}

	if c.Has(CodeChestUltrasound) {
		for _, guided := range []string{CodeThoracentesisImaging, CodeChestTubeImaging, CodeTunneledCatheter} {
			if c.Has(guided) {
				r.drop(c, CodeChestUltrasound, guided, "imaging guidance is included in the pleural procedure")
				break
			}
		}
	}
}

// hardBundles applies every non-modifiable NCCI pair and then the knowledge base bundling rules.
// Pairs default to dropping the secondary code unless both work RVUs resolve and the secondary
// is worth more, in which case the lower valued primary is dropped.
func (r *Resolver) hardBundles(c *Candidates, k KnowledgeBase) {
	for _, pair := range k.NCCIPairs() {
		if pair.ModifierAllowed {
			continue
		}
		p, s := kb.NormalizeCode(pair.Primary), kb.NormalizeCode(pair.Secondary)
		if !c.Has(p) || !c.Has(s) {
			continue
		}

		dropped, kept := s, p
		reason := pair.Reason
		pRVU, pOK := k.TotalRVU(p)
		sRVU, sOK := k.TotalRVU(s)
		if pOK && sOK && sRVU > pRVU {
			dropped, kept = p, s
			reason = joinReason(reason, fmt.Sprintf("work RVU %.2f is lower than %.2f", pRVU, sRVU))
		}
		if reason == "" {
			reason = "NCCI edit without modifier"
		}
		r.drop(c, dropped, kept, reason)
	}

	for _, edge := range k.BundlingEdges() {
		keep, drop := kb.NormalizeCode(edge.Keep), kb.NormalizeCode(edge.Drop)
		if c.Has(keep) && c.Has(drop) {
			reason := edge.Reason
			if reason == "" {
				reason = "bundling rule " + edge.Source
			}
			r.drop(c, drop, keep, reason)
		}
	}
}

func joinReason(reason, extra string) string {
	if reason == "" {
		return extra
	}
	return reason + " (" + extra + ")"
}

func (r *Resolver) gateAddOns(c *Candidates) {
	for _, code := range append([]string(nil), c.Codes...) {
		primaries, ok := addOnPrimaries[code]
		if !ok || c.HasAny(primaries...) {
			continue
		}
		c.remove(code)
		c.warn(models.Warning{
			Kind:   models.WarningAddonWithoutPrimary,
			Code:   code,
			Other:  primaries[0],
			Detail: "no qualifying primary procedure code remains",
		})
	}
}
