package derivation

import (
	"fmt"
	"runtime/debug"

	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/kb"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
	"github.com/sirupsen/logrus"
)

// KnowledgeBase is the read only view of the knowledge base the derivation path consumes.
type KnowledgeBase interface {
	NCCIPairs() []kb.NCCIPair
	TotalRVU(code string) (float64, bool)
	BundlingEdges() []kb.Edge
	MaxUnits(code string) (int, bool)
	CodeStatus(code string) (string, bool)
}

type emission struct {
	code      string
	ruleID    string
	rationale string
	sites     map[string]bool
	distinct  bool
}

// clause derives the codes for one procedure category.
type clause struct {
	// path is the record path of the category, used for evidence lookup and warnings
	path string
	run  func(c *clauseContext)
}

type clauseContext struct {
	rec      *models.ProcedureRecord
	matcher  evidence.Matcher
	path     string
	emitted  []*emission
	warnings []models.Warning
}

func (c *clauseContext) emit(code, ruleID, rationale string) *emission {
	em := &emission{code: code, ruleID: ruleID, rationale: rationale}
	c.emitted = append(c.emitted, em)
	return em
}

func (c *clauseContext) missing(detail string) {
	c.warnings = append(c.warnings, models.Warning{Kind: models.WarningMissingDetail, Field: c.path, Detail: detail})
}

func (c *clauseContext) suppress(code, detail string) {
	c.warnings = append(c.warnings, models.Warning{Kind: models.WarningSuppressed, Code: code, Field: c.path, Detail: detail})
}

// evidence returns the snippets attached to the category or to one of its fields.
func (c *clauseContext) evidence(field ...string) []string {
	if len(field) == 0 {
		return c.rec.EvidenceFor(c.path)
	}
	var snippets []string
	for _, f := range field {
		snippets = append(snippets, c.rec.EvidenceFor(c.path+"."+f)...)
	}
	return snippets
}

// Evaluator maps a procedure record to candidate codes. It holds no per-record state and is safe
// for concurrent use.
type Evaluator struct {
	matcher evidence.Matcher
	clauses []clause
	logger  logrus.FieldLogger
}

func NewEvaluator(matcher evidence.Matcher, logger logrus.FieldLogger) *Evaluator {
	e := &Evaluator{matcher: matcher, logger: logger}
	e.clauses = append(e.clauses, bronchoscopyClauses()...)
	e.clauses = append(e.clauses, pleuralClauses()...)
	return e
}

// Evaluate runs every clause against rec. A clause that panics contributes nothing and is
// reported as a clause_failed warning; the remaining clauses are unaffected. Codes the knowledge
// base marks inactive or deleted are suppressed.
func (e *Evaluator) Evaluate(rec *models.ProcedureRecord, k KnowledgeBase) *Candidates {
	out := newCandidates()
	for _, cl := range e.clauses {
		ctx := &clauseContext{rec: rec, matcher: e.matcher, path: cl.path}
		if err := e.runIsolated(cl, ctx); err != nil {
			out.warn(models.Warning{Kind: models.WarningClauseFailed, Field: cl.path, Detail: err.Error()})
			continue
		}
		for _, em := range ctx.emitted {
			out.add(*em)
		}
		out.Warnings = append(out.Warnings, ctx.warnings...)
	}

	for _, code := range append([]string(nil), out.Codes...) {
		status, ok := k.CodeStatus(code)
		if !ok {
			continue
		}
		switch status {
		case kb.StatusInactive, kb.StatusDeleted, "retired":
			out.remove(code)
			out.warn(models.Warning{Kind: models.WarningInactiveCode, Code: code,
				Detail: fmt.Sprintf("code is %s in the knowledge base", status)})
		}
	}
	return out
}

func (e *Evaluator) runIsolated(cl clause, ctx *clauseContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
			e.logger.WithFields(logrus.Fields{
				"clause": cl.path,
				"panic":  r,
				"stack":  string(debug.Stack()),
			}).Error("Rule clause failed")
		}
	}()
	cl.run(ctx)
	return nil
}

// at records the site tokens the code was emitted for.
func (em *emission) at(sites map[string]bool) *emission {
	em.sites = sites
	return em
}

// separate marks the code as documented on a distinct lesion or site.
func (em *emission) separate() *emission {
	em.distinct = true
	return em
}
