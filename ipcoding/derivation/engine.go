package derivation

import (
	"encoding/json"
	"time"

	"github.com/CMSgov/ipcoding-app/ipcoding/constants"
	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/kb"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"
)

// Source supplies the knowledge base snapshot used for a single derivation. Both
// *kb.KnowledgeBase and *kb.Store satisfy it.
type Source interface {
	Snapshot() *kb.KnowledgeBase
}

// Engine derives the final code set for procedure records. It is safe for concurrent use; each
// call reads one knowledge base snapshot for its whole duration.
type Engine struct {
	source    Source
	evaluator *Evaluator
	resolver  *Resolver
	units     *UnitCalculator
	logger    logrus.FieldLogger
}

func NewEngine(source Source, matcher evidence.Matcher, logger logrus.FieldLogger) *Engine {
	return &Engine{
		source:    source,
		evaluator: NewEvaluator(matcher, logger),
		resolver:  NewResolver(logger),
		units:     NewUnitCalculator(matcher),
		logger:    logger,
	}
}

// derivationSpace namespaces the name based derivation ids.
var derivationSpace = uuid.Parse("8c0f5a3e-6f1d-4d2b-9b57-2a61e4c0d9b3")

// Apply derives codes for rec. It never fails: problems with the record are reported as
// warnings and the affected codes are omitted. Without a record or a knowledge base snapshot no
// codes are derived. The same record applied against the same knowledge base version always
// yields the same Derivation, including its ID.
func (e *Engine) Apply(rec *models.ProcedureRecord) *models.Derivation {
	start := time.Now()
	d := &models.Derivation{Codes: []models.DerivedCode{}, Warnings: []models.Warning{}}

	snapshot := e.source.Snapshot()
	if snapshot != nil {
		d.KBVersion = snapshot.Version()
	}
	d.ID = derivationID(rec, d.KBVersion)

	if rec == nil {
		d.Warnings = append(d.Warnings, models.Warning{Kind: models.WarningMissingDetail,
			Field: "procedure_record", Detail: "no procedure record was supplied"})
		e.logger.WithField("derivation_id", d.ID).Warn("Derivation attempted without a procedure record")
		return d
	}
	d.Warnings = append(d.Warnings, rec.DecodeWarnings...)

	if snapshot == nil {
		d.Warnings = append(d.Warnings, models.Warning{Kind: models.WarningSuppressed,
			Detail: "no knowledge base is loaded, no codes were derived"})
		e.logger.WithField("derivation_id", d.ID).Error("Derivation attempted without a knowledge base")
		return d
	}

	c := e.evaluator.Evaluate(rec, snapshot)
	e.resolver.Resolve(c, snapshot)
	units, warnings := e.units.Units(rec, c.Codes, snapshot)
	d.Warnings = append(d.Warnings, c.Warnings...)
	d.Warnings = append(d.Warnings, warnings...)
	if len(units) > 0 {
		d.Units = units
	}

	for _, code := range c.Codes {
		n := 1
		if u, ok := units[code]; ok {
			n = u
		}
		d.Codes = append(d.Codes, models.DerivedCode{
			Code:       code,
			Rationale:  c.Rationales[code],
			RuleID:     c.RuleIDs[code],
			Confidence: constants.DeterministicConfidence,
			Units:      n,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"derivation_id": d.ID,
		"encounter_id":  rec.EncounterID,
		"kb_version":    d.KBVersion,
		"codes":         d.CodeValues(),
		"warnings":      len(d.Warnings),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Derived codes")
	return d
}

// derivationID is a name based UUID over the record content and the knowledge base version.
func derivationID(rec *models.ProcedureRecord, kbVersion string) string {
	var name []byte
	if rec != nil {
		// Every record field is a plain JSON value, so Marshal cannot fail here.
		name, _ = json.Marshal(struct {
			Record         *models.ProcedureRecord `json:"record"`
			DecodeWarnings []models.Warning        `json:"decode_warnings"`
		}{rec, rec.DecodeWarnings})
	}
	name = append(name, kbVersion...)
	return uuid.NewSHA1(derivationSpace, name).String()
}
