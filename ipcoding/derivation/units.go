package derivation

import (
	"fmt"

	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
)

// unitCounters compute the raw unit count for each multi-unit code.
var unitCounters = map[string]func(rec *models.ProcedureRecord, m evidence.Matcher) int{
	CodeTBBxAdditionalLobe: func(rec *models.ProcedureRecord, m evidence.Matcher) int {
		return biopsyLobes(rec, m).count - 1
	},
	CodeTBNAAdditionalLobe: func(rec *models.ProcedureRecord, m evidence.Matcher) int {
		return peripheralTBNALobes(rec, m).count - 1
	},
	CodeStentAdditionalBronchi: func(rec *models.ProcedureRecord, m evidence.Matcher) int {
		return additionalBronchi(rec).count
	},
	CodeValveRemovalAddLobe: func(rec *models.ProcedureRecord, m evidence.Matcher) int {
		return valveLobes(rec, m, true).count - 1
	},
	CodeValveInsertionAddLobe: func(rec *models.ProcedureRecord, m evidence.Matcher) int {
		return valveLobes(rec, m, false).count - 1
	},
	CodeElastographyAdditional: func(rec *models.ProcedureRecord, m evidence.Matcher) int {
		return elastographyTargets(rec, m).count - 1
	},
	CodeSedationAdditional: func(rec *models.ProcedureRecord, _ evidence.Matcher) int {
		if s := rec.ProceduresPerformed.ModerateSedation; s != nil {
			return sedationUnits(s.DurationMinutes)
		}
		return 0
	},
}

// UnitCalculator counts billable units for the multi-unit add-on codes.
type UnitCalculator struct {
	matcher evidence.Matcher
}

func NewUnitCalculator(matcher evidence.Matcher) *UnitCalculator {
	return &UnitCalculator{matcher: matcher}
}

// Units returns the unit count of every multi-unit code in codes that has at least one unit.
// Counts are capped by the knowledge base max_units value or, when the knowledge base has none,
// by the built in default. Codes without an entry bill a single unit.
func (u *UnitCalculator) Units(rec *models.ProcedureRecord, codes []string, k KnowledgeBase) (map[string]int, []models.Warning) {
	units := make(map[string]int)
	var warnings []models.Warning
	for _, code := range codes {
		count, ok := unitCounters[code]
		if !ok {
			continue
		}
		n := count(rec, u.matcher)
		if n < 1 {
			continue
		}

		limit, ok := k.MaxUnits(code)
		if !ok {
			limit = defaultMaxUnits[code]
		}
		if limit > 0 && n > limit {
			warnings = append(warnings, models.Warning{
				Kind:   models.WarningUnitsCapped,
				Code:   code,
				Detail: fmt.Sprintf("%d units documented, %d allowed", n, limit),
			})
			n = limit
		}
		units[code] = n
	}
	return units, warnings
}
