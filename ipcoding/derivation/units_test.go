package derivation

import (
	"testing"

	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSedationUnits(t *testing.T) {
	tests := []struct {
		minutes  int
		expected int
	}{
		{0, 0}, {10, 0}, {22, 0}, {23, 1}, {37, 1}, {38, 2}, {52, 2}, {53, 3}, {143, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sedationUnits(tt.minutes), "%d minutes", tt.minutes)
	}
}

func TestUnits(t *testing.T) {
	truth := true
	tests := []struct {
		name     string
		rec      func(r *models.ProcedureRecord)
		codes    []string
		expected map[string]int
		capped   []string
	}{
		{"single lobe biopsy has no entry", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.TransbronchialBiopsy = &models.SampledProcedure{Performed: true, Locations: []string{"RUL"}}
		}, []string{CodeTransbronchialBiopsy}, map[string]int{}, nil},
		{"three biopsied lobes", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.TransbronchialBiopsy = &models.SampledProcedure{Performed: true, Locations: []string{"RUL", "RML", "LLL"}}
		}, []string{CodeTransbronchialBiopsy, CodeTBBxAdditionalLobe}, map[string]int{CodeTBBxAdditionalLobe: 2}, nil},
		{"two lobes named in one location value", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.TransbronchialBiopsy = &models.SampledProcedure{Performed: true, Locations: []string{"RUL and LLL"}}
		}, []string{CodeTransbronchialBiopsy, CodeTBBxAdditionalLobe}, map[string]int{CodeTBBxAdditionalLobe: 1}, nil},
		{"elastography capped by knowledge base", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.LinearEBUS = &models.LinearEBUS{Performed: true, ElastographyUsed: true}
			r.GranularData.EBUSStations = []models.EBUSStation{
				{Station: "4R", Elastography: true}, {Station: "4L", Elastography: true},
				{Station: "7", ElastographyPattern: "blue"}, {Station: "11R", Elastography: true},
			}
		}, []string{CodeElastography, CodeElastographyAdditional}, map[string]int{CodeElastographyAdditional: 2}, []string{CodeElastographyAdditional}},
		{"five valve lobes capped", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.BLVR = &models.BLVR{Performed: true, ProcedureType: "placement",
				TargetLobes: []string{"RUL", "RML", "RLL", "LUL", "LLL"}}
		}, []string{CodeValveInsertion, CodeValveInsertionAddLobe}, map[string]int{CodeValveInsertionAddLobe: 3}, []string{CodeValveInsertionAddLobe}},
		{"valve removal lobes", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.BLVR = &models.BLVR{Performed: true, ProcedureType: "removal"}
			r.GranularData.ValveRemovals = []models.ValveRemoval{{Lobe: "RUL"}, {Lobe: "RLL"}, {Lobe: "LLL"}}
		}, []string{CodeValveRemoval, CodeValveRemovalAddLobe}, map[string]int{CodeValveRemovalAddLobe: 2}, nil},
		{"additional bronchi", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.AirwayStent = &models.AirwayStent{Performed: true, Action: "placed", AdditionalBronchi: 2}
		}, []string{CodeBronchialStent, CodeStentAdditionalBronchi}, map[string]int{CodeStentAdditionalBronchi: 2}, nil},
		{"peripheral tbna lobes", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.PeripheralTBNA = &models.SampledProcedure{Performed: true, Locations: []string{"RUL", "LUL"}}
		}, []string{CodeTBNA, CodeTBNAAdditionalLobe}, map[string]int{CodeTBNAAdditionalLobe: 1}, nil},
		{"sedation periods", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.ModerateSedation = &models.Sedation{Performed: true, DurationMinutes: 300, ProvidedByOperator: &truth}
		}, []string{CodeSedationInitial, CodeSedationAdditional}, map[string]int{CodeSedationAdditional: 8}, []string{CodeSedationAdditional}},
		{"codes not in the final set are ignored", func(r *models.ProcedureRecord) {
			r.ProceduresPerformed.TransbronchialBiopsy = &models.SampledProcedure{Performed: true, Locations: []string{"RUL", "RML", "LLL"}}
		}, []string{CodeTransbronchialBiopsy}, map[string]int{}, nil},
	}

	u := NewUnitCalculator(evidence.NewRegexMatcher(0))
	k := referenceKB(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &models.ProcedureRecord{}
			tt.rec(rec)

			units, warnings := u.Units(rec, tt.codes, k)
			assert.Equal(t, tt.expected, units)
			var capped []string
			for _, w := range warnings {
				assert.Equal(t, models.WarningUnitsCapped, w.Kind)
				capped = append(capped, w.Code)
			}
			assert.Equal(t, tt.capped, capped)
		})
	}
}

func TestUnitsDefaultCap(t *testing.T) {
	k := parseKB(t, `
master_code_index:
  "31647": {kind: cpt, status: active, work_rvu: 4.40}
  "+31651": {kind: cpt, status: active, add_on: true, work_rvu: 1.58}
`)
	rec := &models.ProcedureRecord{}
	rec.ProceduresPerformed.BLVR = &models.BLVR{Performed: true,
		TargetLobes: []string{"right upper lobe", "right middle lobe", "right lower lobe", "left upper lobe", "left lower lobe"}}

	units, warnings := NewUnitCalculator(evidence.NewRegexMatcher(0)).Units(rec, []string{CodeValveInsertion, CodeValveInsertionAddLobe}, k)

	assert.Equal(t, map[string]int{CodeValveInsertionAddLobe: defaultMaxUnits[CodeValveInsertionAddLobe]}, units)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Capped units for 31651: 4 units documented, 3 allowed", warnings[0].String())
}

func TestUnitsMatchAddOnEmission(t *testing.T) {
	rec := &models.ProcedureRecord{}
	rec.ProceduresPerformed.TransbronchialCryobiopsy = &models.SampledProcedure{Performed: true}
	rec.GranularData.CryobiopsySites = []models.CryobiopsySite{{Lobe: "RLL"}, {Lobe: "RLL", Segment: "RB9"}, {Lobe: "LLL"}}

	k := referenceKB(t)
	c := newTestEvaluator().Evaluate(rec, k)
	require.Equal(t, []string{CodeTransbronchialBiopsy, CodeTBBxAdditionalLobe}, c.Codes)

	units, _ := NewUnitCalculator(evidence.NewRegexMatcher(0)).Units(rec, c.Codes, k)
	assert.Equal(t, map[string]int{CodeTBBxAdditionalLobe: 1}, units)
}
