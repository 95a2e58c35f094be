package models

import (
	"os"
	"testing"

	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecordLooselyTyped(t *testing.T) {
	data, err := os.ReadFile("testdata/loose_record.json")
	require.NoError(t, err)

	rec, err := DecodeRecord(data)
	require.NoError(t, err)

	assert.Equal(t, "ENC-1001", rec.EncounterID)

	ebus := rec.ProceduresPerformed.LinearEBUS
	require.NotNil(t, ebus)
	assert.True(t, ebus.Performed)
	assert.Equal(t, []string{"4R", "7", "11"}, ebus.StationsSampled)
	assert.Equal(t, 3, ebus.NumberOfStations)
	assert.True(t, ebus.ElastographyUsed)

	tblb := rec.ProceduresPerformed.TransbronchialBiopsy
	require.NotNil(t, tblb)
	assert.True(t, tblb.Performed, "sibling fields survive a malformed field")
	assert.Equal(t, []string{"right upper lobe"}, tblb.Locations)
	assert.Zero(t, tblb.NumberOfSamples)

	require.NotNil(t, rec.ProceduresPerformed.RadialEBUS)
	assert.True(t, rec.ProceduresPerformed.RadialEBUS.Performed)

	require.NotNil(t, rec.PleuralProcedures.Thoracentesis)
	assert.True(t, rec.PleuralProcedures.Thoracentesis.Performed)
	assert.False(t, rec.PleuralProcedures.Thoracentesis.ImagingGuidance)

	assert.Equal(t, []string{"stent removed with forceps"}, rec.Evidence["procedures_performed.airway_stent.action"])

	require.Len(t, rec.GranularData.ValvePlacements, 2)
	assert.Equal(t, "LUL", rec.GranularData.ValvePlacements[0].Lobe)
	assert.Equal(t, "5.5", rec.GranularData.ValvePlacements[0].ValveSize)

	fields := make([]string, 0, len(rec.DecodeWarnings))
	for _, w := range rec.DecodeWarnings {
		assert.Equal(t, WarningMalformedField, w.Kind)
		fields = append(fields, w.Field)
	}
	assert.Contains(t, fields, "procedures_performed.transbronchial_biopsy.number_of_samples")
	assert.Contains(t, fields, "procedures_performed.airway_stent")
	assert.Contains(t, fields, "granular_data.valve_placements[1].lobe")
}

func TestDecodeRecordRejectsNonObjects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"array", `[{"procedures_performed": {}}]`},
		{"truncated", `{"procedures_performed": {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeRecord([]byte(tt.data))
			assert.Nil(t, rec)
			var decodeErr *ipcerrors.RecordDecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestRecordFromMapSectionNotAnObject(t *testing.T) {
	rec := RecordFromMap(map[string]interface{}{
		"procedures_performed": []interface{}{"linear_ebus"},
	})
	require.Len(t, rec.DecodeWarnings, 1)
	assert.Equal(t, "procedures_performed", rec.DecodeWarnings[0].Field)
	assert.Nil(t, rec.ProceduresPerformed.LinearEBUS)
}

func TestEvidenceFor(t *testing.T) {
	rec := &ProcedureRecord{Evidence: map[string][]string{
		"procedures_performed.airway_stent":          {"stent in trachea"},
		"procedures_performed.airway_stent.action":   {"stent exchanged"},
		"procedures_performed.airway_stent.location": {"distal trachea"},
		"procedures_performed.airway_stenting":       {"unrelated"},
	}}

	assert.Equal(t, []string{"stent in trachea", "stent exchanged", "distal trachea"},
		rec.EvidenceFor("procedures_performed.airway_stent"))
	assert.Equal(t, []string{"stent exchanged"}, rec.EvidenceFor("procedures_performed.airway_stent.action"))
	assert.Nil(t, (*ProcedureRecord)(nil).EvidenceFor("anything"))
}

func TestWarningString(t *testing.T) {
	tests := []struct {
		warning  Warning
		expected string
	}{
		{Warning{Kind: WarningConflictRemoved, Code: "31652", Other: "31653", Detail: "station count tiers"},
			"Dropped 31652 in favor of 31653: station count tiers"},
		{Warning{Kind: WarningConflictRemoved, Code: "31622", Other: "31628"}, "Dropped 31622 in favor of 31628"},
		{Warning{Kind: WarningSuppressed, Code: "31636", Detail: "stent removal documented"}, "Suppressed 31636: stent removal documented"},
		{Warning{Kind: WarningSuppressed, Field: "airway_stent", Detail: "assessment only"}, "airway_stent: assessment only"},
		{Warning{Kind: WarningMalformedField, Field: "a.b", Detail: "bad"}, "Ignored malformed field a.b: bad"},
		{Warning{Kind: WarningAddonWithoutPrimary, Code: "31654", Detail: "no primary"}, "Removed add-on 31654: no primary"},
		{Warning{Kind: WarningClauseFailed, Field: "blvr", Detail: "boom"}, "Rule clause blvr failed and contributed no codes: boom"},
	}
	for _, tt := range tests {
		t.Run(string(tt.warning.Kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.warning.String())
		})
	}
}

func TestDerivationHelpers(t *testing.T) {
	d := &Derivation{
		Codes:    []DerivedCode{{Code: "31628"}, {Code: "31632"}},
		Warnings: []Warning{{Kind: WarningMissingDetail, Field: "bal", Detail: "no locations"}},
	}
	assert.Equal(t, []string{"31628", "31632"}, d.CodeValues())
	assert.Equal(t, []string{"bal marked performed without supporting detail: no locations"}, d.WarningText())
	assert.True(t, d.Has("31632"))
	assert.False(t, d.Has("31622"))
}
