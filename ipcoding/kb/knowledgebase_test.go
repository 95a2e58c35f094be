package kb

import (
	"testing"

	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/CMSgov/ipcoding-app/ipcoding/testUtils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
		errMsg   string
	}{
		{"kb.json", JSON, ""},
		{"/etc/ipcoding/kb.YAML", YAML, ""},
		{"kb.yml", YAML, ""},
		{"kb.toml", TOML, ""},
		{"kb.xml", "", `unsupported knowledge base extension ".xml"`},
		{"kb", "", `unsupported knowledge base extension ""`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := FormatFor(tt.path)
			if tt.errMsg != "" {
				assert.EqualError(t, err, tt.errMsg)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestLoadReferenceKB(t *testing.T) {
	kb, err := LoadFile(testUtils.ReferenceKB)
	require.NoError(t, err)

	assert.Equal(t, "2025.1", kb.Version())
	assert.Equal(t, testUtils.ReferenceKB, kb.Source())
	assert.Contains(t, kb.Codes(), "31627")
	assert.NotContains(t, kb.Codes(), "+31627")

	entry, ok := kb.Entry("+31632")
	require.True(t, ok)
	assert.True(t, entry.AddOn)
	assert.True(t, entry.Billable())

	rvu, ok := kb.TotalRVU("31627")
	assert.True(t, ok)
	assert.Equal(t, 2.00, rvu)

	units, ok := kb.MaxUnits("31651")
	assert.True(t, ok)
	assert.Equal(t, 3, units)
	_, ok = kb.MaxUnits("31652")
	assert.False(t, ok)

	status, ok := kb.CodeStatus("31620")
	assert.True(t, ok)
	assert.Equal(t, StatusDeleted, status)
	_, ok = kb.CodeStatus("00000")
	assert.False(t, ok)

	pairs := kb.NCCIPairs()
	require.Len(t, pairs, 4)
	assert.Equal(t, NCCIPair{Primary: "31625", Secondary: "31623", ModifierAllowed: false,
		Reason: "Brushing of the biopsied site is included in endobronchial biopsy"}, pairs[0])
	assert.True(t, pairs[3].ModifierAllowed)

	require.Len(t, kb.Rules(), 6)
	assert.Equal(t, DropSet, kb.Rules()[0].Header().Type)
	assert.Equal(t, "EBUS-INCLUDES-TBNA", kb.Rules()[0].Header().ID)
}

func TestLoadJSON(t *testing.T) {
	kb, err := LoadFile("testdata/small.json")
	require.NoError(t, err)

	assert.Equal(t, "json-1", kb.Version())
	assert.Equal(t, []string{"31629", "31652", "31653", "31654"}, kb.Codes())

	rvu, ok := kb.TotalRVU("31653")
	assert.True(t, ok)
	assert.Equal(t, 4.96, rvu, "latest year wins")

	// A quoted RVU is not a number
	_, ok = kb.TotalRVU("31654")
	assert.False(t, ok)

	units, ok := kb.MaxUnits("+31654")
	assert.True(t, ok)
	assert.Equal(t, 1, units)

	entry, _ := kb.Entry("31629")
	assert.False(t, entry.Active())

	assert.Equal(t, []Edge{
		{Keep: "31653", Drop: "31629", Source: "R1"},
		{Keep: "31653", Drop: "31652", Source: "R1"},
	}, kb.BundlingEdges())
	assert.Equal(t, "31654", kb.NCCIPairs()[0].Secondary)
}

func TestLoadTOMLWithBOM(t *testing.T) {
	kb, err := LoadFile("testdata/small.toml")
	require.NoError(t, err)

	assert.Equal(t, "toml-1", kb.Version())
	assert.Equal(t, []string{"31652", "31653"}, kb.Codes())
	rvu, ok := kb.TotalRVU("31652")
	assert.True(t, ok)
	assert.Equal(t, 4.46, rvu)
	require.Len(t, kb.Rules(), 2)
	assert.Equal(t, PreferenceOrder, kb.Rules()[0].Header().Type)
	assert.Equal(t, ColumnPair, kb.Rules()[1].Header().Type)
	assert.Len(t, kb.NCCIPairs(), 1)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		errMsg string
	}{
		{"unsupported", "testdata/rvu_table.tsv", "unsupported knowledge base extension"},
		{"missing", "testdata/does_not_exist.yaml", "failed to read file"},
		{"no master index", "testdata/no_master.yaml", "master_code_index must be an object"},
		{"not an object", "testdata/not_an_object.yaml", "document root must be an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb, err := LoadFile(tt.path)
			assert.Nil(t, kb)
			var kbErr *ipcerrors.KnowledgeBaseError
			require.True(t, errors.As(err, &kbErr))
			assert.Equal(t, tt.path, kbErr.Path)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseRejectsBadPairs(t *testing.T) {
	_, err := Parse([]byte(`
master_code_index: {"31652": {kind: cpt}}
ncci_pairs:
  - primary: "31652"
`), YAML)
	assert.EqualError(t, err, "ncci_pairs[0] needs both primary and secondary")

	_, err = Parse([]byte(`
master_code_index:
  "31652": {kind: cpt, max_units: lots}
`), YAML)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "master_code_index.31652")
}

func TestParseUnquotedYAMLCodes(t *testing.T) {
	kb, err := Parse([]byte(`
master_code_index:
  31652:
    kind: cpt
    rvu_by_year:
      2023: 4.2
      2024: 4.46
bundling_rules:
  - {type: dominant, dominant: 31653, subordinates: [31652]}
`), YAML)
	require.NoError(t, err)
	assert.Equal(t, []string{"31652"}, kb.Codes())
	rvu, ok := kb.TotalRVU("31652")
	assert.True(t, ok)
	assert.Equal(t, 4.46, rvu)
	assert.Equal(t, []Edge{{Keep: "31653", Drop: "31652", Source: "bundling_rules[0]"}}, kb.BundlingEdges())
}
