package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStation(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		ok       bool
	}{
		{"4R", "4R", true},
		{"station 4r", "4R", true},
		{"Stn #7", "7", true},
		{"11Rs", "11RS", true},
		{"subcarinal", "7", true},
		{"10 L", "10L", true},
		{"2", "2", false},
		{"node", "NODE", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			st, ok := NormalizeStation(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, st)
		})
	}
}

func TestLobes(t *testing.T) {
	tests := []struct {
		in       string
		expected []string
	}{
		{"RUL", []string{"RUL"}},
		{"Right upper lobe, apical segment", []string{"RUL"}},
		{"middle lobe", []string{"RML"}},
		{"lingula", []string{"LUL"}},
		{"LB9", []string{"LLL"}},
		{"RB2", []string{"RUL"}},
		{"RUL and LLL", []string{"RUL", "LLL"}},
		{"left lower lobe, RB6", []string{"LLL", "RLL"}},
		{"trachea", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Lobes(tt.in))
		})
	}
}

func TestSiteTokensAndDisjoint(t *testing.T) {
	trachea := SiteTokens("distal trachea")
	assert.Equal(t, map[string]bool{"TRACHEA": true}, trachea)

	rmsb := SiteTokens("Right mainstem bronchus")
	assert.Equal(t, map[string]bool{"RMSB": true}, rmsb)

	assert.Equal(t, map[string]bool{"POSTERIOR": true, "WALL": true}, SiteTokens("posterior wall"))
	assert.Empty(t, SiteTokens("", "  "))

	assert.True(t, Disjoint(trachea, rmsb))
	assert.False(t, Disjoint(trachea, SiteTokens("mid trachea", "RMSB")))
	assert.False(t, Disjoint(trachea, map[string]bool{}), "unknown sites never prove distinctness")
	assert.False(t, Disjoint(nil, rmsb))
}
