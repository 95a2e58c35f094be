package derivation

import (
	"sort"
	"strings"

	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
)

// tier is the evidence tier a count or classification was derived from. Tiers only change how
// specific the rationale is, never whether a code is emitted.
type tier int

const (
	tierNone tier = iota
	tierGranular
	tierAggregate
	tierEvidence
)

func (t tier) String() string {
	switch t {
	case tierGranular:
		return "per-site detail"
	case tierAggregate:
		return "procedure attributes"
	case tierEvidence:
		return "evidence text"
	}
	return "no detail"
}

// targets is a set of distinct target entities (stations, lobes, bronchi) and the tier they came
// from. count can exceed len(values) when only a number was recorded.
type targets struct {
	values []string
	count  int
	tier   tier
}

func found(values []string, t tier) targets {
	return targets{values: values, count: len(values), tier: t}
}

func (t targets) describe() string {
	if len(t.values) == 0 {
		return ""
	}
	return " (" + strings.Join(t.values, ", ") + ")"
}

func distinct(values []string) []string {
	set := make(map[string]bool)
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func lobesOf(locations []string) []string {
	var lobes []string
	for _, loc := range locations {
		lobes = append(lobes, evidence.Lobes(loc)...)
	}
	return distinct(lobes)
}

func stationsOf(values []string) []string {
	var stations []string
	for _, v := range values {
		if st, _ := evidence.NormalizeStation(v); st != "" {
			stations = append(stations, st)
		}
	}
	return distinct(stations)
}

// ebusStations counts the distinct stations sampled by linear EBUS.
func ebusStations(rec *models.ProcedureRecord, m evidence.Matcher) targets {
	var sampled []string
	for _, s := range rec.GranularData.EBUSStations {
		if s.Sampled || s.Passes > 0 {
			sampled = append(sampled, s.Station)
		}
	}
	if st := stationsOf(sampled); len(st) > 0 {
		return found(st, tierGranular)
	}

	ebus := rec.ProceduresPerformed.LinearEBUS
	if ebus != nil {
		if st := stationsOf(ebus.StationsSampled); len(st) > 0 {
			return found(st, tierAggregate)
		}
		if ebus.NumberOfStations > 0 {
			return targets{count: ebus.NumberOfStations, tier: tierAggregate}
		}
	}
	if st := m.Stations(rec.EvidenceFor("procedures_performed.linear_ebus")); len(st) > 0 {
		return found(st, tierEvidence)
	}
	return targets{}
}

// elastographyTargets counts the distinct stations assessed by elastography.
func elastographyTargets(rec *models.ProcedureRecord, m evidence.Matcher) targets {
	var assessed []string
	for _, s := range rec.GranularData.EBUSStations {
		if s.Elastography || s.ElastographyPattern != "" {
			assessed = append(assessed, s.Station)
		}
	}
	if st := stationsOf(assessed); len(st) > 0 {
		return found(st, tierGranular)
	}

	ebus := rec.ProceduresPerformed.LinearEBUS
	if ebus == nil {
		return targets{}
	}
	if st := stationsOf(ebus.ElastographyStations); len(st) > 0 {
		return found(st, tierAggregate)
	}
	if !ebus.ElastographyUsed {
		return targets{}
	}
	if st := m.Stations(rec.EvidenceFor("procedures_performed.linear_ebus.elastography_stations")); len(st) > 0 {
		return found(st, tierEvidence)
	}
	// Elastography was used on at least one target
	return targets{count: 1, tier: tierAggregate}
}

// biopsyLobes is the union of lobes sampled by transbronchial forceps and cryo biopsy.
func biopsyLobes(rec *models.ProcedureRecord, m evidence.Matcher) targets {
	best := tierNone
	var lobes []string
	merge := func(l []string, t tier) {
		if len(l) == 0 {
			return
		}
		lobes = append(lobes, l...)
		if best == tierNone || t < best {
			best = t
		}
	}

	p := rec.ProceduresPerformed
	if p.TransbronchialBiopsy != nil && p.TransbronchialBiopsy.Performed {
		if l := lobesOf(p.TransbronchialBiopsy.Locations); len(l) > 0 {
			merge(l, tierAggregate)
		} else {
			merge(m.Lobes(rec.EvidenceFor("procedures_performed.transbronchial_biopsy")), tierEvidence)
		}
	}
	if p.TransbronchialCryobiopsy != nil && p.TransbronchialCryobiopsy.Performed {
		var sites []string
		for _, s := range rec.GranularData.CryobiopsySites {
			sites = append(sites, s.Lobe, s.Segment)
		}
		if l := lobesOf(sites); len(l) > 0 {
			merge(l, tierGranular)
		} else if l := lobesOf(p.TransbronchialCryobiopsy.Locations); len(l) > 0 {
			merge(l, tierAggregate)
		} else {
			merge(m.Lobes(rec.EvidenceFor("procedures_performed.transbronchial_cryobiopsy")), tierEvidence)
		}
	}
	return found(distinct(lobes), best)
}

// peripheralTBNALobes counts the lobes sampled by peripheral needle aspiration.
func peripheralTBNALobes(rec *models.ProcedureRecord, m evidence.Matcher) targets {
	tbna := rec.ProceduresPerformed.PeripheralTBNA
	if tbna == nil || !tbna.Performed {
		return targets{}
	}
	if l := lobesOf(tbna.Locations); len(l) > 0 {
		return found(l, tierAggregate)
	}
	if l := m.Lobes(rec.EvidenceFor("procedures_performed.peripheral_tbna")); len(l) > 0 {
		return found(l, tierEvidence)
	}
	return targets{}
}

// valveLobes counts the lobes treated by valve insertion, or by valve removal when removal is set.
func valveLobes(rec *models.ProcedureRecord, m evidence.Matcher, removal bool) targets {
	var sites []string
	if removal {
		for _, v := range rec.GranularData.ValveRemovals {
			sites = append(sites, v.Lobe, v.Segment)
		}
	} else {
		for _, v := range rec.GranularData.ValvePlacements {
			sites = append(sites, v.Lobe, v.Segment)
		}
	}
	if l := lobesOf(sites); len(l) > 0 {
		return found(l, tierGranular)
	}

	if blvr := rec.ProceduresPerformed.BLVR; blvr != nil {
		if l := lobesOf(blvr.TargetLobes); len(l) > 0 {
			return found(l, tierAggregate)
		}
	}
	if l := m.Lobes(rec.EvidenceFor("procedures_performed.blvr")); len(l) > 0 {
		return found(l, tierEvidence)
	}
	return targets{}
}

// thermoplastyLobes counts the lobes treated by bronchial thermoplasty.
func thermoplastyLobes(rec *models.ProcedureRecord, m evidence.Matcher) targets {
	bt := rec.ProceduresPerformed.BronchialThermoplasty
	if bt == nil {
		return targets{}
	}
	if l := lobesOf(bt.LobesTreated); len(l) > 0 {
		return found(l, tierAggregate)
	}
	if l := m.Lobes(rec.EvidenceFor("procedures_performed.bronchial_thermoplasty")); len(l) > 0 {
		return found(l, tierEvidence)
	}
	return targets{}
}

var (
	// majorBronchi are the sites that count toward +31637.
	majorBronchi   = map[string]bool{"RMSB": true, "LMSB": true, "BI": true}
	bronchialSites = map[string]bool{"RMSB": true, "LMSB": true, "BI": true, "RUL": true, "RML": true, "RLL": true, "LUL": true, "LLL": true}
)

// stentSites returns the site tokens of the stented airway.
func stentSites(s *models.AirwayStent) map[string]bool {
	return evidence.SiteTokens(append([]string{s.Location}, s.Locations...)...)
}

// additionalBronchi counts the major bronchi stented beyond the initial bronchus.
func additionalBronchi(rec *models.ProcedureRecord) targets {
	s := rec.ProceduresPerformed.AirwayStent
	if s == nil {
		return targets{}
	}
	if s.AdditionalBronchi > 0 {
		return targets{count: s.AdditionalBronchi, tier: tierAggregate}
	}
	var bronchi []string
	for site := range stentSites(s) {
		if majorBronchi[site] {
			bronchi = append(bronchi, site)
		}
	}
	bronchi = distinct(bronchi)
	if len(bronchi) < 2 {
		return targets{}
	}
	return found(bronchi[1:], tierAggregate)
}

// sedationUnits is the number of additional 15 minute periods after the initial period. The
// initial period covers up to 22 minutes.
func sedationUnits(minutes int) int {
	if minutes < 23 {
		return 0
	}
	return (minutes-23)/15 + 1
}
