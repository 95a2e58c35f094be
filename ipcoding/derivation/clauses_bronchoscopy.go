package derivation

import (
	"fmt"
	"strings"

	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
)

const proceduresPath = "procedures_performed."

func bronchoscopyClauses() []clause {
	return []clause{
		{proceduresPath + "diagnostic_bronchoscopy", diagnosticBronchoscopy},
		{proceduresPath + "bronchial_wash", bronchialWash},
		{proceduresPath + "brushings", brushings},
		{proceduresPath + "bal", bal},
		{proceduresPath + "endobronchial_biopsy", endobronchialBiopsy},
		{proceduresPath + "transbronchial_biopsy", transbronchialBiopsy},
		{proceduresPath + "transbronchial_cryobiopsy", transbronchialCryobiopsy},
		{proceduresPath + "tbna_conventional", conventionalTBNA},
		{proceduresPath + "peripheral_tbna", peripheralTBNA},
		{proceduresPath + "linear_ebus", linearEBUS},
		{proceduresPath + "radial_ebus", radialEBUS},
		{proceduresPath + "navigational_bronchoscopy", navigation},
		{proceduresPath + "fiducial_placement", fiducialPlacement},
		{proceduresPath + "therapeutic_aspiration", therapeuticAspiration},
		{proceduresPath + "foreign_body_removal", foreignBodyRemoval},
		{proceduresPath + "airway_dilation", airwayDilation},
		{proceduresPath + "airway_stent", airwayStent},
		{proceduresPath + "tumor_excision", tumorExcision},
		{proceduresPath + "tumor_destruction", tumorDestruction},
		{proceduresPath + "brachytherapy_catheter", brachytherapyCatheter},
		{proceduresPath + "blvr", blvr},
		{proceduresPath + "balloon_occlusion", balloonOcclusion},
		{proceduresPath + "bronchial_thermoplasty", bronchialThermoplasty},
		{proceduresPath + "whole_lung_lavage", wholeLungLavage},
		{proceduresPath + "bronchoscopy_via_tracheostomy", bronchoscopyViaTracheostomy},
		{proceduresPath + "percutaneous_tracheostomy", percutaneousTracheostomy},
		{proceduresPath + "rigid_bronchoscopy", rigidBronchoscopy},
		{proceduresPath + "moderate_sedation", moderateSedation},
	}
}

func performed(p *models.BasicProcedure) bool {
	return p != nil && p.Performed
}

func sampled(p *models.SampledProcedure) bool {
	return p != nil && p.Performed
}

func diagnosticBronchoscopy(c *clauseContext) {
	if performed(c.rec.ProceduresPerformed.DiagnosticBronchoscopy) {
		c.emit(CodeDiagnosticBronchoscopy, "diagnostic_bronchoscopy", "Diagnostic bronchoscopy")
	}
}

func bronchialWash(c *clauseContext) {
	p := c.rec.ProceduresPerformed.BronchialWash
	if sampled(p) {
		c.emit(CodeDiagnosticBronchoscopy, "bronchial_wash", "Bronchoscopy with cell washing").
			at(evidence.SiteTokens(p.Locations...))
	}
}

func brushings(c *clauseContext) {
	p := c.rec.ProceduresPerformed.Brushings
	if sampled(p) {
		c.emit(CodeBrushing, "brushings", "Bronchoscopy with brushings"+locations(p.Locations)).
			at(evidence.SiteTokens(p.Locations...))
	}
}

func bal(c *clauseContext) {
	p := c.rec.ProceduresPerformed.BAL
	if sampled(p) {
		c.emit(CodeBAL, "bal", "Bronchoscopy with bronchoalveolar lavage"+locations(p.Locations)).
			at(evidence.SiteTokens(p.Locations...))
	}
}

func endobronchialBiopsy(c *clauseContext) {
	p := c.rec.ProceduresPerformed.EndobronchialBiopsy
	if sampled(p) {
		c.emit(CodeEndobronchialBiopsy, "endobronchial_biopsy", "Bronchoscopy with endobronchial biopsy"+locations(p.Locations)).
			at(evidence.SiteTokens(p.Locations...))
	}
}

// transbronchialBiopsy and transbronchialCryobiopsy share one lobe count, so the additional
// lobe add-on is decided the same way by both.
func transbronchialBiopsy(c *clauseContext) {
	if sampled(c.rec.ProceduresPerformed.TransbronchialBiopsy) {
		lungBiopsy(c, "transbronchial_biopsy", "Transbronchial lung biopsy")
	}
}

func transbronchialCryobiopsy(c *clauseContext) {
	if sampled(c.rec.ProceduresPerformed.TransbronchialCryobiopsy) {
		lungBiopsy(c, "transbronchial_cryobiopsy", "Transbronchial lung cryobiopsy")
	}
}

func lungBiopsy(c *clauseContext, ruleID, what string) {
	lobes := biopsyLobes(c.rec, c.matcher)
	if lobes.count == 0 {
		c.missing("lobe not documented, coded as a single lobe")
		c.emit(CodeTransbronchialBiopsy, ruleID, what+", single lobe")
		return
	}
	c.emit(CodeTransbronchialBiopsy, ruleID,
		fmt.Sprintf("%s, %s from %s", what, plural(lobes.count, "lobe"), lobes.tier)+lobes.describe()).
		at(setOf(lobes.values))
	if lobes.count >= 2 {
		c.emit(CodeTBBxAdditionalLobe, ruleID+".additional_lobe",
			fmt.Sprintf("Transbronchial lung biopsy of %s", plural(lobes.count-1, "additional lobe"))+lobes.describe())
	}
}

func conventionalTBNA(c *clauseContext) {
	p := c.rec.ProceduresPerformed.TBNAConventional
	if p == nil || !p.Performed {
		return
	}
	stations := stationsOf(p.StationsSampled)
	rationale := "Conventional transbronchial needle aspiration"
	if len(stations) > 0 {
		rationale += fmt.Sprintf(" of station(s) %s", strings.Join(stations, ", "))
	}
	c.emit(CodeTBNA, "tbna_conventional", rationale).
		at(evidence.SiteTokens(append(stations, p.Locations...)...))
}

func peripheralTBNA(c *clauseContext) {
	if !sampled(c.rec.ProceduresPerformed.PeripheralTBNA) {
		return
	}
	lobes := peripheralTBNALobes(c.rec, c.matcher)
	if lobes.count == 0 {
		c.missing("lobe not documented, coded as a single lobe")
		c.emit(CodeTBNA, "peripheral_tbna", "Peripheral transbronchial needle aspiration, single lobe")
		return
	}
	c.emit(CodeTBNA, "peripheral_tbna",
		fmt.Sprintf("Peripheral transbronchial needle aspiration, %s from %s", plural(lobes.count, "lobe"), lobes.tier)+lobes.describe()).
		at(setOf(lobes.values))
	if lobes.count >= 2 {
		c.emit(CodeTBNAAdditionalLobe, "peripheral_tbna.additional_lobe",
			fmt.Sprintf("Transbronchial needle aspiration of %s", plural(lobes.count-1, "additional lobe"))+lobes.describe())
	}
}

func linearEBUS(c *clauseContext) {
	p := c.rec.ProceduresPerformed.LinearEBUS
	if p == nil || !p.Performed {
		return
	}

	stations := ebusStations(c.rec, c.matcher)
	switch {
	case stations.count >= 3:
		c.emit(CodeEBUSThreePlusStations, "linear_ebus.three_or_more",
			fmt.Sprintf("EBUS-TBNA of %s from %s", plural(stations.count, "station"), stations.tier)+stations.describe()).
			at(setOf(stations.values))
	case stations.count > 0:
		c.emit(CodeEBUSOneToTwoStations, "linear_ebus.one_or_two",
			fmt.Sprintf("EBUS-TBNA of %s from %s", plural(stations.count, "station"), stations.tier)+stations.describe()).
			at(setOf(stations.values))
	default:
		c.missing("sampled stations not documented, coded as one or two stations")
		c.emit(CodeEBUSOneToTwoStations, "linear_ebus.one_or_two", "EBUS-TBNA, station count not documented")
	}

	elasto := elastographyTargets(c.rec, c.matcher)
	if elasto.count == 0 {
		return
	}
	c.emit(CodeElastography, "linear_ebus.elastography",
		fmt.Sprintf("Ultrasound elastography of the first target from %s", elasto.tier))
	if elasto.count >= 2 {
		c.emit(CodeElastographyAdditional, "linear_ebus.elastography_additional",
			fmt.Sprintf("Ultrasound elastography of %s", plural(elasto.count-1, "additional target"))+elasto.describe())
	}
}

func radialEBUS(c *clauseContext) {
	p := c.rec.ProceduresPerformed.RadialEBUS
	if p == nil || !p.Performed {
		return
	}
	rationale := "Radial EBUS for peripheral lesion localization"
	if p.ProbePosition != "" {
		rationale += fmt.Sprintf(" (probe %s)", p.ProbePosition)
	}
	c.emit(CodeRadialEBUS, "radial_ebus", rationale)
}

func navigation(c *clauseContext) {
	p := c.rec.ProceduresPerformed.NavigationalBronchoscopy
	if p == nil || !p.Performed {
		return
	}
	rationale := "Computer-assisted navigational bronchoscopy"
	if p.Platform != "" {
		rationale += " using " + p.Platform
	}
	if navTargets := c.rec.GranularData.NavigationTargets; len(navTargets) > 0 {
		reached := 0
		for _, t := range navTargets {
			if t.Reached || t.ToolInLesion {
				reached++
			}
		}
		rationale += fmt.Sprintf(", %d of %s reached", reached, plural(len(navTargets), "target"))
	}
	c.emit(CodeNavigation, "navigational_bronchoscopy", rationale)
}

func fiducialPlacement(c *clauseContext) {
	p := c.rec.ProceduresPerformed.FiducialPlacement
	if p == nil || !p.Performed {
		return
	}
	rationale := "Bronchoscopic placement of fiducial markers"
	if p.Count > 0 {
		rationale = fmt.Sprintf("Bronchoscopic placement of %s", plural(p.Count, "fiducial marker"))
	}
	c.emit(CodeFiducial, "fiducial_placement", rationale)
}

func therapeuticAspiration(c *clauseContext) {
	p := c.rec.ProceduresPerformed.TherapeuticAspiration
	if p == nil || !p.Performed {
		return
	}
	switch {
	case p.SubsequentEpisode:
		c.emit(CodeAspirationSubsequent, "therapeutic_aspiration.subsequent", "Therapeutic aspiration, subsequent episode")
	case c.matcher.SubsequentDay(c.evidence()):
		c.emit(CodeAspirationSubsequent, "therapeutic_aspiration.subsequent", "Therapeutic aspiration, subsequent episode from evidence text")
	default:
		rationale := "Therapeutic aspiration, initial episode"
		if p.Material != "" {
			rationale += " of " + p.Material
		}
		c.emit(CodeAspirationInitial, "therapeutic_aspiration.initial", rationale)
	}
}

func foreignBodyRemoval(c *clauseContext) {
	p := c.rec.ProceduresPerformed.ForeignBodyRemoval
	if p == nil || !p.Performed {
		return
	}
	rationale := "Bronchoscopic removal of foreign body"
	if p.Object != "" {
		rationale += " (" + p.Object + ")"
	}
	c.emit(CodeForeignBody, "foreign_body_removal", rationale)
}

func airwayDilation(c *clauseContext) {
	p := c.rec.ProceduresPerformed.AirwayDilation
	if p == nil || !p.Performed {
		return
	}
	rationale := "Tracheal/bronchial dilation"
	switch {
	case p.Method != "":
		rationale += " by " + p.Method
	case c.matcher.Has(evidence.CueBalloon, c.evidence()):
		rationale += " by balloon"
	}
	c.emit(CodeDilation, "airway_dilation", rationale+locations(p.Locations)).
		at(evidence.SiteTokens(p.Locations...))
}

func airwayStent(c *clauseContext) {
	p := c.rec.ProceduresPerformed.AirwayStent
	if p == nil || !p.Performed {
		return
	}

	action, source := evidence.StentActionUnknown, tierAggregate
	if p.Action != "" {
		action = c.matcher.StentAction([]string{p.Action})
	}
	if action == evidence.StentActionUnknown {
		action, source = c.matcher.StentAction(c.evidence()), tierEvidence
	}
	sites := stentSites(p)

	switch action {
	case evidence.StentRemoval, evidence.StentRevision:
		c.emit(CodeStentRevision, "airway_stent."+action.String(),
			fmt.Sprintf("Airway stent %s from %s", action, source)+locations(append([]string{p.Location}, p.Locations...))).
			at(sites)
	case evidence.StentPlacement:
		placeStent(c, p, sites, source)
	case evidence.StentAssessment:
		c.suppress("", "stent inspected only, no stent procedure code applies")
	default:
		c.missing("stent action could not be determined")
	}
}

func placeStent(c *clauseContext, p *models.AirwayStent, sites map[string]bool, source tier) {
	device := ""
	if p.DeviceSize != "" {
		device = " (" + p.DeviceSize + ")"
	}
	bronchial := false
	for s := range sites {
		bronchial = bronchial || bronchialSites[s]
	}

	if !sites["TRACHEA"] && !bronchial {
		c.missing("stent location not documented, tracheal and bronchial stent codes cannot be distinguished")
		return
	}
	if sites["TRACHEA"] {
		c.emit(CodeTrachealStent, "airway_stent.tracheal", fmt.Sprintf("Tracheal stent placement%s from %s", device, source)).
			at(sites)
	}
	if !bronchial {
		return
	}
	c.emit(CodeBronchialStent, "airway_stent.bronchial", fmt.Sprintf("Bronchial stent placement%s from %s", device, source)).
		at(sites)
	if extra := additionalBronchi(c.rec); extra.count > 0 {
		c.emit(CodeStentAdditionalBronchi, "airway_stent.additional_bronchus",
			fmt.Sprintf("Stent placement in %s", plural(extra.count, "additional major bronchus")))
	}
}

func lesionSites(p *models.LesionProcedure) map[string]bool {
	if ids := distinct(p.LesionIDs); len(ids) > 0 {
		return setOf(ids)
	}
	return evidence.SiteTokens(p.Locations...)
}

func tumorExcision(c *clauseContext) {
	p := c.rec.ProceduresPerformed.TumorExcision
	if p == nil || !p.Performed {
		return
	}
	c.emit(CodeTumorExcision, "tumor_excision", "Bronchoscopic excision of tumor"+method(p.Method)+locations(p.Locations)).
		at(lesionSites(p))
}

func tumorDestruction(c *clauseContext) {
	p := c.rec.ProceduresPerformed.TumorDestruction
	if p == nil || !p.Performed {
		return
	}
	em := c.emit(CodeTumorDestruction, "tumor_destruction",
		"Bronchoscopic destruction of tumor or relief of stenosis"+method(p.Method)+locations(p.Locations)).
		at(lesionSites(p))
	if c.matcher.Has(evidence.CueDistinctLesion, c.evidence()) {
		em.separate()
	}
}

func brachytherapyCatheter(c *clauseContext) {
	if performed(c.rec.ProceduresPerformed.BrachytherapyCatheter) {
		c.emit(CodeBrachytherapy, "brachytherapy_catheter", "Placement of catheter for intracavitary radioelement application")
	}
}

func blvr(c *clauseContext) {
	p := c.rec.ProceduresPerformed.BLVR
	if p == nil || !p.Performed {
		return
	}

	kind := strings.ToLower(p.ProcedureType)
	var removal bool
	switch {
	case strings.Contains(kind, "remov"):
		removal = true
	case strings.Contains(kind, "plac"), strings.Contains(kind, "insert"):
		removal = false
	case len(c.rec.GranularData.ValvePlacements) > 0:
		removal = false
	case len(c.rec.GranularData.ValveRemovals) > 0:
		removal = true
	case c.matcher.Has(evidence.CueRemoval, c.evidence()):
		removal = true
	case p.NumberOfValves > 0:
		removal = false
	default:
		c.missing("valve procedure type not documented")
		return
	}

	lobes := valveLobes(c.rec, c.matcher, removal)
	base, addOn, what := CodeValveInsertion, CodeValveInsertionAddLobe, "insertion"
	if removal {
		base, addOn, what = CodeValveRemoval, CodeValveRemovalAddLobe, "removal"
	}
	if lobes.count == 0 {
		c.missing("treated lobe not documented, coded as a single lobe")
		c.emit(base, "blvr."+what, fmt.Sprintf("Bronchial valve %s, initial lobe", what))
		return
	}

	rationale := fmt.Sprintf("Bronchial valve %s in %s from %s", what, plural(lobes.count, "lobe"), lobes.tier) + lobes.describe()
	if !removal && p.NumberOfValves > 0 {
		rationale += fmt.Sprintf(", %s", plural(p.NumberOfValves, "valve"))
	}
	c.emit(base, "blvr."+what, rationale).at(setOf(lobes.values))
	if lobes.count >= 2 {
		c.emit(addOn, "blvr."+what+".additional_lobe",
			fmt.Sprintf("Bronchial valve %s in %s", what, plural(lobes.count-1, "additional lobe"))+lobes.describe())
	}
}

func balloonOcclusion(c *clauseContext) {
	p := c.rec.ProceduresPerformed.BalloonOcclusion
	if p == nil || !p.Performed {
		return
	}
	var sites []string
	for _, m := range c.rec.GranularData.ChartisMeasurements {
		sites = append(sites, m.Lobe)
	}
	lobes := lobesOf(append(sites, p.Lobes...))
	rationale := "Bronchoscopic balloon occlusion"
	if p.Purpose != "" {
		rationale += " for " + p.Purpose
	}
	c.emit(CodeBalloonOcclusion, "balloon_occlusion", rationale+locations(lobes)).at(setOf(lobes))
}

func bronchialThermoplasty(c *clauseContext) {
	p := c.rec.ProceduresPerformed.BronchialThermoplasty
	if p == nil || !p.Performed {
		return
	}
	lobes := thermoplastyLobes(c.rec, c.matcher)
	switch {
	case lobes.count >= 2:
		c.emit(CodeThermoplastyMultiLobe, "bronchial_thermoplasty.multi_lobe",
			fmt.Sprintf("Bronchial thermoplasty of %s from %s", plural(lobes.count, "lobe"), lobes.tier)+lobes.describe())
	case lobes.count == 1:
		c.emit(CodeThermoplastyOneLobe, "bronchial_thermoplasty.one_lobe",
			fmt.Sprintf("Bronchial thermoplasty of 1 lobe from %s", lobes.tier)+lobes.describe())
	default:
		c.missing("treated lobes not documented, coded as one lobe")
		c.emit(CodeThermoplastyOneLobe, "bronchial_thermoplasty.one_lobe", "Bronchial thermoplasty, lobe count not documented")
	}
}

func wholeLungLavage(c *clauseContext) {
	if performed(c.rec.ProceduresPerformed.WholeLungLavage) {
		c.emit(CodeWholeLungLavage, "whole_lung_lavage", "Whole lung lavage")
	}
}

func bronchoscopyViaTracheostomy(c *clauseContext) {
	if performed(c.rec.ProceduresPerformed.BronchoscopyViaTracheostomy) {
		c.emit(CodeBronchoscopyViaTrach, "bronchoscopy_via_tracheostomy", "Tracheobronchoscopy through established tracheostomy")
	}
}

func percutaneousTracheostomy(c *clauseContext) {
	if performed(c.rec.ProceduresPerformed.PercutaneousTracheostomy) {
		c.emit(CodeTracheostomy, "percutaneous_tracheostomy", "Percutaneous tracheostomy")
	}
}

func rigidBronchoscopy(c *clauseContext) {
	if performed(c.rec.ProceduresPerformed.RigidBronchoscopy) {
		c.emit(CodeDiagnosticBronchoscopy, "rigid_bronchoscopy", "Rigid bronchoscopy")
	}
}

func moderateSedation(c *clauseContext) {
	p := c.rec.ProceduresPerformed.ModerateSedation
	if p == nil || !p.Performed {
		return
	}
	if p.ProvidedByOperator != nil && !*p.ProvidedByOperator {
		c.suppress(CodeSedationInitial, "sedation was not provided by the performing physician")
		return
	}
	if p.ProvidedByOperator == nil && c.matcher.Has(evidence.CueAnesthesia, c.evidence()) {
		c.suppress(CodeSedationInitial, "evidence indicates sedation by an anesthesia professional")
		return
	}
	switch {
	case p.DurationMinutes == 0:
		c.missing("sedation time not documented")
		return
	case p.DurationMinutes < 10:
		c.suppress(CodeSedationInitial, fmt.Sprintf("intraservice time of %d minutes is under 10 minutes", p.DurationMinutes))
		return
	}
	c.emit(CodeSedationInitial, "moderate_sedation.initial",
		fmt.Sprintf("Moderate sedation by the performing physician, %d minutes", p.DurationMinutes))
	if units := sedationUnits(p.DurationMinutes); units > 0 {
		c.emit(CodeSedationAdditional, "moderate_sedation.additional",
			fmt.Sprintf("Moderate sedation, %s", plural(units, "additional 15 minute period")))
	}
}

func setOf(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "us") {
		return fmt.Sprintf("%d %s", n, strings.TrimSuffix(noun, "us")+"i")
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func locations(locs []string) string {
	var parts []string
	for _, l := range locs {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " at " + strings.Join(parts, ", ")
}

func method(m string) string {
	if m == "" {
		return ""
	}
	return " by " + m
}
