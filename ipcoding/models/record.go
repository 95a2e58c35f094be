package models

// ProcedureRecord is the structured output of the upstream extraction pipeline for a single
// encounter. It is owned by the caller and is never mutated by the derivation engine.
type ProcedureRecord struct {
	EncounterID         string              `json:"encounter_id,omitempty"`
	ProceduresPerformed Procedures          `json:"procedures_performed"`
	PleuralProcedures   PleuralProcedures   `json:"pleural_procedures"`
	Evidence            map[string][]string `json:"evidence,omitempty"`
	GranularData        GranularData        `json:"granular_data"`

	// DecodeWarnings are produced at the deserialization boundary for fields that could not
	// be interpreted. They are carried into the derivation output.
	DecodeWarnings []Warning `json:"-"`
}

// EvidenceFor returns the snippets attached to the given field path. A path also matches
// snippets attached to any of its children, so "procedures_performed.airway_stent" returns
// the snippets for "procedures_performed.airway_stent.action".
func (r *ProcedureRecord) EvidenceFor(path string) []string {
	if r == nil || len(r.Evidence) == 0 {
		return nil
	}
	var snippets []string
	snippets = append(snippets, r.Evidence[path]...)
	prefix := path + "."
	for _, key := range sortedKeys(r.Evidence) {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			snippets = append(snippets, r.Evidence[key]...)
		}
	}
	return snippets
}

type Procedures struct {
	DiagnosticBronchoscopy      *BasicProcedure        `json:"diagnostic_bronchoscopy,omitempty"`
	BronchialWash               *SampledProcedure      `json:"bronchial_wash,omitempty"`
	Brushings                   *SampledProcedure      `json:"brushings,omitempty"`
	BAL                         *SampledProcedure      `json:"bal,omitempty"`
	EndobronchialBiopsy         *SampledProcedure      `json:"endobronchial_biopsy,omitempty"`
	TransbronchialBiopsy        *SampledProcedure      `json:"transbronchial_biopsy,omitempty"`
	TransbronchialCryobiopsy    *SampledProcedure      `json:"transbronchial_cryobiopsy,omitempty"`
	TBNAConventional            *TBNA                  `json:"tbna_conventional,omitempty"`
	PeripheralTBNA              *SampledProcedure      `json:"peripheral_tbna,omitempty"`
	LinearEBUS                  *LinearEBUS            `json:"linear_ebus,omitempty"`
	RadialEBUS                  *RadialEBUS            `json:"radial_ebus,omitempty"`
	NavigationalBronchoscopy    *Navigation            `json:"navigational_bronchoscopy,omitempty"`
	FiducialPlacement           *FiducialPlacement     `json:"fiducial_placement,omitempty"`
	TherapeuticAspiration       *TherapeuticAspiration `json:"therapeutic_aspiration,omitempty"`
	ForeignBodyRemoval          *ForeignBodyRemoval    `json:"foreign_body_removal,omitempty"`
	AirwayDilation              *AirwayDilation        `json:"airway_dilation,omitempty"`
	AirwayStent                 *AirwayStent           `json:"airway_stent,omitempty"`
	TumorExcision               *LesionProcedure       `json:"tumor_excision,omitempty"`
	TumorDestruction            *LesionProcedure       `json:"tumor_destruction,omitempty"`
	BrachytherapyCatheter       *BasicProcedure        `json:"brachytherapy_catheter,omitempty"`
	BLVR                        *BLVR                  `json:"blvr,omitempty"`
	BalloonOcclusion            *BalloonOcclusion      `json:"balloon_occlusion,omitempty"`
	BronchialThermoplasty       *Thermoplasty          `json:"bronchial_thermoplasty,omitempty"`
	WholeLungLavage             *BasicProcedure        `json:"whole_lung_lavage,omitempty"`
	BronchoscopyViaTracheostomy *BasicProcedure        `json:"bronchoscopy_via_tracheostomy,omitempty"`
	PercutaneousTracheostomy    *BasicProcedure        `json:"percutaneous_tracheostomy,omitempty"`
	RigidBronchoscopy           *BasicProcedure        `json:"rigid_bronchoscopy,omitempty"`
	ModerateSedation            *Sedation              `json:"moderate_sedation,omitempty"`
}

type PleuralProcedures struct {
	Thoracentesis           *ImageGuidedProcedure `json:"thoracentesis,omitempty"`
	ChestTube               *ImageGuidedProcedure `json:"chest_tube,omitempty"`
	TunneledPleuralCatheter *PleuralCatheter      `json:"tunneled_pleural_catheter,omitempty"`
	Pleurodesis             *Pleurodesis          `json:"pleurodesis,omitempty"`
	FibrinolyticTherapy     *Fibrinolysis         `json:"fibrinolytic_therapy,omitempty"`
	MedicalThoracoscopy     *Thoracoscopy         `json:"medical_thoracoscopy,omitempty"`
	PleuralBiopsy           *ImageGuidedProcedure `json:"pleural_biopsy,omitempty"`
	ChestUltrasound         *BasicProcedure       `json:"chest_ultrasound,omitempty"`
}

type BasicProcedure struct {
	Performed bool `json:"performed"`
}

type SampledProcedure struct {
	Performed       bool     `json:"performed"`
	Locations       []string `json:"locations,omitempty"`
	NumberOfSamples int      `json:"number_of_samples,omitempty"`
}

type TBNA struct {
	Performed       bool     `json:"performed"`
	StationsSampled []string `json:"stations_sampled,omitempty"`
	Locations       []string `json:"locations,omitempty"`
}

type LinearEBUS struct {
	Performed            bool     `json:"performed"`
	StationsSampled      []string `json:"stations_sampled,omitempty"`
	NumberOfStations     int      `json:"number_of_stations,omitempty"`
	ElastographyUsed     bool     `json:"elastography_used,omitempty"`
	ElastographyStations []string `json:"elastography_stations,omitempty"`
}

type RadialEBUS struct {
	Performed     bool   `json:"performed"`
	ProbePosition string `json:"probe_position,omitempty"`
}

type Navigation struct {
	Performed bool   `json:"performed"`
	Platform  string `json:"platform,omitempty"`
}

type FiducialPlacement struct {
	Performed bool `json:"performed"`
	Count     int  `json:"count,omitempty"`
}

type TherapeuticAspiration struct {
	Performed         bool   `json:"performed"`
	SubsequentEpisode bool   `json:"subsequent_episode,omitempty"`
	Material          string `json:"material,omitempty"`
}

type ForeignBodyRemoval struct {
	Performed bool   `json:"performed"`
	Object    string `json:"object,omitempty"`
}

type AirwayDilation struct {
	Performed bool     `json:"performed"`
	Method    string   `json:"method,omitempty"`
	Locations []string `json:"locations,omitempty"`
}

type AirwayStent struct {
	Performed bool     `json:"performed"`
	Action    string   `json:"action,omitempty"`
	Location  string   `json:"location,omitempty"`
	Locations []string `json:"locations,omitempty"`
	StentType string   `json:"stent_type,omitempty"`
	// DeviceSize is recorded free text ("14 x 40 mm") and only used for rationale text.
	DeviceSize string `json:"device_size,omitempty"`
	// AdditionalBronchi counts major bronchi stented beyond the initial bronchus.
	AdditionalBronchi int `json:"additional_bronchi,omitempty"`
}

type LesionProcedure struct {
	Performed bool     `json:"performed"`
	Method    string   `json:"method,omitempty"`
	Locations []string `json:"locations,omitempty"`
	LesionIDs []string `json:"lesion_ids,omitempty"`
}

type BLVR struct {
	Performed      bool     `json:"performed"`
	ProcedureType  string   `json:"procedure_type,omitempty"`
	TargetLobes    []string `json:"target_lobes,omitempty"`
	NumberOfValves int      `json:"number_of_valves,omitempty"`
}

type BalloonOcclusion struct {
	Performed bool     `json:"performed"`
	Purpose   string   `json:"purpose,omitempty"`
	Lobes     []string `json:"lobes,omitempty"`
}

type Thermoplasty struct {
	Performed    bool     `json:"performed"`
	LobesTreated []string `json:"lobes_treated,omitempty"`
}

type Sedation struct {
	Performed       bool `json:"performed"`
	DurationMinutes int  `json:"duration_minutes,omitempty"`
	// ProvidedByOperator is false when an anesthesia professional administered sedation,
	// in which case the bronchoscopist does not bill it. Nil means not recorded.
	ProvidedByOperator *bool `json:"provided_by_operator,omitempty"`
}

type ImageGuidedProcedure struct {
	Performed       bool   `json:"performed"`
	ImagingGuidance bool   `json:"imaging_guidance,omitempty"`
	Modality        string `json:"modality,omitempty"`
	Side            string `json:"side,omitempty"`
}

type PleuralCatheter struct {
	Performed bool   `json:"performed"`
	Action    string `json:"action,omitempty"`
	Side      string `json:"side,omitempty"`
}

type Pleurodesis struct {
	Performed bool   `json:"performed"`
	Method    string `json:"method,omitempty"`
	Agent     string `json:"agent,omitempty"`
}

type Fibrinolysis struct {
	Performed     bool   `json:"performed"`
	Agent         string `json:"agent,omitempty"`
	SubsequentDay bool   `json:"subsequent_day,omitempty"`
	DoseNumber    int    `json:"dose_number,omitempty"`
}

type Thoracoscopy struct {
	Performed    bool `json:"performed"`
	BiopsyTaken  bool `json:"biopsy_taken,omitempty"`
	Pleurodesis  bool `json:"pleurodesis,omitempty"`
	Adhesiolysis bool `json:"adhesiolysis,omitempty"`
}

// GranularData holds fine grained per-site sub-records. When present they are the most
// specific tier available to a rule clause.
type GranularData struct {
	ValvePlacements     []ValvePlacement     `json:"valve_placements,omitempty"`
	ValveRemovals       []ValveRemoval       `json:"valve_removals,omitempty"`
	ChartisMeasurements []ChartisMeasurement `json:"chartis_measurements,omitempty"`
	NavigationTargets   []NavigationTarget   `json:"navigation_targets,omitempty"`
	CryobiopsySites     []CryobiopsySite     `json:"cryobiopsy_sites,omitempty"`
	EBUSStations        []EBUSStation        `json:"ebus_stations,omitempty"`
}

type ValvePlacement struct {
	Lobe      string `json:"lobe"`
	Segment   string `json:"segment,omitempty"`
	ValveType string `json:"valve_type,omitempty"`
	ValveSize string `json:"valve_size,omitempty"`
}

type ValveRemoval struct {
	Lobe    string `json:"lobe"`
	Segment string `json:"segment,omitempty"`
}

type ChartisMeasurement struct {
	Lobe                  string `json:"lobe"`
	CollateralVentilation string `json:"collateral_ventilation,omitempty"`
}

type NavigationTarget struct {
	TargetID     string `json:"target_id,omitempty"`
	Lobe         string `json:"lobe,omitempty"`
	Reached      bool   `json:"reached,omitempty"`
	ToolInLesion bool   `json:"tool_in_lesion,omitempty"`
}

type CryobiopsySite struct {
	Lobe      string `json:"lobe"`
	Segment   string `json:"segment,omitempty"`
	Specimens int    `json:"specimens,omitempty"`
}

type EBUSStation struct {
	Station             string `json:"station"`
	Sampled             bool   `json:"sampled,omitempty"`
	Passes              int    `json:"passes,omitempty"`
	Elastography        bool   `json:"elastography,omitempty"`
	ElastographyPattern string `json:"elastography_pattern,omitempty"`
}
