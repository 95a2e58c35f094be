package derivation

import "github.com/CMSgov/ipcoding-app/ipcoding/kb"

// CPT codes produced by the rule clauses. Add-on codes are kept without the leading "+".
const (
	CodeTracheostomy           = "31600"
	CodeBronchoscopyViaTrach   = "31615"
	CodeDiagnosticBronchoscopy = "31622"
	CodeBrushing               = "31623"
	CodeBAL                    = "31624"
	CodeEndobronchialBiopsy    = "31625"
	CodeFiducial               = "31626"
	CodeNavigation             = "31627"
	CodeTransbronchialBiopsy   = "31628"
	CodeTBNA                   = "31629"
	CodeDilation               = "31630"
	CodeTrachealStent          = "31631"
	CodeTBBxAdditionalLobe     = "31632"
	CodeTBNAAdditionalLobe     = "31633"
	CodeBalloonOcclusion       = "31634"
	CodeForeignBody            = "31635"
	CodeBronchialStent         = "31636"
	CodeStentAdditionalBronchi = "31637"
	CodeStentRevision          = "31638"
	CodeTumorExcision          = "31640"
	CodeTumorDestruction       = "31641"
	CodeBrachytherapy          = "31643"
	CodeAspirationInitial      = "31645"
	CodeAspirationSubsequent   = "31646"
	CodeValveInsertion         = "31647"
	CodeValveRemoval           = "31648"
	CodeValveRemovalAddLobe    = "31649"
	CodeValveInsertionAddLobe  = "31651"
	CodeEBUSOneToTwoStations   = "31652"
	CodeEBUSThreePlusStations  = "31653"
	CodeRadialEBUS             = "31654"
	CodeThermoplastyOneLobe    = "31660"
	CodeThermoplastyMultiLobe  = "31661"

	CodeTunneledCatheter        = "32550"
	CodeTunneledCatheterRemoval = "32552"
	CodeThoracentesis           = "32554"
	CodeThoracentesisImaging    = "32555"
	CodeChestTube               = "32556"
	CodeChestTubeImaging        = "32557"
	CodePleurodesisInstillation = "32560"
	CodeFibrinolysisInitial     = "32561"
	CodeFibrinolysisSubsequent  = "32562"
	CodePleuralBiopsy           = "32400"
	CodeThoracoscopyDiagnostic  = "32601"
	CodeThoracoscopyBiopsy      = "32609"
	CodeThoracoscopyPleurodesis = "32650"
	CodeWholeLungLavage         = "32997"

	CodeChestUltrasound        = "76604"
	CodeElastography           = "76982"
	CodeElastographyAdditional = "76983"
	CodeSedationInitial        = "99152"
	CodeSedationAdditional     = "99153"
)

// staticExclusions are tiered alternatives: the first code is the more specific one.
var staticExclusions = [][2]string{
	{CodeEBUSThreePlusStations, CodeEBUSOneToTwoStations},
	{CodeThermoplastyMultiLobe, CodeThermoplastyOneLobe},
	{CodeThoracentesisImaging, CodeThoracentesis},
	{CodeChestTubeImaging, CodeChestTube},
	{CodeThoracoscopyBiopsy, CodeThoracoscopyDiagnostic},
}

// StaticExclusions returns the built in mutual exclusions as keep -> drop edges. The knowledge
// base validator includes them when checking the bundling graph for cycles.
func StaticExclusions() []kb.Edge {
	edges := make([]kb.Edge, 0, len(staticExclusions))
	for _, pair := range staticExclusions {
		edges = append(edges, kb.Edge{Keep: pair[0], Drop: pair[1], Source: "static", Reason: "more specific alternative"})
	}
	return edges
}

// bronchoscopicPrimaries qualify a bronchoscopic add-on and absorb a diagnostic bronchoscopy.
var bronchoscopicPrimaries = []string{
	CodeBronchoscopyViaTrach, CodeDiagnosticBronchoscopy, CodeBrushing, CodeBAL, CodeEndobronchialBiopsy,
	CodeFiducial, CodeTransbronchialBiopsy, CodeTBNA, CodeDilation, CodeTrachealStent, CodeBalloonOcclusion,
	CodeForeignBody, CodeBronchialStent, CodeStentRevision, CodeTumorExcision, CodeTumorDestruction,
	CodeBrachytherapy, CodeAspirationInitial, CodeAspirationSubsequent, CodeValveInsertion, CodeValveRemoval,
	CodeEBUSOneToTwoStations, CodeEBUSThreePlusStations, CodeThermoplastyOneLobe, CodeThermoplastyMultiLobe,
}

// addOnPrimaries lists, per add-on code, the primary codes that make it billable.
var addOnPrimaries = map[string][]string{
	CodeNavigation:             bronchoscopicPrimaries,
	CodeRadialEBUS:             bronchoscopicPrimaries,
	CodeTBBxAdditionalLobe:     {CodeTransbronchialBiopsy},
	CodeTBNAAdditionalLobe:     {CodeTBNA},
	CodeStentAdditionalBronchi: {CodeBronchialStent},
	CodeValveRemovalAddLobe:    {CodeValveRemoval},
	CodeValveInsertionAddLobe:  {CodeValveInsertion},
	CodeElastographyAdditional: {CodeElastography},
	CodeSedationAdditional:     {CodeSedationInitial},
}

// defaultMaxUnits caps multi-unit codes when the knowledge base has no max_units for them.
var defaultMaxUnits = map[string]int{
	CodeTBBxAdditionalLobe:     2,
	CodeTBNAAdditionalLobe:     2,
	CodeStentAdditionalBronchi: 2,
	CodeValveRemovalAddLobe:    3,
	CodeValveInsertionAddLobe:  3,
	CodeElastographyAdditional: 2,
	CodeSedationAdditional:     8,
}
