package derivation

import (
	"strings"

	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
)

const pleuralPath = "pleural_procedures."

func pleuralClauses() []clause {
	return []clause{
		{pleuralPath + "thoracentesis", thoracentesis},
		{pleuralPath + "chest_tube", chestTube},
		{pleuralPath + "tunneled_pleural_catheter", tunneledPleuralCatheter},
		{pleuralPath + "pleurodesis", pleurodesis},
		{pleuralPath + "fibrinolytic_therapy", fibrinolyticTherapy},
		{pleuralPath + "medical_thoracoscopy", medicalThoracoscopy},
		{pleuralPath + "pleural_biopsy", pleuralBiopsy},
		{pleuralPath + "chest_ultrasound", chestUltrasound},
	}
}

// imageGuided reports whether imaging guidance is recorded for p or described by its evidence.
func imageGuided(c *clauseContext, p *models.ImageGuidedProcedure) (bool, string) {
	switch {
	case p.ImagingGuidance && p.Modality != "":
		return true, " with " + p.Modality + " guidance"
	case p.ImagingGuidance:
		return true, " with imaging guidance"
	case c.matcher.Has(evidence.CueImagingGuidance, c.evidence()):
		return true, " with imaging guidance from evidence text"
	}
	return false, " without imaging guidance"
}

func side(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return ""
	}
	return ", " + strings.ToLower(s)
}

func thoracentesis(c *clauseContext) {
	p := c.rec.PleuralProcedures.Thoracentesis
	if p == nil || !p.Performed {
		return
	}
	if guided, how := imageGuided(c, p); guided {
		c.emit(CodeThoracentesisImaging, "thoracentesis.imaging", "Thoracentesis"+how+side(p.Side))
	} else {
		c.emit(CodeThoracentesis, "thoracentesis", "Thoracentesis"+how+side(p.Side))
	}
}

func chestTube(c *clauseContext) {
	p := c.rec.PleuralProcedures.ChestTube
	if p == nil || !p.Performed {
		return
	}
	if guided, how := imageGuided(c, p); guided {
		c.emit(CodeChestTubeImaging, "chest_tube.imaging", "Percutaneous pleural drainage catheter"+how+side(p.Side))
	} else {
		c.emit(CodeChestTube, "chest_tube", "Percutaneous pleural drainage catheter"+how+side(p.Side))
	}
}

func tunneledPleuralCatheter(c *clauseContext) {
	p := c.rec.PleuralProcedures.TunneledPleuralCatheter
	if p == nil || !p.Performed {
		return
	}
	action := strings.ToLower(p.Action)
	removal := strings.Contains(action, "remov")
	if action == "" {
		removal = c.matcher.Has(evidence.CueRemoval, c.evidence())
	}
	if removal {
		c.emit(CodeTunneledCatheterRemoval, "tunneled_pleural_catheter.removal", "Removal of indwelling tunneled pleural catheter"+side(p.Side))
		return
	}
	c.emit(CodeTunneledCatheter, "tunneled_pleural_catheter.insertion", "Insertion of indwelling tunneled pleural catheter"+side(p.Side))
}

func pleurodesis(c *clauseContext) {
	p := c.rec.PleuralProcedures.Pleurodesis
	if p == nil || !p.Performed {
		return
	}
	agent := ""
	if p.Agent != "" {
		agent = " with " + p.Agent
	}
	approach := strings.ToLower(p.Method)
	thoracoscopic := strings.Contains(approach, "thoracoscop") || strings.Contains(approach, "pleuroscop") || strings.Contains(approach, "poudrage")
	if approach == "" {
		thoracoscopic = c.matcher.Has(evidence.CueThoracoscopic, c.evidence())
	}
	if thoracoscopic {
		c.emit(CodeThoracoscopyPleurodesis, "pleurodesis.thoracoscopic", "Thoracoscopic pleurodesis"+agent)
		return
	}
	c.emit(CodePleurodesisInstillation, "pleurodesis.instillation", "Pleurodesis by instillation of agent via chest tube"+agent)
}

func fibrinolyticTherapy(c *clauseContext) {
	p := c.rec.PleuralProcedures.FibrinolyticTherapy
	if p == nil || !p.Performed {
		return
	}
	agent := ""
	if p.Agent != "" {
		agent = " with " + p.Agent
	}
	switch {
	case p.SubsequentDay, p.DoseNumber > 1:
		c.emit(CodeFibrinolysisSubsequent, "fibrinolytic_therapy.subsequent", "Intrapleural fibrinolytic instillation, subsequent day"+agent)
	case c.matcher.SubsequentDay(c.evidence()):
		c.emit(CodeFibrinolysisSubsequent, "fibrinolytic_therapy.subsequent", "Intrapleural fibrinolytic instillation, subsequent day from evidence text"+agent)
	default:
		c.emit(CodeFibrinolysisInitial, "fibrinolytic_therapy.initial", "Intrapleural fibrinolytic instillation, initial day"+agent)
	}
}

func medicalThoracoscopy(c *clauseContext) {
	p := c.rec.PleuralProcedures.MedicalThoracoscopy
	if p == nil || !p.Performed {
		return
	}
	switch {
	case p.Pleurodesis:
		c.emit(CodeThoracoscopyPleurodesis, "medical_thoracoscopy.pleurodesis", "Thoracoscopy with pleurodesis")
	case p.BiopsyTaken:
		c.emit(CodeThoracoscopyBiopsy, "medical_thoracoscopy.biopsy", "Thoracoscopy with biopsy of pleura")
	default:
		rationale := "Diagnostic thoracoscopy"
		if p.Adhesiolysis {
			rationale += " with adhesiolysis"
		}
		c.emit(CodeThoracoscopyDiagnostic, "medical_thoracoscopy.diagnostic", rationale)
	}
}

func pleuralBiopsy(c *clauseContext) {
	p := c.rec.PleuralProcedures.PleuralBiopsy
	if p == nil || !p.Performed {
		return
	}
	rationale := "Percutaneous needle biopsy of pleura"
	if guided, how := imageGuided(c, p); guided {
		rationale += how
	}
	c.emit(CodePleuralBiopsy, "pleural_biopsy", rationale+side(p.Side))
}

func chestUltrasound(c *clauseContext) {
	if performed(c.rec.PleuralProcedures.ChestUltrasound) {
		c.emit(CodeChestUltrasound, "chest_ultrasound", "Chest ultrasound")
	}
}
