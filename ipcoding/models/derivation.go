package models

// DerivedCode is a single billable code produced for a record.
type DerivedCode struct {
	Code       string  `json:"code"`
	Rationale  string  `json:"rationale"`
	RuleID     string  `json:"rule_id"`
	Confidence float64 `json:"confidence"`
	// Units is the billed unit count. It is 1 unless the code is a multi-unit add-on.
	Units int `json:"units"`
}

// Derivation is the complete engine output for one record. Codes are sorted by code and
// contain no duplicates.
type Derivation struct {
	ID        string         `json:"id"`
	KBVersion string         `json:"kb_version,omitempty"`
	Codes     []DerivedCode  `json:"codes"`
	Warnings  []Warning      `json:"warnings"`
	Units     map[string]int `json:"units,omitempty"`
}

// CodeValues returns the bare code strings in output order.
func (d *Derivation) CodeValues() []string {
	codes := make([]string, 0, len(d.Codes))
	for _, c := range d.Codes {
		codes = append(codes, c.Code)
	}
	return codes
}

// WarningText renders every warning as free text.
func (d *Derivation) WarningText() []string {
	text := make([]string, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		text = append(text, w.String())
	}
	return text
}

// Has reports whether code is part of the derivation.
func (d *Derivation) Has(code string) bool {
	for _, c := range d.Codes {
		if c.Code == code {
			return true
		}
	}
	return false
}
