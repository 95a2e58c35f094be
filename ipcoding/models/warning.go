package models

import "fmt"

// WarningKind enumerates the advisory conditions a derivation can report. Warnings are
// intended for human review; the engine never fails a record because of them.
type WarningKind string

const (
	// A rule decided a code must not be emitted.
	WarningSuppressed WarningKind = "suppressed"
	// A procedure was flagged as performed without the detail needed to code it.
	WarningMissingDetail WarningKind = "missing_detail"
	// A record field could not be interpreted and was treated as absent.
	WarningMalformedField WarningKind = "malformed_field"
	// A code was emitted and then removed while resolving conflicts.
	WarningConflictRemoved WarningKind = "conflict_removed"
	// An add-on code was removed because no qualifying primary code survived.
	WarningAddonWithoutPrimary WarningKind = "addon_without_primary"
	// A unit count was clamped to the maximum allowed units for the code.
	WarningUnitsCapped WarningKind = "units_capped"
	// A rule clause failed unexpectedly and contributed nothing.
	WarningClauseFailed WarningKind = "clause_failed"
	// The knowledge base marks the code inactive or deleted.
	WarningInactiveCode WarningKind = "inactive_code"
)

// Warning is a structured advisory. String renders the free text form used for review queues.
type Warning struct {
	Kind WarningKind `json:"kind"`
	// Code is the code the warning is about (suppressed, dropped or capped).
	Code string `json:"code,omitempty"`
	// Other is the surviving code for conflict removals and the primary for add-on removals.
	Other string `json:"other,omitempty"`
	// Field is the record path or rule clause the warning originated from.
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarningSuppressed:
		if w.Code == "" {
			return fmt.Sprintf("%s: %s", w.Field, w.Detail)
		}
		return fmt.Sprintf("Suppressed %s: %s", w.Code, w.Detail)
	case WarningMissingDetail:
		return fmt.Sprintf("%s marked performed without supporting detail: %s", w.Field, w.Detail)
	case WarningMalformedField:
		return fmt.Sprintf("Ignored malformed field %s: %s", w.Field, w.Detail)
	case WarningConflictRemoved:
		msg := fmt.Sprintf("Dropped %s in favor of %s", w.Code, w.Other)
		if w.Detail != "" {
			msg += ": " + w.Detail
		}
		return msg
	case WarningAddonWithoutPrimary:
		return fmt.Sprintf("Removed add-on %s: %s", w.Code, w.Detail)
	case WarningUnitsCapped:
		return fmt.Sprintf("Capped units for %s: %s", w.Code, w.Detail)
	case WarningClauseFailed:
		return fmt.Sprintf("Rule clause %s failed and contributed no codes: %s", w.Field, w.Detail)
	case WarningInactiveCode:
		return fmt.Sprintf("Suppressed %s: %s", w.Code, w.Detail)
	}
	return w.Detail
}
