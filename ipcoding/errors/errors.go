package errors

import "fmt"

// KnowledgeBaseError is returned when a knowledge base document cannot be read or decoded.
type KnowledgeBaseError struct {
	Err  error
	Path string
}

func (e *KnowledgeBaseError) Error() string {
	return fmt.Sprintf("failed to load knowledge base %s: %s", e.Path, e.Err)
}

func (e *KnowledgeBaseError) Unwrap() error {
	return e.Err
}

// RuleShapeError describes a bundling rule that does not match any of the known variants
// or is missing fields its variant requires. It is raised at load time, before a snapshot
// can be published.
type RuleShapeError struct {
	Index int
	Type  string
	Msg   string
}

func (e *RuleShapeError) Error() string {
	return fmt.Sprintf("bundling_rules[%d] (type %q): %s", e.Index, e.Type, e.Msg)
}

// RecordDecodeError is returned when a procedure record is not a JSON object at all.
// Individual malformed fields never produce this error; they degrade to warnings.
type RecordDecodeError struct {
	Err error
}

func (e *RecordDecodeError) Error() string {
	return fmt.Sprintf("failed to decode procedure record: %s", e.Err)
}

func (e *RecordDecodeError) Unwrap() error {
	return e.Err
}

// GateError is returned by a knowledge base reload that was rejected by the release gate.
type GateError struct {
	Path   string
	Issues []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("knowledge base %s rejected with %d issue(s)", e.Path, len(e.Issues))
}
