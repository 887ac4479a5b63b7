// suggestion.go — Diagnostic suggestion types and severity ordering.
//
// JSON CONVENTION: All fields use snake_case.
package types

// Severity ranks how urgent a suggestion is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank returns the sort position of a severity: critical first, unknown last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Suggestion is one actionable diagnostic produced from observed render data.
type Suggestion struct {
	Type          string   `json:"type"`
	Severity      Severity `json:"severity"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AffectedProps []string `json:"affected_props,omitempty"`
	CodeExample   string   `json:"code_example,omitempty"`
}
