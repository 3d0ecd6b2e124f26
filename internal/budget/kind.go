package budget

import (
	"errors"
	"strings"
)

// Kind identifies which submission flow produced an analysis payload.
type Kind string

const (
	KindQuick   Kind = "quick"
	KindPDF     Kind = "pdf"
	KindProject Kind = "project"
)

// ProjectIDPrefix marks identifiers minted by the multi-PDF project flow.
const ProjectIDPrefix = "project_"

// ParseKind normalizes and validates a kind string.
func ParseKind(raw string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", errors.New("analysis kind is required")
	}
	switch Kind(normalized) {
	case KindQuick, KindPDF, KindProject:
		return Kind(normalized), nil
	default:
		return "", errors.New("analysis kind is invalid")
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindQuick, KindPDF, KindProject:
		return true
	default:
		return false
	}
}
