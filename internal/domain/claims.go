package domain

import "fmt"

// ClaimType separates evidence-backed statements from inferred ones.
type ClaimType string

const (
	// ClaimHard marks a claim backed by concrete evidence ids.
	ClaimHard ClaimType = "HARD"
	// ClaimInferred marks a claim derived from concepts/heat with a stated basis.
	ClaimInferred ClaimType = "INFERRED"
)

// Claim is a single narrative statement tagged HARD or INFERRED.
// HARD claims carry evidence ids; INFERRED claims carry a basis string.
type Claim struct {
	Text        string    `json:"text"`
	Type        ClaimType `json:"type"`
	EvidenceIDs []string  `json:"evidence_ids,omitempty"`
	Basis       string    `json:"basis,omitempty"`
}

// Validate checks the HARD/INFERRED grounding contract against the
// evidence ids available in the input document.
func (c Claim) Validate(evidenceIDs map[string]bool) error {
	switch c.Type {
	case ClaimHard:
		if len(c.EvidenceIDs) == 0 {
			return fmt.Errorf("%w: HARD claim %q has no evidence ids", ErrSchemaViolation, c.Text)
		}
		for _, id := range c.EvidenceIDs {
			if !evidenceIDs[id] {
				return fmt.Errorf("%w: HARD claim %q references unknown evidence %q", ErrSchemaViolation, c.Text, id)
			}
		}
	case ClaimInferred:
		if c.Basis == "" {
			return fmt.Errorf("%w: INFERRED claim %q has no basis", ErrSchemaViolation, c.Text)
		}
	default:
		return fmt.Errorf("%w: claim %q has invalid type %q", ErrSchemaViolation, c.Text, c.Type)
	}
	return nil
}

// EvidenceIDSet builds the id lookup used for claim validation.
func EvidenceIDSet(evidence []Evidence) map[string]bool {
	ids := make(map[string]bool, len(evidence))
	for _, e := range evidence {
		ids[e.ID] = true
	}
	return ids
}
