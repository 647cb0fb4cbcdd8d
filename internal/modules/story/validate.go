package story

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/petrel-quant/petrel/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateNarrative(out *NarrativeOutput, evidence map[string]bool) error {
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: narrative: %v", domain.ErrSchemaViolation, err)
	}
	if err := validateClaims(out.MarketNarratives, evidence); err != nil {
		return fmt.Errorf("market_narratives: %w", err)
	}
	if err := validateClaims(out.CompanyDirections, evidence); err != nil {
		return fmt.Errorf("company_directions: %w", err)
	}
	return nil
}

func validateTimeline(out *TimelineOutput, evidence map[string]bool) error {
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: timeline: %v", domain.ErrSchemaViolation, err)
	}
	// A timeline with no events must say why, never silently come up empty.
	if len(out.Events) == 0 && out.UnverifiableNote == "" {
		return fmt.Errorf("%w: timeline has no events and no unverifiable note", domain.ErrSchemaViolation)
	}
	for i, ev := range out.Events {
		if err := ev.Claim.Validate(evidence); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}
	return nil
}

func validateCard(card *StoryCard, evidence map[string]bool) error {
	if err := validate.Struct(card); err != nil {
		return fmt.Errorf("%w: story card: %v", domain.ErrSchemaViolation, err)
	}
	if err := validateClaims(card.Story.NarrativeClaims, evidence); err != nil {
		return fmt.Errorf("story.narrative_claims: %w", err)
	}
	if err := validateClaims(card.Story.DirectionClaims, evidence); err != nil {
		return fmt.Errorf("story.direction_claims: %w", err)
	}
	return nil
}

func validateClaims(claims []domain.Claim, evidence map[string]bool) error {
	for i, c := range claims {
		if err := c.Validate(evidence); err != nil {
			return fmt.Errorf("claim[%d]: %w", i, err)
		}
	}
	return nil
}
