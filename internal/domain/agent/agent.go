// Package agent defines the AI companion agent entity.
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/selfai-labs/selfai/internal/domain"
)

// Personality is a suggested tone for an agent's generated content.
// The UI constrains input to the known set, but free text is accepted.
type Personality string

const (
	PersonalityHelpful    Personality = "helpful"
	PersonalityWitty      Personality = "witty"
	PersonalityAnalytical Personality = "analytical"
	PersonalityBold       Personality = "bold"
	PersonalityCreative   Personality = "creative"
)

// IsKnown reports whether p is one of the suggested personalities.
func (p Personality) IsKnown() bool {
	switch p {
	case PersonalityHelpful, PersonalityWitty, PersonalityAnalytical, PersonalityBold, PersonalityCreative:
		return true
	}
	return false
}

// Agent represents an AI companion owned by the connected user.
type Agent struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Personality Personality `json:"personality"`
	Expertise   []string    `json:"expertise"`
	TotalPosts  int         `json:"total_posts"`
	CreatedAt   time.Time   `json:"created_at"`
}

// CreateRequest carries the user-supplied fields for a new agent.
type CreateRequest struct {
	Name        string      `json:"name"`
	Personality Personality `json:"personality"`
	Expertise   []string    `json:"expertise"`
}

// Validate checks the request and normalizes the expertise tags.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Expertise = NormalizeExpertise(r.Expertise)
	return nil
}

// NormalizeExpertise trims tags, drops blanks, and removes duplicates
// while preserving insertion order.
func NormalizeExpertise(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
