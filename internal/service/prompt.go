package service

import (
	"fmt"

	"github.com/complytics/memegen/internal/domain"
	"github.com/complytics/memegen/internal/prompts"
)

// PromptBuilder turns structured pipeline inputs into prompt strings
// for the two generation stages. Pure template substitution; no I/O.
type PromptBuilder struct {
	rows int
}

// PromptConfig holds configuration for prompt building.
type PromptConfig struct {
	Rows int // requested idea rows per table generation
}

// NewPromptBuilder creates a new prompt builder.
// Parameters:
//   - cfg: prompt configuration; nil or non-positive Rows uses 10.
//
// Returns:
//   - *PromptBuilder: initialized builder.
func NewPromptBuilder(cfg *PromptConfig) *PromptBuilder {
	rows := 10
	if cfg != nil && cfg.Rows > 0 {
		rows = cfg.Rows
	}
	return &PromptBuilder{rows: rows}
}

// Rows returns the configured idea row count.
func (b *PromptBuilder) Rows() int {
	return b.rows
}

// BuildIdeaTablePrompt builds the table-generation instruction from a
// business profile. Blank business data yields unusable generations,
// so it is rejected here even though the front end validates first.
// Parameters:
//   - profile: captured business facts.
//
// Returns:
//   - string: prompt requesting the fixed eight-column CSV.
//   - error: *domain.ValidationError if a profile field is blank.
func (b *PromptBuilder) BuildIdeaTablePrompt(profile *domain.BusinessProfile) (string, error) {
	if profile == nil {
		return "", &domain.ValidationError{Field: "profile", Reason: "must not be nil"}
	}
	if err := profile.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(prompts.IdeaTableTemplate,
		profile.Name, profile.Website, profile.About, b.rows, b.rows), nil
}

// BuildMemePrompt builds the image-generation instruction from one
// idea row. All eight fields participate, in fixed order.
// Parameters:
//   - row: idea row to render.
//
// Returns:
//   - string: image-generation prompt.
//   - error: *domain.ValidationError if a row field is blank.
func (b *PromptBuilder) BuildMemePrompt(row *domain.IdeaRow) (string, error) {
	if row == nil {
		return "", &domain.ValidationError{Field: "row", Reason: "must not be nil"}
	}
	if err := row.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(prompts.MemeTemplate,
		row.MemeTemplate,
		row.TargetAudience,
		row.Platform,
		row.CompanyBackground,
		row.MarketingMessage,
		row.CallToAction,
		row.Theme,
		row.Prompt,
	), nil
}
