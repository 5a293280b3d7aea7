package domain

import "strings"

// BusinessProfile holds the business facts captured in the first wizard
// stage. Immutable once validated; consumed only by prompt building.
type BusinessProfile struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	About   string `json:"about"`
}

// Validate checks that all profile fields carry non-blank text.
// Parameters: none.
// Returns:
//   - error: *ValidationError naming the first blank field, or nil.
func (p *BusinessProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.Website) == "" {
		return &ValidationError{Field: "website", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.About) == "" {
		return &ValidationError{Field: "about", Reason: "must not be empty"}
	}
	return nil
}
