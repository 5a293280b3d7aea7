package domain

import "strings"

// IdeaColumns is the fixed, order-significant column set of the idea
// table. The CSV contract with the text model and every downstream
// writer depend on this exact order.
var IdeaColumns = []string{
	"meme_template",
	"prompt",
	"company_background",
	"marketing_message",
	"call_to_action",
	"target_audience",
	"platform",
	"theme",
}

// IdeaRow is one marketing-meme idea produced by the text model.
type IdeaRow struct {
	MemeTemplate      string `json:"meme_template"`
	Prompt            string `json:"prompt"`
	CompanyBackground string `json:"company_background"`
	MarketingMessage  string `json:"marketing_message"`
	CallToAction      string `json:"call_to_action"`
	TargetAudience    string `json:"target_audience"`
	Platform          string `json:"platform"`
	Theme             string `json:"theme"`
}

// Fields returns the row values in canonical column order.
func (r *IdeaRow) Fields() []string {
	return []string{
		r.MemeTemplate,
		r.Prompt,
		r.CompanyBackground,
		r.MarketingMessage,
		r.CallToAction,
		r.TargetAudience,
		r.Platform,
		r.Theme,
	}
}

// Validate checks that all eight fields carry non-blank text.
// Parameters: none.
// Returns:
//   - error: *ValidationError naming the first blank column, or nil.
func (r *IdeaRow) Validate() error {
	for i, v := range r.Fields() {
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: IdeaColumns[i], Reason: "must not be empty"}
		}
	}
	return nil
}

// RowFromFields builds an IdeaRow from values in canonical column
// order. The caller guarantees len(fields) == len(IdeaColumns).
func RowFromFields(fields []string) IdeaRow {
	return IdeaRow{
		MemeTemplate:      fields[0],
		Prompt:            fields[1],
		CompanyBackground: fields[2],
		MarketingMessage:  fields[3],
		CallToAction:      fields[4],
		TargetAudience:    fields[5],
		Platform:          fields[6],
		Theme:             fields[7],
	}
}

// IdeaTable is the ordered collection of idea rows for one generation.
// Row indices are positional and referenced by MemeArtifact.
type IdeaTable []IdeaRow
