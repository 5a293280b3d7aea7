package prompts

// ============================================================================
// Idea Table Generation (text model)
// ============================================================================

// IdeaTableHeader is the exact header line requested from the text
// model. It must match domain.IdeaColumns joined by commas.
const IdeaTableHeader = "meme_template,prompt,company_background,marketing_message,call_to_action,target_audience,platform,theme"

// IdeaTableTemplate is the instruction for generating the marketing
// idea table. Substitutions, in order: business name, website, about
// text, row count, row count again.
const IdeaTableTemplate = `Based on the following business details:
- Business Name: %s
- Website: %s
- About: %s

Generate exactly %d rows of marketing data in CSV format with columns:
meme_template,prompt,company_background,marketing_message,call_to_action,target_audience,platform,theme

Rules:
- The first line must be exactly the header row above.
- Each of the %d data rows is one unique meme idea tailored to the business.
- Every field must be filled in; quote fields containing commas or line breaks.
- Output only the CSV data. No commentary, no markdown fences.`

// ============================================================================
// Meme Rendering (image model)
// ============================================================================

// MemeTemplate is the image-generation instruction built from one idea
// row. Substitutions, in order: meme_template, target_audience,
// platform, company_background, marketing_message, call_to_action,
// theme, prompt. The field set and order are fixed for
// reproducibility.
const MemeTemplate = `Create a meme using the '%s' style.
The meme should tell a short, funny, and relatable story targeting %s on %s.

Company Background: %s
Marketing Message: %s
Call to Action: %s

Theme: %s
Scene idea: %s

Ensure the meme humor connects with the target audience while subtly
highlighting the value of the company. The final meme should be
engaging, visually clear, and suitable for viral social media
marketing. Avoid adding any company logo. Dont make spelling mistake.`
