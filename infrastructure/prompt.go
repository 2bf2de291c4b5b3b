package infrastructure

import (
	_ "embed"
	"strings"
)

// Field names of the evaluation schema, in the order the prompt lists them.
const (
	FieldMatch    = "JD Match"
	FieldMatched  = "MatchedKeywords"
	FieldMissing  = "MissingKeywords"
	FieldSummary  = "Profile Summary"
	placeholderCV = "{{RESUME}}"
	placeholderJD = "{{JOB_DESCRIPTION}}"
)

//go:embed prompt.md
var promptTemplate string

// BuildPrompt renders the evaluation prompt. Placeholders are substituted in a single
// pass, so text inside the résumé is never re-expanded.
func BuildPrompt(resumeText, jobDescriptionText string) string {
	r := strings.NewReplacer(
		placeholderCV, strings.TrimSpace(resumeText),
		placeholderJD, strings.TrimSpace(jobDescriptionText),
	)
	return r.Replace(promptTemplate)
}
