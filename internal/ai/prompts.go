package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/filter_jobs.md
var filterJobsPromptRaw string

//go:embed prompts/translate.md
var translatePromptRaw string

// FilterJobsTemplate renders the batch scoring prompt. Postings go last so the
// fixed part can be measured on its own.
var FilterJobsTemplate = template.Must(template.New("filter_jobs").Parse(filterJobsPromptRaw))

// TranslateTemplate renders the per-listing translation prompt.
var TranslateTemplate = template.Must(template.New("translate").Parse(translatePromptRaw))
