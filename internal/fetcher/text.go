package fetcher

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockTagRegex = regexp.MustCompile(`(?i)</?(p|br|li|ul|ol|div|h[1-6])[^>]*>`)
	htmlTagRegex  = regexp.MustCompile(`<[^>]*>`)
)

// extractText converts description markup to plain text. Block-level tags
// become line breaks so bullet lists stay readable; runs of spaces collapse.
func extractText(content string) string {
	if content == "" {
		return ""
	}
	s := blockTagRegex.ReplaceAllString(content, "\n")
	s = htmlTagRegex.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
