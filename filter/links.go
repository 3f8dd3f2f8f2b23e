// Package filter cleans up model output before it is shown in the UI.
package filter

import (
	"regexp"
	"strings"
)

var markdownLinkRegex = regexp.MustCompile(`\(?\[[^\]]*\]\([^)]*\)\)?`)

// StripLinks removes markdown links from a complete model response.
// The model is instructed to answer in plain text, but it occasionally
// emits links anyway; they are useless in this client.
func StripLinks(text string) string {
	return strings.TrimSpace(markdownLinkRegex.ReplaceAllString(text, ""))
}
