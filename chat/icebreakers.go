package chat

import (
	"regexp"
	"strings"
)

var numberPrefixRegex = regexp.MustCompile(`^\d+\.\s*`)

// ParseIcebreakers splits a free-text model response into candidate
// lines, discarding blank ones. The numbering the model was asked for
// is kept for display.
func ParseIcebreakers(response string) []string {
	var lines []string
	for _, line := range strings.Split(response, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// StripNumberPrefix removes a leading "N. " numbering prefix from a
// selected candidate line.
func StripNumberPrefix(line string) string {
	return numberPrefixRegex.ReplaceAllString(line, "")
}
