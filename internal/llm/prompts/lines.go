package prompts

import (
	"regexp"
	"strings"
)

var bulletRegex = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// Lines splits a model response into cleaned lines. Prompts ask for
// one-item-per-line output, but models still number or bullet items and
// wrap them in code fences; both are stripped here.
func Lines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = bulletRegex.ReplaceAllString(line, "")
		line = strings.Trim(line, `"`)
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
