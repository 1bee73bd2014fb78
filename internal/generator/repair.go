package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoStructuredBlock indicates no JSON object was found in the response.
var ErrNoStructuredBlock = errors.New("no structured block in response")

// DecodeStructured extracts the first JSON object from raw model output and
// unmarshals it into v. Plain parsing is tried first; if it fails, one
// repair pass balances unmatched quotes, brackets and braces before a
// second parse. The returned flag reports whether repair was needed.
func DecodeStructured(raw string, v any) (repaired bool, err error) {
	block := extractBlock(stripFences(raw))
	if block == "" {
		return false, ErrNoStructuredBlock
	}

	if err := json.Unmarshal([]byte(block), v); err == nil {
		return false, nil
	}

	fixed := Repair(block)
	if err := json.Unmarshal([]byte(fixed), v); err != nil {
		return true, fmt.Errorf("structured response unparseable after repair: %w", err)
	}
	return true, nil
}

// Repair closes an unterminated string and appends the closers for any
// unmatched brackets and braces, so a truncated structured response
// becomes parseable. A dangling key or trailing comma at the cut point is
// patched before closing.
func Repair(s string) string {
	inString := false
	escaped := false
	var stack []byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}

	// Trailing comma or colon at the truncation point would make the
	// closers invalid.
	out := strings.TrimRight(b.String(), " \t\n\r")
	if strings.HasSuffix(out, ",") {
		out = strings.TrimRight(out[:len(out)-1], " \t\n\r")
	}
	if strings.HasSuffix(out, ":") {
		out += " null"
	}

	var closers strings.Builder
	closers.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			closers.WriteByte('}')
		} else {
			closers.WriteByte(']')
		}
	}
	return closers.String()
}

// stripFences removes markdown code fences around a response.
func stripFences(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// extractBlock returns the first balanced { ... } block, or everything
// from the first '{' when the block never closes (truncated output).
func extractBlock(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
