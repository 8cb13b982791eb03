package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidField is returned when a field name cannot be used to build a pattern.
var ErrInvalidField = errors.New("invalid field name")

var lineBreakRun = regexp.MustCompile(`\s*\n\s*`)

// FieldPattern locates `<name> = "<value>"` assignments whose value may span
// several lines. The value ends at the first quote not escaped by a backslash.
type FieldPattern struct {
	name string
	re   *regexp.Regexp
}

// NewFieldPattern compiles the pattern for the field called name.
func NewFieldPattern(name string) (*FieldPattern, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidField)
	}
	re, err := regexp.Compile(`(?s)` + regexp.QuoteMeta(name) + `\s*=\s*"((?:[^"\\]|\\.)*)"`)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidField, name, err)
	}
	return &FieldPattern{name: name, re: re}, nil
}

// Name returns the field name the pattern matches.
func (p *FieldPattern) Name() string {
	return p.name
}

// Normalize rewrites every assignment of the field with its value collapsed
// onto one line. It returns the new content and the number of assignments
// whose text changed.
func (p *FieldPattern) Normalize(content string) (string, int) {
	matches := p.re.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, 0
	}
	var b strings.Builder
	b.Grow(len(content))
	last, fixed := 0, 0
	for _, m := range matches {
		original := content[m[0]:m[1]]
		rendered := p.name + ` = "` + CollapseLineBreaks(content[m[2]:m[3]]) + `"`
		if rendered != original {
			fixed++
		}
		b.WriteString(content[last:m[0]])
		b.WriteString(rendered)
		last = m[1]
	}
	b.WriteString(content[last:])
	return b.String(), fixed
}

// CollapseLineBreaks replaces each whitespace run containing a line break
// with a single space and trims the result.
func CollapseLineBreaks(value string) string {
	return strings.TrimSpace(lineBreakRun.ReplaceAllString(value, " "))
}
