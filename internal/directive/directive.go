// Package directive parses the bracketed instructions a model embeds in
// its reply:
//
//	[ACTION:TYPE:param1:param2]   read-only, executed immediately
//	[PROPOSE:TYPE:param1:param2]  write, registered for confirmation
//
// The keyword is case-insensitive and the type is normalised to upper case.
// Parameters cannot contain ']': the first closing bracket ends the
// directive, and anything after it stays in the reply as plain text.
package directive

import (
	"regexp"
	"strings"
)

// Kind distinguishes immediate reads from proposed writes.
type Kind string

const (
	KindAction  Kind = "action"
	KindPropose Kind = "propose"
)

// Directive is one parsed instruction. Params are kept verbatim so that
// re-joined values survive intact. Start and End are byte offsets of the
// full bracketed text in the source.
type Directive struct {
	Kind   Kind
	Type   string
	Params []string
	Raw    string
	Start  int
	End    int
}

// Param returns the i-th parameter trimmed, or "" when absent.
func (d Directive) Param(i int) string {
	if i < 0 || i >= len(d.Params) {
		return ""
	}
	return strings.TrimSpace(d.Params[i])
}

// Joined returns the parameters from i onward re-joined with ':'. Values
// such as SQL text may themselves contain colons.
func (d Directive) Joined(i int) string {
	if i >= len(d.Params) {
		return ""
	}
	return strings.Join(d.Params[i:], ":")
}

var pattern = regexp.MustCompile(`(?i)\[(ACTION|PROPOSE):([^\]]+)\]`)

// Parse returns every directive in text, left to right. A directive with an
// empty type is not recognised and stays in the text.
func Parse(text string) []Directive {
	var out []Directive
	for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
		body := text[loc[4]:loc[5]]
		parts := strings.Split(body, ":")
		typ := strings.ToUpper(strings.TrimSpace(parts[0]))
		if typ == "" {
			continue
		}
		out = append(out, Directive{
			Kind:   Kind(strings.ToLower(text[loc[2]:loc[3]])),
			Type:   typ,
			Params: parts[1:],
			Raw:    text[loc[0]:loc[1]],
			Start:  loc[0],
			End:    loc[1],
		})
	}
	return out
}

// Replace rewrites text, substituting the i-th directive with the string
// returned by fn. Directives must come from Parse(text).
func Replace(text string, dirs []Directive, fn func(i int, d Directive) string) string {
	if len(dirs) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for i, d := range dirs {
		b.WriteString(text[prev:d.Start])
		b.WriteString(fn(i, d))
		prev = d.End
	}
	b.WriteString(text[prev:])
	return b.String()
}

// Strip removes every directive and tidies the whitespace left behind.
func Strip(text string, dirs []Directive) string {
	return Tidy(Replace(text, dirs, func(int, Directive) string { return "" }))
}

var blankRun = regexp.MustCompile(`\n{3,}`)

// Tidy trims the text and collapses runs of blank lines.
func Tidy(text string) string {
	return strings.TrimSpace(blankRun.ReplaceAllString(text, "\n\n"))
}
