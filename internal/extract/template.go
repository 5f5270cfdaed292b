package extract

import (
	"regexp"
	"strings"
)

// Template is one template occurrence in wikitext
type Template struct {
	Name       string            // normalised template name
	Params     map[string]string // named parameters, raw values trimmed
	Positional []string          // unnamed parameters in order
}

// Param looks up a named parameter case-insensitively. Empty values count as
// missing.
func (t Template) Param(name string) (string, bool) {
	if v, ok := t.Params[name]; ok && v != "" {
		return v, true
	}
	for k, v := range t.Params {
		if strings.EqualFold(k, name) && v != "" {
			return v, true
		}
	}
	return "", false
}

var commentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)

// templateNamespaces are prefixes a template may be written with
var templateNamespaces = []string{"template:", "šablona:"}

// FindTemplate returns the first occurrence of the named template in text.
// Nested templates and links inside parameter values are kept intact.
func FindTemplate(text, name string) (Template, bool) {
	text = commentPattern.ReplaceAllString(text, "")
	want := normalizeTemplateName(name)

	for i := 0; i+1 < len(text); i++ {
		if text[i] != '{' || text[i+1] != '{' {
			continue
		}
		end := matchBraces(text, i)
		if end < 0 {
			// Unclosed "{{": a later template may still be complete
			i++
			continue
		}
		parts := splitTopLevel(text[i+2 : end])
		if len(parts) > 0 && strings.EqualFold(normalizeTemplateName(parts[0]), want) {
			return buildTemplate(parts), true
		}
		// Not ours: keep scanning inside it, the template may be nested
		i++
	}
	return Template{}, false
}

// matchBraces returns the index of the "}}" closing the "{{" at start, or -1
func matchBraces(text string, start int) int {
	depth := 0
	for i := start; i+1 < len(text); i++ {
		switch {
		case text[i] == '{' && text[i+1] == '{':
			depth++
			i++
		case text[i] == '}' && text[i+1] == '}':
			depth--
			if depth == 0 {
				return i
			}
			i++
		}
	}
	return -1
}

// splitTopLevel splits template content on "|" that are not inside nested
// templates or links
func splitTopLevel(body string) []string {
	var parts []string
	braces, brackets := 0, 0
	last := 0
	for i := 0; i < len(body); i++ {
		two := ""
		if i+1 < len(body) {
			two = body[i : i+2]
		}
		switch {
		case two == "{{":
			braces++
			i++
		case two == "}}" && braces > 0:
			braces--
			i++
		case two == "[[":
			brackets++
			i++
		case two == "]]" && brackets > 0:
			brackets--
			i++
		case body[i] == '|' && braces == 0 && brackets == 0:
			parts = append(parts, body[last:i])
			last = i + 1
		}
	}
	return append(parts, body[last:])
}

func buildTemplate(parts []string) Template {
	t := Template{
		Name:   normalizeTemplateName(parts[0]),
		Params: make(map[string]string),
	}
	for _, p := range parts[1:] {
		if k, v, ok := splitParam(p); ok {
			t.Params[k] = v
			continue
		}
		t.Positional = append(t.Positional, strings.TrimSpace(p))
	}
	return t
}

// splitParam splits "key = value" at the first top-level "="
func splitParam(p string) (string, string, bool) {
	idx := strings.IndexByte(p, '=')
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(p[:idx])
	if key == "" || strings.ContainsAny(key, "[{") {
		return "", "", false
	}
	return key, strings.TrimSpace(p[idx+1:]), true
}

func normalizeTemplateName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	lower := strings.ToLower(name)
	for _, ns := range templateNamespaces {
		if strings.HasPrefix(lower, ns) {
			name = strings.TrimSpace(name[len(ns):])
			break
		}
	}
	return strings.Join(strings.Fields(name), " ")
}
