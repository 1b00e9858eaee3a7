// Package langmeta resolves display metadata (English and native language
// names) for locale codes, used when the server omits them.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Name   string
	Native string
}

// Canonicalize normalizes a locale code to BCP 47 form ("pt_br" → "pt-BR").
// Unparseable codes are returned trimmed but otherwise unchanged.
func Canonicalize(code string) string {
	code = strings.TrimSpace(code)
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code
	}
	return tag.String()
}

// Valid reports whether code parses as a BCP 47 tag.
func Valid(code string) bool {
	_, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	return err == nil
}

// Resolve returns best-effort metadata for a locale code, supporting
// variants like pt_BR and pt-BR. Unknown codes resolve to themselves.
func Resolve(code string) Meta {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return Meta{Name: code, Native: code}
	}

	m := Meta{
		Name:   display.English.Tags().Name(tag),
		Native: display.Self.Name(tag),
	}
	if m.Name == "" {
		base, _ := tag.Base()
		m.Name = display.English.Languages().Name(base)
	}
	if m.Name == "" {
		m.Name = code
	}
	if m.Native == "" {
		m.Native = m.Name
	}
	return m
}
