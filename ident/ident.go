// Package ident turns server-defined translation keys and raw placeholder
// tokens into names that are legal identifiers for the downstream
// localization code generator.
//
// Legal identifiers follow the host grammar ^[A-Za-z_$][A-Za-z0-9_$]*$.
package ident

import (
	"regexp"
	"strings"
)

// fallbackParam replaces placeholder names that sanitize to nothing.
const fallbackParam = "param"

var legalRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Synthesize builds a camel-cased member name from a dotted key.
//
//	"common.buttons.save" -> "commonButtonsSave"
//	"errors.404.title"    -> "errors404Title"
//	"Greeting"            -> "greeting"
//
// The result is never empty and always legal.
func Synthesize(key string) string {
	segments := strings.Split(key, ".")
	for i, seg := range segments {
		seg = stripSegment(seg)
		if startsWithDigit(seg) {
			seg = "_" + seg
		}
		segments[i] = seg
	}
	joined := strings.Join(segments, "_")

	var out string
	if len(segments) == 1 {
		out = strings.ToLower(joined)
	} else {
		parts := strings.Split(joined, "_")
		var b strings.Builder
		b.WriteString(strings.ToLower(parts[0]))
		for _, p := range parts[1:] {
			if p == "" {
				continue
			}
			b.WriteString(titleCase(p))
		}
		out = b.String()
	}

	if out == "" {
		// Keys made only of dots or stripped characters.
		if joined == "" {
			return "_"
		}
		return joined
	}
	if startsWithDigit(out) {
		out = "_" + out
	}
	return out
}

// Sanitize maps an arbitrary placeholder name onto a legal identifier.
// Illegal runes become '_', a leading digit gets a '_' prefix and an empty
// name becomes "param".
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isIdentRune(r) || r == '$' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return fallbackParam
	}
	if startsWithDigit(out) {
		out = "_" + out
	}
	return out
}

// IsLegal reports whether name can be used verbatim as a placeholder.
func IsLegal(name string) bool {
	if strings.ContainsAny(name, " #-") {
		return false
	}
	return legalRe.MatchString(name)
}

func stripSegment(seg string) string {
	var b strings.Builder
	b.Grow(len(seg))
	for _, r := range seg {
		if isIdentRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// titleCase upper-cases the first byte and lower-cases the rest. Segments
// are ASCII after stripping.
func titleCase(s string) string {
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
