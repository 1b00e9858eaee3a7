// Package bundle assembles one language's translations into a
// translation bundle ready to be written as an ARB document.
//
// Build runs every message through the ICU analyzer, synthesizes a member
// name for its dotted key, filters and sanitizes placeholders, and folds the
// raw key → identifier mapping alongside the entries. A Bundle is never
// modified after Build returns.
package bundle

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/minios-linux/translocale/icu"
	"github.com/minios-linux/translocale/ident"
	"github.com/minios-linux/translocale/langmeta"
	"github.com/minios-linux/translocale/payload"
)

// CollisionPolicy decides what happens when two raw keys synthesize the
// same identifier.
type CollisionPolicy string

const (
	// CollisionSuffix appends the smallest free numeric suffix.
	CollisionSuffix CollisionPolicy = "suffix"
	// CollisionOverwrite lets the later entry replace the earlier one in
	// place.
	CollisionOverwrite CollisionPolicy = "overwrite"
	// CollisionFail makes Build return a *CollisionError.
	CollisionFail CollisionPolicy = "fail"
)

// ParseCollisionPolicy validates a policy name; "" selects CollisionSuffix.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(s); p {
	case "":
		return CollisionSuffix, nil
	case CollisionSuffix, CollisionOverwrite, CollisionFail:
		return p, nil
	}
	return "", fmt.Errorf("unknown collision policy %q (valid: suffix, overwrite, fail)", s)
}

// CollisionError reports two raw keys sharing an identifier.
type CollisionError struct {
	Identifier string
	First      string
	Second     string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("keys %q and %q both map to identifier %q", e.First, e.Second, e.Identifier)
}

// ErrNoLocale is returned for a language without a code.
var ErrNoLocale = errors.New("language has no code")

// PlaceholderMeta is a placeholder as written to entry metadata.
type PlaceholderMeta struct {
	Name    string
	Type    icu.ValueKind
	Example string
	Format  string
}

// Entry is one assembled message.
type Entry struct {
	Identifier   string
	Key          string
	Text         string
	Description  string
	Kind         icu.Kind
	Placeholders []PlaceholderMeta
	// Dropped lists raw placeholder names removed by the plural filter.
	Dropped []string
}

// KeyMapping pairs a raw server key with its identifier.
type KeyMapping struct {
	Key        string
	Identifier string
}

// Bundle is one language's compiled translation document.
type Bundle struct {
	Locale       string
	LanguageName string
	NativeName   string
	RTL          bool
	Entries      []Entry
	KeyMapping   []KeyMapping
	Version      string
	LastModified string
	Diagnostics  []Diagnostic
}

// Warnings counts the warning-level diagnostics.
func (b *Bundle) Warnings() int {
	n := 0
	for _, d := range b.Diagnostics {
		if d.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// Entry returns the entry with the given identifier.
func (b *Bundle) Entry(identifier string) (Entry, bool) {
	for _, e := range b.Entries {
		if e.Identifier == identifier {
			return e, true
		}
	}
	return Entry{}, false
}

type options struct {
	collision CollisionPolicy
	logger    *zap.Logger
}

// Option configures Build.
type Option func(*options)

// WithCollisionPolicy selects the identifier collision policy.
func WithCollisionPolicy(p CollisionPolicy) Option {
	return func(o *options) { o.collision = p }
}

// WithLogger logs diagnostics as they are produced.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Build assembles the bundle for lang.
func Build(lang payload.Language, meta payload.Meta, opts ...Option) (*Bundle, error) {
	o := options{collision: CollisionSuffix, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if lang.Code == "" {
		return nil, ErrNoLocale
	}

	b := &Bundle{
		Locale:       lang.Code,
		LanguageName: lang.Name,
		NativeName:   lang.NativeName,
		RTL:          lang.RTL,
		Version:      meta.Version,
		LastModified: meta.LastModified,
	}
	if b.LanguageName == "" || b.NativeName == "" {
		m := langmeta.Resolve(lang.Code)
		if b.LanguageName == "" {
			b.LanguageName = m.Name
		}
		if b.NativeName == "" {
			b.NativeName = m.Native
		}
	}

	log := o.logger.With(zap.String("locale", lang.Code))
	diag := func(d Diagnostic) {
		b.Diagnostics = append(b.Diagnostics, d)
		d.log(log)
	}

	entries, mapping, err := fold(lang.Translations, o.collision, diag)
	if err != nil {
		return nil, err
	}
	b.Entries = entries
	b.KeyMapping = mapping
	return b, nil
}

// fold assembles entries and the key mapping in translation order.
func fold(trs payload.Translations, policy CollisionPolicy, diag func(Diagnostic)) ([]Entry, []KeyMapping, error) {
	entries := make([]Entry, 0, len(trs))
	mapping := make([]KeyMapping, 0, len(trs))
	byIdent := make(map[string]int, len(trs))
	byKey := make(map[string]int, len(trs))

	for _, tr := range trs {
		e := assemble(tr, diag)

		// A repeated raw key replaces its earlier text but keeps the
		// earlier position, identifier and single mapping row.
		if idx, seen := byKey[tr.Key]; seen {
			diag(Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeDuplicateKey,
				Key:      tr.Key,
				Message:  "key appears more than once, keeping the last text",
			})
			e.Identifier = entries[idx].Identifier
			entries[idx] = e
			continue
		}

		if idx, taken := byIdent[e.Identifier]; taken {
			first := entries[idx].Key
			switch policy {
			case CollisionFail:
				return nil, nil, &CollisionError{Identifier: e.Identifier, First: first, Second: tr.Key}
			case CollisionOverwrite:
				diag(collisionDiagnostic(tr.Key, first, e.Identifier, "overwritten"))
				delete(byKey, first)
				byKey[tr.Key] = idx
				entries[idx] = e
				mapping = append(mapping, KeyMapping{Key: tr.Key, Identifier: e.Identifier})
				continue
			default:
				renamed := freeIdentifier(e.Identifier, byIdent)
				diag(collisionDiagnostic(tr.Key, first, e.Identifier, "renamed to "+renamed))
				e.Identifier = renamed
			}
		}

		byIdent[e.Identifier] = len(entries)
		byKey[tr.Key] = len(entries)
		entries = append(entries, e)
		mapping = append(mapping, KeyMapping{Key: tr.Key, Identifier: e.Identifier})
	}
	return entries, mapping, nil
}

func freeIdentifier(base string, used map[string]int) string {
	for n := 2; ; n++ {
		candidate := base + strconv.Itoa(n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

// assemble analyzes one translation and builds its entry.
func assemble(tr payload.Translation, diag func(Diagnostic)) Entry {
	a := icu.Analyze(tr.Text)
	e := Entry{
		Identifier:  ident.Synthesize(tr.Key),
		Key:         tr.Key,
		Text:        a.Text,
		Description: "Translation for " + tr.Key,
		Kind:        a.Kind,
	}

	switch a.Repair.Status {
	case icu.Repaired:
		diag(Diagnostic{Severity: SeverityInfo, Code: CodeRepaired, Key: tr.Key, Message: a.Repair.Reason})
	case icu.Unrepairable:
		diag(Diagnostic{Severity: SeverityWarning, Code: CodeDegraded, Key: tr.Key, Message: a.Repair.Reason})
	}

	phs := a.Placeholders
	if a.Kind == icu.Plural {
		var dropped []string
		phs, dropped = FilterPlural(phs)
		if len(dropped) > 0 {
			e.Dropped = dropped
			diag(Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeDroppedPlaceholders,
				Key:      tr.Key,
				Message:  fmt.Sprintf("dropped placeholders %q from plural message", dropped),
			})
		}
	}
	e.Placeholders = placeholderMeta(phs)
	return e
}

// FilterPlural keeps the integer control variable and text placeholders
// whose raw name is already a legal identifier. It returns the kept
// placeholders and the names of the dropped ones.
func FilterPlural(phs []icu.Placeholder) (kept []icu.Placeholder, dropped []string) {
	for _, p := range phs {
		if p.Kind == icu.Integer || ident.IsLegal(p.Name) {
			kept = append(kept, p)
			continue
		}
		dropped = append(dropped, p.Name)
	}
	return kept, dropped
}

// placeholderMeta sanitizes names; a later placeholder with the same
// sanitized name replaces the earlier record in place.
func placeholderMeta(phs []icu.Placeholder) []PlaceholderMeta {
	var out []PlaceholderMeta
	index := make(map[string]int, len(phs))
	for _, p := range phs {
		pm := PlaceholderMeta{
			Name:    ident.Sanitize(p.Name),
			Type:    p.Kind,
			Example: p.Example,
			Format:  p.Format,
		}
		if i, ok := index[pm.Name]; ok {
			out[i] = pm
			continue
		}
		index[pm.Name] = len(out)
		out = append(out, pm)
	}
	return out
}
