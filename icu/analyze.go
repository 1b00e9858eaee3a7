// Package icu analyzes translation strings written in the subset of ICU
// message format understood by the Flutter localization generator: simple
// {name} interpolation plus the plural and select constructs.
//
// Analyze classifies a message, extracts its placeholders and, when the
// controlling plural/select expression lacks the mandatory "other" clause,
// splices one in. Messages that cannot be parsed are never rejected: they
// come back verbatim with a best-effort placeholder list and an
// Unrepairable repair status so the caller can report them.
package icu

import (
	"regexp"
	"strings"
)

// Kind classifies a message by its controlling construct.
type Kind int

const (
	Simple Kind = iota
	Plural
	Select
)

func (k Kind) String() string {
	switch k {
	case Plural:
		return "plural"
	case Select:
		return "select"
	default:
		return "simple"
	}
}

// ValueKind is the placeholder type as written to ARB metadata.
type ValueKind string

const (
	Text    ValueKind = "String"
	Integer ValueKind = "int"
)

// Placeholder is a variable referenced by a message. Name is the token as
// written in the message and may not be a legal identifier.
type Placeholder struct {
	Name    string
	Kind    ValueKind
	Example string
	// Format is empty when the placeholder has no format.
	Format string
}

// RepairStatus tells what happened to the default-case check.
type RepairStatus int

const (
	Unchanged RepairStatus = iota
	Repaired
	Unrepairable
)

func (s RepairStatus) String() string {
	switch s {
	case Repaired:
		return "repaired"
	case Unrepairable:
		return "unrepairable"
	default:
		return "unchanged"
	}
}

// Repair is the outcome of analyzing a message's structure.
type Repair struct {
	Status RepairStatus
	// Reason explains a Repaired or Unrepairable status.
	Reason string
}

// Analysis is the result of Analyze.
type Analysis struct {
	// Text differs from the input only when Repair.Status is Repaired.
	Text         string
	Placeholders []Placeholder
	Kind         Kind
	Repair       Repair
}

// Degraded reports whether the message could not be parsed.
func (a Analysis) Degraded() bool { return a.Repair.Status == Unrepairable }

const (
	pluralExample = "42"
	pluralFormat  = "compact"
	selectDefault = "Default"
)

// Analyze classifies msg and extracts its placeholders. The first top-level
// plural or select argument is the controlling expression; without one the
// message is Simple.
func Analyze(msg string) Analysis {
	m, err := Parse(msg)
	if err != nil {
		return degrade(msg, err)
	}

	ctl := m.controlling()
	if ctl == nil {
		var phs []Placeholder
		walkArgs(m.Nodes, func(name string) {
			phs = append(phs, textPlaceholder(name))
		})
		return Analysis{Text: msg, Placeholders: phs, Kind: Simple}
	}

	a := Analysis{Text: msg}
	var filler string
	switch ctl.Type {
	case PluralNode:
		a.Kind = Plural
		a.Placeholders = append(a.Placeholders, Placeholder{
			Name:    ctl.Name,
			Kind:    Integer,
			Example: pluralExample,
			Format:  pluralFormat,
		})
		filler = ctl.Name
	case SelectNode:
		a.Kind = Select
		a.Placeholders = append(a.Placeholders, textPlaceholder(ctl.Name))
		filler = selectDefault
	}

	if !ctl.HasCase("other") {
		a.Text = spliceOther(msg, ctl.End-1, filler)
		a.Repair = Repair{Status: Repaired, Reason: "added missing other clause to " + ctl.Name}
	}

	seen := map[string]bool{ctl.Name: true}
	walkArgs(m.Nodes, func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		a.Placeholders = append(a.Placeholders, textPlaceholder(name))
	})
	return a
}

// controlling returns the first top-level plural or select node.
func (m *Message) controlling() *Node {
	for i := range m.Nodes {
		switch m.Nodes[i].Type {
		case PluralNode, SelectNode:
			return &m.Nodes[i]
		}
	}
	return nil
}

// walkArgs visits every simple {name} argument in document order,
// descending into case bodies.
func walkArgs(nodes []Node, fn func(name string)) {
	for _, n := range nodes {
		switch n.Type {
		case ArgNode:
			fn(n.Name)
		case PluralNode, SelectNode:
			for _, c := range n.Cases {
				walkArgs(c.Message, fn)
			}
		}
	}
}

// spliceOther inserts an other clause right before the closing brace at
// closeIdx.
func spliceOther(msg string, closeIdx int, filler string) string {
	clause := "other{" + filler + "}"
	if closeIdx > 0 && !isSpace(msg[closeIdx-1]) {
		clause = " " + clause
	}
	return msg[:closeIdx] + clause + msg[closeIdx:]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func textPlaceholder(name string) Placeholder {
	return Placeholder{Name: name, Kind: Text, Example: name}
}

// ---------------------------------------------------------------------------
// Degraded analysis
// ---------------------------------------------------------------------------

var (
	headerRe = regexp.MustCompile(`\{\s*([^{},\s]+)\s*,\s*(plural|select)\s*,`)
	tokenRe  = regexp.MustCompile(`\{([^{},]+)\}`)
)

// degrade returns msg verbatim with whatever placeholders a lenient scan
// can find. The kind follows the literal "plural," / "select," tokens.
func degrade(msg string, cause error) Analysis {
	a := Analysis{
		Text:   msg,
		Kind:   Simple,
		Repair: Repair{Status: Unrepairable, Reason: cause.Error()},
	}
	switch {
	case strings.Contains(msg, "plural,"):
		a.Kind = Plural
	case strings.Contains(msg, "select,"):
		a.Kind = Select
	}

	var control string
	if a.Kind != Simple {
		want := "plural"
		if a.Kind == Select {
			want = "select"
		}
		for _, m := range headerRe.FindAllStringSubmatch(msg, -1) {
			if m[2] == want {
				control = m[1]
				break
			}
		}
		if control != "" {
			if a.Kind == Plural {
				a.Placeholders = append(a.Placeholders, Placeholder{
					Name: control, Kind: Integer, Example: pluralExample, Format: pluralFormat,
				})
			} else {
				a.Placeholders = append(a.Placeholders, textPlaceholder(control))
			}
		}
	}

	seen := map[string]bool{}
	if control != "" {
		seen[control] = true
	}
	for _, m := range tokenRe.FindAllStringSubmatch(msg, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if a.Kind != Simple {
			if seen[name] {
				continue
			}
			seen[name] = true
		}
		a.Placeholders = append(a.Placeholders, textPlaceholder(name))
	}
	return a
}
