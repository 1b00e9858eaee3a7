package icu

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeType identifies the kind of a parsed message node.
type NodeType int

const (
	// TextNode is literal text.
	TextNode NodeType = iota
	// ArgNode is a simple interpolation, {name}.
	ArgNode
	// PluralNode is {name, plural, cases...}.
	PluralNode
	// SelectNode is {name, select, cases...}.
	SelectNode
)

// Node is one element of a parsed message.
type Node struct {
	Type NodeType
	// Text holds the literal text of a TextNode.
	Text string
	// Name is the argument name of every non-text node, trimmed.
	Name string
	// Cases holds the clauses of plural and select nodes in source order.
	Cases []Case
	// Offset is the plural "offset:" value, if any.
	Offset int
	// Start and End are byte offsets into the source; End is exclusive, so
	// for argument nodes src[End-1] is the closing brace.
	Start, End int
}

// Case is one selector clause of a plural or select argument.
type Case struct {
	Selector string
	Message  []Node
}

// HasCase reports whether the node has a clause with the given selector.
func (n Node) HasCase(selector string) bool {
	for _, c := range n.Cases {
		if c.Selector == selector {
			return true
		}
	}
	return false
}

// Message is a parsed message.
type Message struct {
	Source string
	Nodes  []Node
}

// SyntaxError describes where and why a message failed to parse.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// Parse parses src into a message tree. The grammar covers literal text,
// {name} interpolation and the plural/select constructs; apostrophes carry
// no quoting meaning.
func Parse(src string) (*Message, error) {
	p := &parser{src: src}
	nodes, err := p.parseMessage(0)
	if err != nil {
		return nil, err
	}
	return &Message{Source: src, Nodes: nodes}, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// parseMessage reads nodes until EOF (depth 0) or the '}' closing a case
// body (depth > 0). The closing brace is left unconsumed.
func (p *parser) parseMessage(depth int) ([]Node, error) {
	var nodes []Node
	textStart := p.pos

	flush := func() {
		if p.pos > textStart {
			nodes = append(nodes, Node{
				Type:  TextNode,
				Text:  p.src[textStart:p.pos],
				Start: textStart,
				End:   p.pos,
			})
		}
	}

	for !p.eof() {
		switch p.src[p.pos] {
		case '{':
			flush()
			n, err := p.parseArgument(depth)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
			textStart = p.pos
		case '}':
			if depth == 0 {
				return nil, p.errorf("unexpected '}'")
			}
			flush()
			return nodes, nil
		default:
			p.pos++
		}
	}

	if depth > 0 {
		return nil, p.errorf("unterminated case body")
	}
	flush()
	return nodes, nil
}

func (p *parser) parseArgument(depth int) (Node, error) {
	start := p.pos
	p.pos++ // '{'

	nameStart := p.pos
	for !p.eof() && !strings.ContainsRune("{},", rune(p.src[p.pos])) {
		p.pos++
	}
	if p.eof() {
		return Node{}, p.errorf("unterminated argument")
	}
	name := strings.TrimSpace(p.src[nameStart:p.pos])
	if name == "" {
		return Node{}, p.errorf("empty argument name")
	}

	switch p.src[p.pos] {
	case '}':
		p.pos++
		return Node{Type: ArgNode, Name: name, Start: start, End: p.pos}, nil
	case '{':
		return Node{}, p.errorf("unexpected '{' in argument %q", name)
	}

	// ','
	p.pos++
	p.skipSpace()
	typeStart := p.pos
	for !p.eof() && isWordByte(p.src[p.pos]) {
		p.pos++
	}
	argType := p.src[typeStart:p.pos]

	var nodeType NodeType
	switch argType {
	case "plural":
		nodeType = PluralNode
	case "select":
		nodeType = SelectNode
	default:
		return Node{}, p.errorf("unsupported argument type %q", argType)
	}

	p.skipSpace()
	if p.eof() || p.src[p.pos] != ',' {
		return Node{}, p.errorf("expected ',' after %s", argType)
	}
	p.pos++

	n := Node{Type: nodeType, Name: name, Start: start}
	if err := p.parseCases(&n, depth); err != nil {
		return Node{}, err
	}
	n.End = p.pos
	return n, nil
}

func (p *parser) parseCases(n *Node, depth int) error {
	for {
		p.skipSpace()
		if p.eof() {
			return p.errorf("unterminated %s argument %q", typeName(n.Type), n.Name)
		}
		if p.src[p.pos] == '}' {
			if len(n.Cases) == 0 {
				return p.errorf("%s argument %q has no cases", typeName(n.Type), n.Name)
			}
			p.pos++
			return nil
		}

		selStart := p.pos
		for !p.eof() && !strings.ContainsRune("{} \t\n\r", rune(p.src[p.pos])) {
			p.pos++
		}
		selector := p.src[selStart:p.pos]
		if selector == "" {
			return p.errorf("missing selector in %q", n.Name)
		}

		if n.Type == PluralNode && len(n.Cases) == 0 && strings.HasPrefix(selector, "offset:") {
			off, err := strconv.Atoi(strings.TrimPrefix(selector, "offset:"))
			if err != nil {
				return &SyntaxError{Offset: selStart, Msg: fmt.Sprintf("invalid plural offset %q", selector)}
			}
			n.Offset = off
			continue
		}

		p.skipSpace()
		if p.eof() || p.src[p.pos] != '{' {
			return p.errorf("expected '{' after selector %q", selector)
		}
		p.pos++

		body, err := p.parseMessage(depth + 1)
		if err != nil {
			return err
		}
		p.pos++ // '}' closing the body
		n.Cases = append(n.Cases, Case{Selector: selector, Message: body})
	}
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func typeName(t NodeType) string {
	switch t {
	case PluralNode:
		return "plural"
	case SelectNode:
		return "select"
	case ArgNode:
		return "argument"
	default:
		return "text"
	}
}
