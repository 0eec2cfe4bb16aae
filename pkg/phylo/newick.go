package phylo

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedNewick is returned for any syntax error in a newick string.
var ErrMalformedNewick = errors.New("malformed newick")

// NewTreeFromNewick reads a single newick tree description and returns the
// finalized tree with map coordinates assigned. The topology must be
// strictly binary; branch lengths default to zero when omitted.
func NewTreeFromNewick(r io.Reader) (*Tree, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read newick input: %w", err)
	}

	return ParseNewick(string(raw))
}

// ParseNewick parses a newick string such as "((A:1.0,B:2.0):0.5,C:3.0);".
func ParseNewick(s string) (*Tree, error) {
	p := &newickParser{src: s}

	root, err := p.parseSubtree()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if !p.consume(';') {
		return nil, fmt.Errorf("%w: missing terminating ';' at offset %d", ErrMalformedNewick, p.pos)
	}

	p.skipSpace()

	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w: trailing input at offset %d", ErrMalformedNewick, p.pos)
	}

	return newTree(root)
}

type newickParser struct {
	src string
	pos int
}

func (p *newickParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *newickParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++

		return true
	}

	return false
}

// parseSubtree parses either an internal node "(left,right)label:length" or
// a leaf "label:length".
func (p *newickParser) parseSubtree() (*Node, error) {
	p.skipSpace()

	n := &Node{}

	if p.consume('(') {
		left, err := p.parseSubtree()
		if err != nil {
			return nil, err
		}

		p.skipSpace()

		if !p.consume(',') {
			return nil, fmt.Errorf("%w: expected ',' at offset %d", ErrMalformedNewick, p.pos)
		}

		right, err := p.parseSubtree()
		if err != nil {
			return nil, err
		}

		p.skipSpace()

		if !p.consume(')') {
			return nil, fmt.Errorf("%w: expected ')' at offset %d (only binary trees are supported)",
				ErrMalformedNewick, p.pos)
		}

		left.Anc = n
		right.Anc = n
		n.Left = left
		n.Right = right
	}

	n.Name = p.parseLabel()

	if n.Left == nil && n.Name == "" {
		return nil, fmt.Errorf("%w: unnamed leaf at offset %d", ErrMalformedNewick, p.pos)
	}

	p.skipSpace()

	if p.consume(':') {
		length, err := p.parseLength()
		if err != nil {
			return nil, err
		}

		n.Length = length
	}

	return n, nil
}

func (p *newickParser) parseLabel() string {
	p.skipSpace()

	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("(),:; \t\n\r", rune(p.src[p.pos])) {
		p.pos++
	}

	return p.src[start:p.pos]
}

func (p *newickParser) parseLength() (float64, error) {
	p.skipSpace()

	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("(),:; \t\n\r", rune(p.src[p.pos])) {
		p.pos++
	}

	length, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad branch length %q at offset %d", ErrMalformedNewick, p.src[start:p.pos], start)
	}

	if length < 0 {
		return 0, fmt.Errorf("%w: negative branch length %q", ErrMalformedNewick, p.src[start:p.pos])
	}

	return length, nil
}
