package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// elementParser parses the elements of one polymer.  Every element inherits
// the polymer's kind.
type elementParser struct {
	kind      notation.Kind
	maxRepeat int
}

func (p elementParser) parse(tok string) (notation.MonomerNotation, error) {
	if tok == "" {
		return nil, parseError("empty element", "")
	}
	body, annotation := stripAnnotation(tok)
	body, count, err := stripCount(body, p.maxRepeat)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, parseError("empty element", "element=%q", tok)
	}

	var m notation.MonomerNotation
	if inner, ok := enclosed(body, '('); ok {
		m, err = p.parseParen(inner)
	} else if p.kind == notation.KindRNA {
		m, err = p.parseRNAUnit(body)
	} else {
		m, err = p.parseUnit(body)
	}
	if err != nil {
		return nil, err
	}

	switch v := m.(type) {
	case *notation.Unit:
		v.Count, v.Annotation = count, annotation
	case *notation.List:
		v.Count, v.Annotation = count, annotation
	case *notation.Group:
		v.Count, v.Annotation = count, annotation
	case *notation.RNAUnit:
		v.Count, v.Annotation = count, annotation
	}
	return m, nil
}

// stripCount removes a trailing 'n' repeat count.  Counts above limit are
// rejected.
func stripCount(s string, limit int) (string, int, error) {
	if !strings.HasSuffix(s, "'") || len(s) < 2 {
		return s, 1, nil
	}
	i := strings.LastIndexByte(s[:len(s)-1], '\'')
	if i < 0 {
		return s, 1, parseError("unterminated repeat count", "element=%q", s)
	}
	n, err := strconv.Atoi(s[i+1 : len(s)-1])
	if err != nil || n < 1 {
		return s, 1, parseError("repeat count must be a positive integer", "element=%q", s)
	}
	if n > limit {
		return s, 1, parseError("repeat count too large", "element=%q limit=%d", s, limit)
	}
	return s[:i], n, nil
}

// parseParen parses a parenthesised group "(A+G)", "(A,G)" or list "(A.G)".
func (p elementParser) parseParen(inner string) (notation.MonomerNotation, error) {
	alts, kind, err := splitAlternatives(inner)
	if err != nil {
		return nil, err
	}
	if len(alts) > 1 {
		g := &notation.Group{Kind: kind, Type: p.kind}
		for _, a := range alts {
			body, ratio := a, ""
			if before, after, found := cutLastTopLevel(a, ':'); found {
				body, ratio = before, after
			}
			m, err := p.parse(body)
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, notation.GroupElement{Notation: m, Ratio: ratio})
		}
		return g, nil
	}

	items, err := splitTopLevel(inner, ".")
	if err != nil {
		return nil, err
	}
	l := &notation.List{Type: p.kind}
	for _, it := range items {
		m, err := p.parse(it)
		if err != nil {
			return nil, err
		}
		l.Elements = append(l.Elements, m)
	}
	return l, nil
}

func (p elementParser) parseUnit(body string) (*notation.Unit, error) {
	if inner, ok := enclosed(body, '['); ok {
		if inner == "" {
			return nil, parseError("empty bracketed monomer", "")
		}
		return notation.NewUnit(p.kind, inner), nil
	}
	if strings.ContainsAny(body, "()[]{}+,:") {
		return nil, parseError("monomer id must be bracketed", "element=%q", body)
	}
	return notation.NewUnit(p.kind, body), nil
}

// parseRNAUnit parses sugar(base)linker, where base and linker are optional.
func (p elementParser) parseRNAUnit(body string) (*notation.RNAUnit, error) {
	u := &notation.RNAUnit{Type: notation.KindRNA}

	sugar, rest, err := p.takeMonomer(body)
	if err != nil {
		return nil, err
	}
	u.Sugar = sugar

	if strings.HasPrefix(rest, "(") {
		end := matchClose(rest, 0)
		if end < 0 {
			return nil, unbalanced(body)
		}
		if u.Base, err = p.parseBase(rest[1:end]); err != nil {
			return nil, err
		}
		rest = rest[end+1:]
	}

	if rest != "" {
		linker, tail, err := p.takeMonomer(rest)
		if err != nil {
			return nil, err
		}
		if tail != "" {
			return nil, parseError("unexpected text in nucleotide", "element=%q", body)
		}
		u.Linker = linker
	}
	return u, nil
}

func (p elementParser) parseBase(content string) (notation.MonomerNotation, error) {
	alts, _, err := splitAlternatives(content)
	if err != nil {
		return nil, err
	}
	if len(alts) > 1 {
		return p.parseParen(content)
	}
	return p.parseUnit(content)
}

// takeMonomer reads one bracketed id or a single character.
func (p elementParser) takeMonomer(s string) (*notation.Unit, string, error) {
	if s == "" {
		return nil, "", parseError("missing monomer", "")
	}
	if s[0] == '[' {
		end := matchClose(s, 0)
		if end < 0 {
			return nil, "", unbalanced(s)
		}
		u, err := p.parseUnit(s[:end+1])
		return u, s[end+1:], err
	}
	r, size := utf8.DecodeRuneInString(s)
	if strings.ContainsRune("()]{}+,:", r) {
		return nil, "", parseError("unexpected character in nucleotide", "text=%q", s)
	}
	return notation.NewUnit(p.kind, s[:size]), s[size:], nil
}

func errorsWithPolymer(err error, id notation.PolymerID) error {
	return errors.Wrap(err, errors.CodeUnknown, "invalid element in "+id.String())
}
