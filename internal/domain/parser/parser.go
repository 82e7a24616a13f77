// Package parser turns HELM1 and HELM2 strings into notation.Notation values.
//
// The parser checks grammar only.  Semantic checks (monomer legality,
// attachment usage, id uniqueness) belong to the validation package.
package parser

import (
	"strings"

	"github.com/turtacn/helmkit/internal/domain/notation"
)

// Version identifies the HELM dialect of an input string.
type Version int

const (
	VersionUnknown Version = iota
	// VersionHELM1 is polymers$connections$hbonds$annotations$.
	VersionHELM1
	// VersionHELM2 is polymers$connections$groupings$annotations$V2.0.
	VersionHELM2
	// VersionPolymersOnly is a bare polymer section without any "$".
	VersionPolymersOnly
)

func (v Version) String() string {
	switch v {
	case VersionHELM1:
		return "HELM1"
	case VersionHELM2:
		return "HELM2"
	case VersionPolymersOnly:
		return "polymers-only"
	default:
		return "unknown"
	}
}

// Detect reports the dialect of s without parsing its sections.
func Detect(s string) Version {
	sections, err := splitTopLevel(strings.TrimSpace(s), "$")
	if err != nil {
		return VersionUnknown
	}
	return versionOf(sections)
}

func versionOf(sections []string) Version {
	switch {
	case len(sections) == 1:
		return VersionPolymersOnly
	case len(sections) == 5 && sections[4] == notation.HELM2Version:
		return VersionHELM2
	case len(sections) == 5 && sections[4] == "":
		return VersionHELM1
	}
	return VersionUnknown
}

// Default expansion bounds used by Parse.
const (
	DefaultMaxRepeat = 10000
	DefaultMaxUnits  = 100000
)

// Limits bounds how far a notation may expand once repeat counts and lists
// are flattened.  Zero fields take the defaults.
type Limits struct {
	// MaxRepeat is the largest accepted 'n' repeat count on one element.
	MaxRepeat int
	// MaxUnits is the largest total number of unit positions across all
	// polymers of one notation.
	MaxUnits int
}

func (l Limits) withDefaults() Limits {
	if l.MaxRepeat <= 0 {
		l.MaxRepeat = DefaultMaxRepeat
	}
	if l.MaxUnits <= 0 {
		l.MaxUnits = DefaultMaxUnits
	}
	return l
}

// Parse parses a HELM string with the default Limits.  HELM1 hydrogen bonds
// are folded into the connection list, so the result is always in the HELM2
// model.
func Parse(s string) (*notation.Notation, error) {
	return ParseWithLimits(s, Limits{})
}

// ParseWithLimits is Parse with explicit expansion bounds.  Input exceeding
// them fails with ErrCodeParseFailed.
func ParseWithLimits(s string, lim Limits) (*notation.Notation, error) {
	lim = lim.withDefaults()
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, parseError("empty notation", "")
	}
	sections, err := splitTopLevel(s, "$")
	if err != nil {
		return nil, err
	}

	version := versionOf(sections)
	if version == VersionUnknown {
		return nil, parseError("unrecognised section layout", "sections=%d", len(sections))
	}

	n := &notation.Notation{}
	if n.Polymers, err = parsePolymers(sections[0], lim); err != nil {
		return nil, err
	}
	if version == VersionPolymersOnly {
		return n, nil
	}

	if n.Connections, err = parseConnections(sections[1]); err != nil {
		return nil, err
	}
	switch version {
	case VersionHELM2:
		if n.Groupings, err = parseGroupings(sections[2]); err != nil {
			return nil, err
		}
	case VersionHELM1:
		hbonds, err := parseConnections(sections[2])
		if err != nil {
			return nil, err
		}
		for _, h := range hbonds {
			if !h.IsPair() {
				return nil, parseError("hydrogen bond section accepts pair connections only", "connection=%s", h)
			}
		}
		n.Connections = append(n.Connections, hbonds...)
	}
	if n.Annotations, err = parseAnnotations(sections[3]); err != nil {
		return nil, err
	}
	return n, nil
}

// MustParse is Parse that panics on error.  Intended for tests.
func MustParse(s string) *notation.Notation {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

func entries(section string) ([]string, error) {
	if section == "" {
		return nil, nil
	}
	return splitTopLevel(section, "|")
}

func parsePolymers(section string, lim Limits) ([]*notation.PolymerNotation, error) {
	toks, err := entries(section)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, parseError("notation declares no polymers", "")
	}
	out := make([]*notation.PolymerNotation, 0, len(toks))
	units := 0
	for _, tok := range toks {
		p, err := parsePolymer(tok, lim)
		if err != nil {
			return nil, err
		}
		n := notation.Len(p)
		if n > lim.MaxUnits-units {
			return nil, parseError("notation expands to too many units", "polymer=%s limit=%d", p.ID, lim.MaxUnits)
		}
		units += n
		out = append(out, p)
	}
	return out, nil
}

func parsePolymer(tok string, lim Limits) (*notation.PolymerNotation, error) {
	open := strings.IndexByte(tok, '{')
	if open <= 0 {
		return nil, parseError("polymer must be written ID{...}", "polymer=%q", tok)
	}
	id, err := notation.ParsePolymerID(tok[:open])
	if err != nil {
		return nil, err
	}
	if id.IsGroup() {
		return nil, parseError("group entity declared as polymer", "polymer=%s", id)
	}
	end := matchClose(tok, open)
	if end < 0 {
		return nil, unbalanced(tok)
	}
	p := &notation.PolymerNotation{ID: id}
	if rest := tok[end+1:]; rest != "" {
		ann, ok := quoted(rest)
		if !ok {
			return nil, parseError("unexpected text after polymer", "polymer=%s text=%q", id, rest)
		}
		p.Annotation = ann
	}

	body := tok[open+1 : end]
	if body == "" {
		return nil, parseError("polymer has no elements", "polymer=%s", id)
	}
	if id.Kind == notation.KindBlob {
		p.Elements = []notation.MonomerNotation{notation.NewUnit(notation.KindBlob, body)}
		return p, nil
	}

	ep := elementParser{kind: id.Kind, maxRepeat: lim.MaxRepeat}
	elems, err := splitTopLevel(body, ".")
	if err != nil {
		return nil, err
	}
	units := 0
	for _, e := range elems {
		m, err := ep.parse(e)
		if err != nil {
			return nil, errorsWithPolymer(err, id)
		}
		n := notation.ElementLen(m)
		if n > lim.MaxUnits-units {
			return nil, parseError("polymer expands to too many units", "polymer=%s limit=%d", id, lim.MaxUnits)
		}
		units += n
		p.Elements = append(p.Elements, m)
	}
	return p, nil
}

func quoted(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && !strings.Contains(s[1:len(s)-1], `"`) {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// stripAnnotation removes a trailing "..." annotation.
func stripAnnotation(s string) (string, string) {
	if !strings.HasSuffix(s, `"`) || len(s) < 2 {
		return s, ""
	}
	i := strings.LastIndexByte(s[:len(s)-1], '"')
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1 : len(s)-1]
}

func parseConnections(section string) ([]notation.ConnectionNotation, error) {
	toks, err := entries(section)
	if err != nil {
		return nil, err
	}
	out := make([]notation.ConnectionNotation, 0, len(toks))
	for _, tok := range toks {
		c, err := parseConnection(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseConnection(tok string) (notation.ConnectionNotation, error) {
	var c notation.ConnectionNotation
	body, ann := stripAnnotation(tok)
	c.Annotation = ann

	parts, err := splitTopLevel(body, ",")
	if err != nil {
		return c, err
	}
	if len(parts) != 3 {
		return c, parseError("connection must be SOURCE,TARGET,UNIT:RGROUP-UNIT:RGROUP", "connection=%q", tok)
	}
	if c.SourceID, err = notation.ParsePolymerID(parts[0]); err != nil {
		return c, err
	}
	if c.TargetID, err = notation.ParsePolymerID(parts[1]); err != nil {
		return c, err
	}

	ends, err := splitTopLevel(parts[2], "-")
	if err != nil {
		return c, err
	}
	if len(ends) != 2 {
		return c, parseError("connection must have exactly two endpoints", "connection=%q", tok)
	}
	var ok bool
	if c.SourceUnit, c.SourceRGroup, ok = parseEndpoint(ends[0]); !ok {
		return c, parseError("malformed connection endpoint", "connection=%q endpoint=%q", tok, ends[0])
	}
	if c.TargetUnit, c.TargetRGroup, ok = parseEndpoint(ends[1]); !ok {
		return c, parseError("malformed connection endpoint", "connection=%q endpoint=%q", tok, ends[1])
	}
	return c, nil
}

func parseEndpoint(s string) (unit, rgroup string, ok bool) {
	unit, rgroup, found := cutLastTopLevel(s, ':')
	if !found || unit == "" || rgroup == "" {
		return "", "", false
	}
	if rgroup != notation.Wildcard && rgroup != notation.PairLabel && !notation.IsRGroupLabel(rgroup) {
		return "", "", false
	}
	return unit, rgroup, true
}

func parseGroupings(section string) ([]notation.GroupingNotation, error) {
	toks, err := entries(section)
	if err != nil {
		return nil, err
	}
	out := make([]notation.GroupingNotation, 0, len(toks))
	for _, tok := range toks {
		g, err := parseGrouping(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func parseGrouping(tok string) (notation.GroupingNotation, error) {
	var g notation.GroupingNotation
	open := strings.IndexByte(tok, '(')
	if open <= 0 || matchClose(tok, open) != len(tok)-1 {
		return g, parseError("grouping must be written ID(member+member)", "grouping=%q", tok)
	}
	id, err := notation.ParsePolymerID(tok[:open])
	if err != nil {
		return g, err
	}
	if !id.IsGroup() {
		return g, parseError("grouping id must be a group entity", "grouping=%s", id)
	}
	g.ID = id

	inner := tok[open+1 : len(tok)-1]
	members, kind, err := splitAlternatives(inner)
	if err != nil {
		return g, err
	}
	g.Kind = kind
	for _, m := range members {
		member := notation.GroupMember{}
		idText := m
		if before, ratio, found := cutLastTopLevel(m, ':'); found {
			idText, member.Ratio = before, ratio
		}
		if member.ID, err = notation.ParsePolymerID(idText); err != nil {
			return g, err
		}
		g.Members = append(g.Members, member)
	}
	return g, nil
}

// splitAlternatives splits a group body on "+" or ",".  A body with a single
// member is treated as a mixture.
func splitAlternatives(inner string) ([]string, notation.GroupKind, error) {
	plus, err := splitTopLevel(inner, "+")
	if err != nil {
		return nil, notation.GroupMixture, err
	}
	comma, err := splitTopLevel(inner, ",")
	if err != nil {
		return nil, notation.GroupMixture, err
	}
	if len(plus) > 1 && len(comma) > 1 {
		return nil, notation.GroupMixture, parseError("group mixes '+' and ','", "group=%q", inner)
	}
	if len(comma) > 1 {
		return comma, notation.GroupOr, nil
	}
	return plus, notation.GroupMixture, nil
}

func parseAnnotations(section string) ([]notation.AnnotationNotation, error) {
	toks, err := entries(section)
	if err != nil {
		return nil, err
	}
	out := make([]notation.AnnotationNotation, 0, len(toks))
	for _, tok := range toks {
		a := notation.AnnotationNotation{Text: tok}
		if open := strings.IndexByte(tok, '{'); open > 0 && matchClose(tok, open) == len(tok)-1 {
			if id, err := notation.ParsePolymerID(tok[:open]); err == nil {
				a.Target = &id
				a.Text = tok[open+1 : len(tok)-1]
			}
		}
		out = append(out, a)
	}
	return out, nil
}
