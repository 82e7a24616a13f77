// Package canonical computes the order-independent canonical form of a HELM
// notation and projects notations to the legacy HELM1 layout.
package canonical

import (
	"sort"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// DefaultMaxCandidates bounds the renaming search when Options leaves it
// unset.
const DefaultMaxCandidates = 10000

// Options tunes the canonicalizer.
type Options struct {
	// MaxCandidates is the largest number of candidate renamings tried
	// before failing with ErrCodeTooManyCandidates.
	MaxCandidates int
}

// Canonicalizer computes canonical HELM strings.
type Canonicalizer struct {
	resolver *monomer.Resolver
	opts     Options
}

// NewCanonicalizer returns a Canonicalizer reading monomers from db.  chem
// normalises inline SMILES so that equivalent ad hoc monomers compare equal.
func NewCanonicalizer(db monomer.Database, chem monomer.Chemistry, opts Options) *Canonicalizer {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	return &Canonicalizer{resolver: monomer.NewResolver(db, chem), opts: opts}
}

// Result is a canonical form with search statistics.
type Result struct {
	HELM       string
	Candidates int
}

// labelGroup is a set of polymers with identical rendered content.  Any
// bijection of members onto slots is a candidate renaming.
type labelGroup struct {
	label   string
	members []notation.PolymerID
	slots   []notation.PolymerID
}

var kindOrder = []notation.Kind{notation.KindPeptide, notation.KindRNA, notation.KindChem}

// Canonicalize returns the canonical HELM1-layout string of n.
func (c *Canonicalizer) Canonicalize(n *notation.Notation) (string, error) {
	res, err := c.CanonicalizeResult(n)
	if err != nil {
		return "", err
	}
	return res.HELM, nil
}

// CanonicalizeResult is Canonicalize that also reports how many candidate
// renamings were evaluated.
func (c *Canonicalizer) CanonicalizeResult(n *notation.Notation) (*Result, error) {
	if err := checkSupported(n); err != nil {
		return nil, err
	}

	byLabel := make(map[notation.Kind]map[string][]notation.PolymerID)
	render := elementRenderer{resolver: c.resolver}
	for _, p := range n.Polymers {
		body, err := render.polymer(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "cannot render polymer").
				WithDetailf("polymer=%s", p.ID)
		}
		if byLabel[p.ID.Kind] == nil {
			byLabel[p.ID.Kind] = make(map[string][]notation.PolymerID)
		}
		byLabel[p.ID.Kind][body] = append(byLabel[p.ID.Kind][body], p.ID)
	}

	groups, polymers := assignSlots(byLabel)

	limit := c.opts.MaxCandidates
	total := 1
	for _, g := range groups {
		f, ok := factorial(len(g.members), limit)
		if !ok || total > limit/f {
			return nil, errors.New(errors.ErrCodeTooManyCandidates, "too many interchangeable polymers").
				WithDetailf("limit=%d", limit)
		}
		total *= f
	}

	polymerSection := make([]string, len(polymers))
	for i, slot := range polymers {
		polymerSection[i] = slot.id.String() + "{" + slot.body + "}"
	}

	best := ""
	count := 0
	mapping := make(map[notation.PolymerID]notation.PolymerID, len(n.Polymers))
	var search func(gi int)
	search = func(gi int) {
		if gi == len(groups) {
			count++
			candidate := renderCandidate(polymerSection, n.Connections, mapping)
			if best == "" || candidate < best {
				best = candidate
			}
			return
		}
		g := groups[gi]
		permute(len(g.members), func(perm []int) {
			for i, p := range perm {
				mapping[g.members[p]] = g.slots[i]
			}
			search(gi + 1)
		})
	}
	search(0)

	return &Result{HELM: best, Candidates: count}, nil
}

// Equal reports whether a and b have the same canonical form.
func (c *Canonicalizer) Equal(a, b *notation.Notation) (bool, error) {
	ca, err := c.Canonicalize(a)
	if err != nil {
		return false, err
	}
	cb, err := c.Canonicalize(b)
	if err != nil {
		return false, err
	}
	return ca == cb, nil
}

func checkSupported(n *notation.Notation) error {
	if n == nil || len(n.Polymers) == 0 {
		return errors.New(errors.ErrCodeUnsupported, "notation declares no polymers")
	}
	if len(n.Groupings) > 0 {
		return errors.New(errors.ErrCodeUnsupported, "groupings have no canonical form")
	}
	for _, p := range n.Polymers {
		if p.ID.Kind == notation.KindBlob {
			return errors.New(errors.ErrCodeUnsupported, "blob polymers have no canonical form").
				WithDetailf("polymer=%s", p.ID)
		}
		for i, e := range p.Elements {
			if notation.IsAmbiguous(e) {
				return errors.New(errors.ErrCodeUnsupported, "monomer groups and lists have no canonical form").
					WithDetailf("polymer=%s element=%d", p.ID, i+1)
			}
		}
	}
	for i, conn := range n.Connections {
		if !conn.IsSpecific() {
			return errors.New(errors.ErrCodeUnsupported, "ambiguous connections have no canonical form").
				WithDetailf("connection=%d", i+1)
		}
	}
	return nil
}

type slot struct {
	id   notation.PolymerID
	body string
}

// assignSlots numbers label groups per polymer kind in label order.  The
// returned slots are in output order.
func assignSlots(byLabel map[notation.Kind]map[string][]notation.PolymerID) ([]labelGroup, []slot) {
	var (
		groups []labelGroup
		slots  []slot
	)
	for _, kind := range kindOrder {
		labels := make([]string, 0, len(byLabel[kind]))
		for l := range byLabel[kind] {
			labels = append(labels, l)
		}
		sort.Strings(labels)

		next := 1
		for _, l := range labels {
			members := append([]notation.PolymerID(nil), byLabel[kind][l]...)
			sort.Slice(members, func(i, j int) bool { return members[i].Index < members[j].Index })
			g := labelGroup{label: l, members: members}
			for range members {
				id := notation.NewPolymerID(kind, next)
				next++
				g.slots = append(g.slots, id)
				slots = append(slots, slot{id: id, body: l})
			}
			groups = append(groups, g)
		}
	}
	return groups, slots
}

func renderCandidate(polymers []string, conns []notation.ConnectionNotation, mapping map[notation.PolymerID]notation.PolymerID) string {
	idOf := func(id notation.PolymerID) string { return mapping[id].String() }
	var bonds, hbonds []string
	for _, c := range conns {
		bare := c
		bare.Annotation = ""
		fwd := bare.Render(idOf)
		if rev := bare.Reversed().Render(idOf); rev < fwd {
			fwd = rev
		}
		if c.IsPair() {
			hbonds = append(hbonds, fwd)
		} else {
			bonds = append(bonds, fwd)
		}
	}
	sort.Strings(bonds)
	sort.Strings(hbonds)
	return assemble(polymers, bonds, hbonds, nil)
}

// factorial returns n!, or false once it would exceed limit.
func factorial(n, limit int) (int, bool) {
	f := 1
	for i := 2; i <= n; i++ {
		if f > limit/i {
			return 0, false
		}
		f *= i
	}
	return f, true
}

// permute calls fn with every permutation of 0..n-1 in lexicographic order.
// fn must not retain the slice.
func permute(n int, fn func([]int)) {
	perm := make([]int, n)
	used := make([]bool, n)
	var rec func(k int)
	rec = func(k int) {
		if k == n {
			fn(perm)
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			perm[k] = i
			rec(k + 1)
			used[i] = false
		}
	}
	rec(0)
}
