package canonical

import (
	"strings"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// elementRenderer writes unambiguous polymer elements with repeat counts
// expanded.  With a resolver, inline SMILES monomers are rewritten to their
// canonical SMILES and annotations are dropped; without one, elements keep
// their annotations and are written as parsed.
type elementRenderer struct {
	resolver *monomer.Resolver
}

func (r elementRenderer) polymer(p *notation.PolymerNotation) (string, error) {
	var parts []string
	for _, e := range p.Elements {
		s, err := r.element(e)
		if err != nil {
			return "", err
		}
		for k := 0; k < e.Occurrences(); k++ {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "."), nil
}

// element renders one occurrence of e.
func (r elementRenderer) element(e notation.MonomerNotation) (string, error) {
	switch v := e.(type) {
	case *notation.Unit:
		s, err := r.unit(v)
		if err != nil {
			return "", err
		}
		return s + r.annotation(v.Annotation), nil
	case *notation.RNAUnit:
		var sb strings.Builder
		for i, c := range []notation.MonomerNotation{v.Sugar, v.Base, v.Linker} {
			if c == nil {
				continue
			}
			s, err := r.element(c)
			if err != nil {
				return "", err
			}
			if i == 1 {
				s = "(" + s + ")"
			}
			sb.WriteString(s)
		}
		sb.WriteString(r.annotation(v.Annotation))
		return sb.String(), nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "ambiguous element has no single-molecule form").
		WithDetailf("element=%s", e)
}

func (r elementRenderer) unit(u *notation.Unit) (string, error) {
	if r.resolver == nil {
		return u.Symbol(), nil
	}
	m, err := r.resolver.ResolveUnit(u, notation.PartNone)
	if err != nil {
		return "", err
	}
	if m.AdHoc && m.CanonicalSMILES != "" {
		return "[" + m.CanonicalSMILES + "]", nil
	}
	return u.Symbol(), nil
}

func (r elementRenderer) annotation(a string) string {
	if r.resolver != nil || a == "" {
		return ""
	}
	return `"` + a + `"`
}

// assemble joins the four HELM1 sections.
func assemble(polymers, connections, hbonds, annotations []string) string {
	return strings.Join([]string{
		strings.Join(polymers, "|"),
		strings.Join(connections, "|"),
		strings.Join(hbonds, "|"),
		strings.Join(annotations, "|"),
	}, "$") + "$"
}
