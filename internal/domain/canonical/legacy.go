package canonical

import (
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// LegacyProjector downcasts notations to the single-line HELM1 layout.  Ids
// and element/connection order are preserved.
type LegacyProjector struct {
	render elementRenderer
}

// NewLegacyProjector returns a LegacyProjector.
func NewLegacyProjector() *LegacyProjector {
	return &LegacyProjector{}
}

// ToLegacyForm renders n as polymers$connections$hydrogenbonds$annotations$.
// Notations using HELM2-only features fail with ErrCodeHasAmbiguity.
func (l *LegacyProjector) ToLegacyForm(n *notation.Notation) (string, error) {
	if n == nil || len(n.Polymers) == 0 {
		return "", errors.New(errors.ErrCodeHasAmbiguity, "notation declares no polymers")
	}
	if n.HasAmbiguity() {
		return "", errors.New(errors.ErrCodeHasAmbiguity, "notation uses features with no legacy form").
			WithDetailf("notation=%s", n)
	}

	polymers := make([]string, 0, len(n.Polymers))
	for _, p := range n.Polymers {
		body, err := l.render.polymer(p)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeHasAmbiguity, "cannot render polymer").
				WithDetailf("polymer=%s", p.ID)
		}
		s := p.ID.String() + "{" + body + "}"
		if p.Annotation != "" {
			s += `"` + p.Annotation + `"`
		}
		polymers = append(polymers, s)
	}

	var bonds, hbonds []string
	for _, c := range n.Connections {
		if c.IsPair() {
			hbonds = append(hbonds, c.String())
			continue
		}
		bonds = append(bonds, c.String())
	}

	annotations := make([]string, 0, len(n.Annotations))
	for _, a := range n.Annotations {
		annotations = append(annotations, a.String())
	}
	return assemble(polymers, bonds, hbonds, annotations), nil
}
