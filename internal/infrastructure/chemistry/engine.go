// Package chemistry provides a lightweight SMILES engine used to accept and
// normalise inline monomer structures.  It performs syntactic checks and a
// textual normalisation; it does not perceive stereochemistry or aromaticity.
package chemistry

import (
	"regexp"
	"sort"
	"strings"

	"github.com/turtacn/helmkit/pkg/errors"
)

var reHELMRGroup = regexp.MustCompile(`_R([1-9][0-9]*)`)

// Engine is the default implementation of monomer.Chemistry.
type Engine struct{}

// NewEngine returns a SMILES engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ValidateSMILES reports whether s is syntactically valid SMILES.  Attachment
// points may be written [*:n] or _Rn, and an extended-SMILES suffix is
// ignored.
func (e *Engine) ValidateSMILES(s string) bool {
	s = normalizeMarkers(stripExtension(s))
	if s == "" || !validSMILESChars.MatchString(s) {
		return false
	}
	if !checkParenthesesBalance(s) || !checkBracketBalance(s) || !checkRingClosures(s) || !checkBonds(s) {
		return false
	}
	n, ok := checkSMILESAtoms(s)
	return ok && n > 0
}

// CanonicalizeSMILES returns a normal form of s: attachment markers rewritten
// to [*:n], explicit single bonds dropped and disconnected components sorted.
func (e *Engine) CanonicalizeSMILES(s string) (string, error) {
	if !e.ValidateSMILES(s) {
		return "", errors.New(errors.ErrCodeInvalidSMILES, "invalid SMILES").WithDetailf("smiles=%q", s)
	}
	s = dropSingleBonds(normalizeMarkers(stripExtension(s)))
	parts := strings.Split(s, ".")
	sort.Strings(parts)
	return strings.Join(parts, "."), nil
}

func normalizeMarkers(s string) string {
	return reHELMRGroup.ReplaceAllString(s, "[*:$1]")
}

// dropSingleBonds removes '-' bond symbols outside bracket atoms, where they
// are always redundant.
func dropSingleBonds(s string) string {
	var sb strings.Builder
	inBracket := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '[':
			inBracket = true
		case ']':
			inBracket = false
		case '-':
			if !inBracket {
				continue
			}
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}
