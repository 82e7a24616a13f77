package canonical

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/parser"
	"github.com/turtacn/helmkit/internal/infrastructure/chemistry"
	"github.com/turtacn/helmkit/pkg/errors"
)

func newCanonicalizer(opts Options) *Canonicalizer {
	return NewCanonicalizer(monomer.NewSession(monomer.NewStandardStore()), chemistry.NewEngine(), opts)
}

func canonicalize(t *testing.T, helm string) (string, error) {
	t.Helper()
	n, err := parser.Parse(helm)
	require.NoError(t, err, helm)
	return newCanonicalizer(Options{}).Canonicalize(n)
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		helm string
		want string
	}{
		{"scenario A", "PEPTIDE1{A.G.K}", "PEPTIDE1{A.G.K}$$$$"},
		{"identical peptides", "PEPTIDE1{A.G}|PEPTIDE2{A.G}", "PEPTIDE1{A.G}|PEPTIDE2{A.G}$$$$"},
		{"labels sorted", "PEPTIDE1{K}|PEPTIDE2{A}", "PEPTIDE1{A}|PEPTIDE2{K}$$$$"},
		{"kinds ordered", "CHEM1{PEG2}|RNA1{R(A)P}|PEPTIDE1{A}", "PEPTIDE1{A}|RNA1{R(A)P}|CHEM1{PEG2}$$$$"},
		{"counts expanded", "PEPTIDE1{A'3'.G}", "PEPTIDE1{A.A.A.G}$$$$"},
		{"quoted ids", "PEPTIDE1{[dA].[meG]}", "PEPTIDE1{[dA].[meG]}$$$$"},
		{"annotations dropped", `PEPTIDE1{A"x".G}"poly"$$$PEPTIDE1{"Name":"x"}$V2.0`, "PEPTIDE1{A.G}$$$$"},
		{"cyclic connection reversed", "PEPTIDE1{A.G.K}$PEPTIDE1,PEPTIDE1,3:R2-1:R1$$$V2.0",
			"PEPTIDE1{A.G.K}$PEPTIDE1,PEPTIDE1,1:R1-3:R2$$$"},
		{"connection to chem", "PEPTIDE1{A.G}|PEPTIDE2{A.G}|CHEM1{PEG2}$PEPTIDE2,CHEM1,2:R2-1:R1$$$V2.0",
			"PEPTIDE1{A.G}|PEPTIDE2{A.G}|CHEM1{PEG2}$CHEM1,PEPTIDE1,1:R1-2:R2$$$"},
		{"pairs in hydrogen bond section", "RNA1{R(A)P.R(G)P}|RNA2{R(U)P.R(C)P}$RNA2,RNA1,2:pair-2:pair$$$V2.0",
			"RNA1{R(A)P.R(G)P}|RNA2{R(U)P.R(C)P}$$RNA1,RNA2,2:pair-2:pair$$"},
		{"inline smiles normalised", "CHEM1{[[*:1]-O-C-C-O[*:2]]}", "CHEM1{[[*:1]OCCO[*:2]]}$$$$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := canonicalize(t, tt.helm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalize_ScenarioB_OrderIndependent(t *testing.T) {
	c := newCanonicalizer(Options{})
	res, err := c.CanonicalizeResult(parser.MustParse("PEPTIDE1{A.G}|PEPTIDE2{A.G}"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Candidates)

	again, err := c.CanonicalizeResult(parser.MustParse("PEPTIDE2{A.G}|PEPTIDE1{A.G}"))
	require.NoError(t, err)
	assert.Equal(t, res.HELM, again.HELM)
}

func TestCanonicalize_PermutationInvariance(t *testing.T) {
	a := "PEPTIDE1{A.G}|PEPTIDE2{A.G}|PEPTIDE3{A.G}$" +
		"PEPTIDE1,PEPTIDE2,2:R2-1:R1|PEPTIDE2,PEPTIDE3,2:R2-1:R1$$$V2.0"
	// Same molecule with PEPTIDE1->3, PEPTIDE2->1, PEPTIDE3->2.
	b := "PEPTIDE1{A.G}|PEPTIDE2{A.G}|PEPTIDE3{A.G}$" +
		"PEPTIDE3,PEPTIDE1,2:R2-1:R1|PEPTIDE1,PEPTIDE2,2:R2-1:R1$$$V2.0"

	c := newCanonicalizer(Options{})
	eq, err := c.Equal(parser.MustParse(a), parser.MustParse(b))
	require.NoError(t, err)
	assert.True(t, eq)

	// Joining two N-termini gives a different molecule.
	d := "PEPTIDE1{A.G}|PEPTIDE2{A.G}|PEPTIDE3{A.G}$" +
		"PEPTIDE1,PEPTIDE2,2:R2-1:R1|PEPTIDE1,PEPTIDE3,1:R1-1:R1$$$V2.0"
	eq, err = c.Equal(parser.MustParse(a), parser.MustParse(d))
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"PEPTIDE1{A.G.K}",
		"PEPTIDE1{K.A}|PEPTIDE2{A.G}|CHEM1{SMCC}$PEPTIDE2,CHEM1,2:R2-1:R1|PEPTIDE1,CHEM1,1:R3-1:R2$$$V2.0",
		"RNA1{R(A)P.R(G)P}|RNA2{R(U)P.R(C)P}$RNA1,RNA2,5:pair-5:pair|RNA1,RNA2,2:pair-2:pair$$$V2.0",
		"CHEM1{[[*:1]-O-C-C-O[*:2]]}|PEPTIDE1{C}$PEPTIDE1,CHEM1,1:R3-1:R1$$$V2.0",
	}
	c := newCanonicalizer(Options{})
	for _, in := range inputs {
		first, err := c.Canonicalize(parser.MustParse(in))
		require.NoError(t, err, in)

		reparsed, err := parser.Parse(first)
		require.NoError(t, err, first)
		second, err := c.Canonicalize(reparsed)
		require.NoError(t, err)
		assert.Equal(t, first, second, in)
	}
}

func TestCanonicalize_EquivalentInlineSMILES(t *testing.T) {
	c := newCanonicalizer(Options{})
	eq, err := c.Equal(
		parser.MustParse("CHEM1{[[*:1]OCCO[*:2]]}"),
		parser.MustParse("CHEM1{[[*:1]-O-C-C-O[*:2]]}"),
	)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestCanonicalize_Unsupported(t *testing.T) {
	tests := map[string]string{
		"scenario E mixture": "PEPTIDE1{(A+G).K}$$$$V2.0",
		"list":               "PEPTIDE1{(A.G)'2'}$$$$V2.0",
		"grouping":           "PEPTIDE1{A}|PEPTIDE2{G}$$G1(PEPTIDE1+PEPTIDE2)$$V2.0",
		"blob":               "BLOB1{Bead}",
		"ambiguous":          "PEPTIDE1{A.K}|CHEM1{PEG2}$PEPTIDE1,CHEM1,K:R3-1:R1$$$V2.0",
	}
	for name, helm := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := canonicalize(t, helm)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupported), "%v", err)
		})
	}

	_, err := newCanonicalizer(Options{}).Canonicalize(nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupported))
}

func TestCanonicalize_TooManyCandidates(t *testing.T) {
	c := newCanonicalizer(Options{MaxCandidates: 5})

	_, err := c.Canonicalize(parser.MustParse("PEPTIDE1{A}|PEPTIDE2{A}|PEPTIDE3{A}"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTooManyCandidates))

	res, err := c.CanonicalizeResult(parser.MustParse("PEPTIDE1{A}|PEPTIDE2{A}|PEPTIDE3{G}"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Candidates)
}

func TestCanonicalize_CandidateProductOverflow(t *testing.T) {
	// 13! * 13! exceeds math.MaxInt.
	var polymers []string
	for i := 1; i <= 26; i++ {
		body := "A"
		if i > 13 {
			body = "G"
		}
		polymers = append(polymers, fmt.Sprintf("PEPTIDE%d{%s}", i, body))
	}
	c := newCanonicalizer(Options{MaxCandidates: math.MaxInt})

	_, err := c.Canonicalize(parser.MustParse(strings.Join(polymers, "|")))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTooManyCandidates))
}

func TestCanonicalize_UnknownMonomer(t *testing.T) {
	_, err := canonicalize(t, "PEPTIDE1{A.[Zzz]}")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownMonomer), "%v", err)
}

func TestPermute(t *testing.T) {
	var got [][]int
	permute(3, func(p []int) { got = append(got, append([]int(nil), p...)) })
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}, got)
}

func TestFactorial(t *testing.T) {
	f, ok := factorial(3, 100)
	assert.True(t, ok)
	assert.Equal(t, 6, f)

	_, ok = factorial(5, 10)
	assert.False(t, ok)

	f, ok = factorial(20, math.MaxInt)
	assert.True(t, ok)
	assert.Equal(t, 2432902008176640000, f)

	_, ok = factorial(21, math.MaxInt)
	assert.False(t, ok)
}
