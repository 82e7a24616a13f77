package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/domain/parser"
	"github.com/turtacn/helmkit/pkg/errors"
)

func TestToLegacyForm(t *testing.T) {
	tests := []struct {
		name string
		helm string
		want string
	}{
		{"polymers only", "PEPTIDE1{A.G.K}", "PEPTIDE1{A.G.K}$$$$"},
		{"order and ids kept", "PEPTIDE2{K}|PEPTIDE1{A}", "PEPTIDE2{K}|PEPTIDE1{A}$$$$"},
		{"counts expanded", "PEPTIDE1{A'2'.G}$$$$V2.0", "PEPTIDE1{A.A.G}$$$$"},
		{"pairs split out",
			"PEPTIDE1{A.G.K}|RNA1{R(A)P}|RNA2{R(U)P}$PEPTIDE1,PEPTIDE1,3:R2-1:R1|RNA1,RNA2,2:pair-2:pair$$$V2.0",
			"PEPTIDE1{A.G.K}|RNA1{R(A)P}|RNA2{R(U)P}$PEPTIDE1,PEPTIDE1,3:R2-1:R1$RNA1,RNA2,2:pair-2:pair$$"},
		{"annotations kept", `PEPTIDE1{A.G"mod"}$$$PEPTIDE1{"Name":"x"}$V2.0`,
			`PEPTIDE1{A.G"mod"}$$$PEPTIDE1{"Name":"x"}$`},
		{"already legacy", "RNA1{R(A)P}|RNA2{R(U)P}$$RNA1,RNA2,2:pair-2:pair$$",
			"RNA1{R(A)P}|RNA2{R(U)P}$$RNA1,RNA2,2:pair-2:pair$$"},
	}
	l := NewLegacyProjector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.ToLegacyForm(parser.MustParse(tt.helm))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToLegacyForm_HasAmbiguity(t *testing.T) {
	tests := map[string]string{
		"mixture":   "PEPTIDE1{(A+G).K}$$$$V2.0",
		"list":      "PEPTIDE1{(A.G)'2'}$$$$V2.0",
		"grouping":  "PEPTIDE1{A}|PEPTIDE2{G}$$G1(PEPTIDE1+PEPTIDE2)$$V2.0",
		"blob":      "BLOB1{Bead}",
		"wildcard":  "PEPTIDE1{A.G}|CHEM1{PEG2}$PEPTIDE1,CHEM1,?:R2-1:R1$$$V2.0",
		"group end": "PEPTIDE1{C}|PEPTIDE2{C}|CHEM1{PEG2}$G1,CHEM1,1:R3-1:R1$G1(PEPTIDE1+PEPTIDE2)$$V2.0",
	}
	l := NewLegacyProjector()
	for name, helm := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := l.ToLegacyForm(parser.MustParse(helm))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeHasAmbiguity), "%v", err)
		})
	}

	_, err := l.ToLegacyForm(nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHasAmbiguity))
}

func TestToLegacyForm_CanonicalOutputIsLegacy(t *testing.T) {
	n := parser.MustParse("PEPTIDE2{A.G}|PEPTIDE1{A.G}|CHEM1{PEG2}$PEPTIDE2,CHEM1,2:R2-1:R1$$$V2.0")
	canon, err := newCanonicalizer(Options{}).Canonicalize(n)
	require.NoError(t, err)

	legacy, err := NewLegacyProjector().ToLegacyForm(parser.MustParse(canon))
	require.NoError(t, err)
	assert.Equal(t, canon, legacy)
}
