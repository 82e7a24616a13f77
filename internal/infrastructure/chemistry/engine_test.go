package chemistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/pkg/errors"
)

func TestEngine_ValidateSMILES(t *testing.T) {
	e := NewEngine()

	valid := []string{
		"CCO",
		"c1ccccc1",
		"[*:1]OCC[*:2]",
		"N[C@@H](C)C(=O)O",
		"C%10CC%10",
		"[Na+].[Cl-]",
		"C_R1",
		"[*]OC[C@H]1O[C@@H]([*])C[C@@H]1O[*]",
		"CC(C)(N[*:1])C([*:2])=O |$;;;_R1;;_R2$|",
	}
	for _, s := range valid {
		assert.True(t, e.ValidateSMILES(s), s)
	}

	invalid := []string{
		"", "Zz", "PEG2", "Aib", "Orn", "C1CC", "C(C", "C)C(", "CC=",
		"C(=)C", "[C[N]]", "C()C", "C{1}", "   ",
	}
	for _, s := range invalid {
		assert.False(t, e.ValidateSMILES(s), s)
	}
}

func TestEngine_CanonicalizeSMILES(t *testing.T) {
	e := NewEngine()

	got, err := e.CanonicalizeSMILES("[Na+].[Cl-]")
	require.NoError(t, err)
	assert.Equal(t, "[Cl-].[Na+]", got)

	got, err = e.CanonicalizeSMILES("C-C_R1")
	require.NoError(t, err)
	assert.Equal(t, "CC[*:1]", got)

	a, err := e.CanonicalizeSMILES("[*:1]OCC[*:2] |$_R1;;;;_R2$|")
	require.NoError(t, err)
	b, err := e.CanonicalizeSMILES("[*:1]O-C-C[*:2]")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = e.CanonicalizeSMILES("C1CC")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSMILES))
}

func TestCheckRingClosures(t *testing.T) {
	assert.True(t, checkRingClosures("C1CC1C1CC1"))
	assert.True(t, checkRingClosures("[13CH4]"))
	assert.False(t, checkRingClosures("C1CC2"))
	assert.False(t, checkRingClosures("C%1"))
}
