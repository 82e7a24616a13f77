package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"duplicate ids", errors.ErrCodeDuplicateIDs, "PEPTIDE1 declared twice"},
		{"unknown monomer", errors.ErrCodeUnknownMonomer, "monomer Xyz not found"},
		{"internal", errors.CodeInternal, "unexpected failure"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeAttachmentAlreadyOccupied, "slot in use").
		WithDetail("polymer=PEPTIDE1 position=2 rgroup=R1")
	assert.Equal(t, "[CON_005] slot in use: polymer=PEPTIDE1 position=2 rgroup=R1", ae.Error())

	wrapped := errors.Wrap(ae, errors.ErrCodeInvalidConnection, "connection 2 rejected")
	assert.Contains(t, wrapped.Error(), "[VAL_004] connection 2 rejected <- [CON_005]")
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("root error")
	wrapped := errors.Wrap(root, errors.ErrCodeDatabaseError, "query failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodeDatabaseError, wrapped.Code)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeInvalidSMILES, "bad smiles")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")

	assert.Equal(t, errors.ErrCodeInvalidSMILES, outer.Code)
}

func TestIsCode_MatchesEveryLevel(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeInvalidRNAConnection, "pair on backbone")
	outer := errors.Wrap(inner, errors.ErrCodeInvalidConnection, "invalid connection")
	viaFmt := fmt.Errorf("validate: %w", outer)

	assert.True(t, errors.IsCode(viaFmt, errors.ErrCodeInvalidConnection))
	assert.True(t, errors.IsCode(viaFmt, errors.ErrCodeInvalidRNAConnection))
	assert.False(t, errors.IsCode(viaFmt, errors.ErrCodeDuplicateIDs))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeDuplicateIDs))
}

func TestGetCodeAndRootCode(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeMonomerNotFound, "no C in PEPTIDE1")
	outer := errors.Wrap(inner, errors.ErrCodeInvalidConnection, "invalid connection")

	assert.Equal(t, errors.ErrCodeInvalidConnection, errors.GetCode(outer))
	assert.Equal(t, errors.ErrCodeMonomerNotFound, errors.RootCode(outer))
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := errors.New(errors.ErrCodeUnknownPolymerID, "unknown polymer")
	withDetail := base.WithDetailf("polymer=%s", "RNA9")

	assert.Empty(t, base.Detail)
	assert.Equal(t, "polymer=RNA9", withDetail.Detail)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}
