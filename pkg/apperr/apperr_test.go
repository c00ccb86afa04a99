package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadmcp/pkg/apperr"
)

func TestWrapFormatsOpAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := apperr.Wrap("Navigate", apperr.CodeActionFailed, cause, nil)

	assert.Equal(t, "Navigate: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.NotNil(t, e.Metadata)
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", apperr.NotFoundError("Poll", errors.New("missing")))
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(errors.New("plain")))
}

func TestIsWalksNestedErrors(t *testing.T) {
	inner := apperr.WrapErrorWithReason("Ensure", apperr.CodeBrowserNotReady, "no_session")
	outer := apperr.Wrap("Click", apperr.CodeActionFailed, inner, nil)

	assert.True(t, apperr.Is(outer, apperr.CodeActionFailed))
	assert.True(t, apperr.Is(outer, apperr.CodeBrowserNotReady))
	assert.False(t, apperr.Is(outer, apperr.CodeTimeout))
	assert.False(t, apperr.Is(nil, apperr.CodeTimeout))
}

func TestWrapWithReasonKeepsCause(t *testing.T) {
	cause := errors.New("page busy")
	err := apperr.WrapWithReason("Do", apperr.CodeTimeout, cause, "page_busy")

	assert.ErrorIs(t, err, cause)
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "page_busy", e.Metadata[apperr.MetaReason])
}
