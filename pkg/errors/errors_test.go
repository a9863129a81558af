package errors

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrSchedulingConflict, "room R1 busy")

	assert.True(t, stderrors.Is(err, ErrSchedulingConflict))
	assert.False(t, stderrors.Is(err, ErrValidation))
	assert.Equal(t, "room R1 busy", err.Message)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestWithDetailsCopiesMessages(t *testing.T) {
	details := []string{"first", "second"}
	err := WithDetails(ErrValidation, "session rejected", details)
	details[0] = "mutated"

	require.Len(t, err.Details, 2)
	assert.Equal(t, "first", err.Details[0])
	assert.Nil(t, ErrValidation.Details)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("load rooms: %w", sql.ErrConnDone))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.True(t, stderrors.Is(appErr, sql.ErrConnDone))
	assert.Nil(t, FromError(nil))
}

func TestFromErrorKeepsTyped(t *testing.T) {
	original := Clone(ErrNotFound, "room not found")
	wrapped := fmt.Errorf("handler: %w", original)

	assert.Same(t, original, FromError(wrapped))
}
