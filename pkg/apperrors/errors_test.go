package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("link subscription: %w", ErrPoolFull("pool-1"))

	assert.True(t, HasCode(err, CodePoolFull))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodePoolFull))

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.HTTPCode)
	assert.Equal(t, DomainPool, appErr.Domain)
}

func TestInternalError_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := InternalError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, DomainSystem, err.Domain)
	assert.Equal(t, "system/INTERNAL_ERROR: Internal server error: connection reset", err.Error())
}

func TestWithDetails_ReturnsCopy(t *testing.T) {
	base := NewBadRequestError("bad id")
	detailed := base.WithDetails(map[string]string{"id": "x"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)
	assert.Equal(t, DomainRequest, detailed.Domain)
	assert.Equal(t, CodeValidationFailed, detailed.Code)
}
