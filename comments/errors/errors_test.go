package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentError_Unwrap(t *testing.T) {
	err := NewCommentError(CodeDatabaseOperation, "insert failed", ErrDatabaseOperation)

	assert.ErrorIs(t, err, ErrDatabaseOperation)
	assert.Contains(t, err.Error(), "DATABASE_OPERATION_FAILED")
	assert.Contains(t, err.Error(), "caused by")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{NewValidationError("content is required"), http.StatusBadRequest, CodeValidationFailed},
		{fmt.Errorf("lookup: %w", ErrCommentNotFound), http.StatusNotFound, CodeCommentNotFound},
		{ErrParentNotFound, http.StatusNotFound, CodeCommentNotFound},
		{ErrCommentOwnershipRequired, http.StatusForbidden, CodePermissionDenied},
		{ErrMissingUserContext, http.StatusUnauthorized, CodeUnauthorized},
		{ErrInvalidCursor, http.StatusBadRequest, CodeInvalidCursor},
		{fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tc := range cases {
		status, body := StatusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, body.Code, tc.err.Error())
	}
}

func TestStatusFor_ValidationMessage(t *testing.T) {
	_, body := StatusFor(NewValidationError("content is required"))
	assert.Equal(t, "content is required", body.Message)
}
