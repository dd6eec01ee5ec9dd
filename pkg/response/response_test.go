package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: customError.WrapNotFound("loans", "L1"), want: http.StatusNotFound},
		{name: "invalid payload", err: customError.WrapInvalidPayload("bad"), want: http.StatusBadRequest},
		{name: "payment failed", err: customError.WrapPaymentFailed(errors.New("rail down")), want: http.StatusPaymentRequired},
		{name: "missing identity", err: customError.WrapMissingIdentity(), want: http.StatusUnauthorized},
		{name: "not permitted", err: customError.WrapNotPermitted("%s is not the borrower of %s", "mallory", "L1"), want: http.StatusForbidden},
		{name: "payment completed", err: customError.WrapPaymentCompleted("L1"), want: http.StatusConflict},
		{name: "wrapped not found", err: fmt.Errorf("load: %w", customError.WrapNotFound("loans", "L1")), want: http.StatusNotFound},
		{name: "store error", err: customError.WrapStoreError(errors.New("conn refused")), want: http.StatusInternalServerError},
		{name: "foreign error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestFromError(t *testing.T) {
	t.Run("business error carries code", func(t *testing.T) {
		w := httptest.NewRecorder()
		FromError(w, customError.WrapNotFound("loans", "L1"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, customError.ErrCodeNotFound, body.Code)
		assert.Contains(t, body.Error, "L1")
	})

	t.Run("server error hides detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		FromError(w, customError.WrapStoreError(errors.New("password=secret")))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "secret")
	})
}

func TestLoggingMiddleware_PreservesStatus(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
