package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connectorapp "github.com/erp/prestashop-connector/internal/application/connector"
	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
	"github.com/erp/prestashop-connector/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"backend not found", connector.ErrBackendNotFound, dto.ErrCodeNotFound},
		{"wrapped job not found", fmt.Errorf("loading: %w", connector.ErrJobNotFound), dto.ErrCodeNotFound},
		{"invalid model", connector.ErrInvalidModel, dto.ErrCodeInvalidInput},
		{"several default languages", connectorapp.ErrSeveralDefaultLanguages, dto.ErrCodeInvalidInput},
		{"binding conflict", connector.ErrBindingConflict, dto.ErrCodeConflict},
		{"job running", connectorapp.ErrJobRunning, dto.ErrCodeInvalidState},
		{"mapping", connector.NewMappingError("carrier %d is not imported", 3), dto.ErrCodeMapping},
		{"invalid data", connector.NewInvalidDataError(nil, "bad vat"), dto.ErrCodeMapping},
		{"missing on backend", &connector.IDMissingInBackend{Resource: "customers", ID: 4}, dto.ErrCodeMissingOnBackend},
		{"retryable", connector.NewRetryableJobError("lock held", 0, nil), dto.ErrCodeUnavailable},
		{"web service", &prestashop.WebServiceError{StatusCode: 401}, dto.ErrCodeWebService},
		{"failed job", connector.NewFailedJobError("no default language", nil), dto.ErrCodeInvalidState},
		{"unknown", fmt.Errorf("boom"), dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := errorCode(tt.err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	t.Run("known error keeps its message", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("request_id", "req-1")

		h.HandleError(c, connector.ErrBackendNotFound)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, connector.ErrBackendNotFound.Error(), resp.Error.Message)
		assert.Equal(t, "req-1", resp.Error.RequestID)
	})

	t.Run("unknown error is hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.HandleError(c, fmt.Errorf("pq: password authentication failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.HandleError(c, nil)
		assert.False(t, c.Writer.Written())
	})
}
