package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/api/apitest"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func TestResponseErrorType(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, ""},
		{http.StatusCreated, ""},
		{http.StatusBadRequest, log.ErrorTypeValidation},
		{http.StatusUnprocessableEntity, log.ErrorTypeValidation},
		{http.StatusUnauthorized, log.ErrorTypeAuth},
		{http.StatusForbidden, log.ErrorTypeAuth},
		{http.StatusInternalServerError, log.ErrorTypeServer},
		{http.StatusBadGateway, log.ErrorTypeServer},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, responseErrorType(tt.status), "status %d", tt.status)
	}
}

func TestFailedResponseLogsErrorType(t *testing.T) {
	backend := apitest.New(t)
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	c := NewClient(backend.URL(), WithLogger(logger))
	c.UseCredentials(&fakeCreds{token: backend.Token(time.Now().Add(time.Hour))})
	backend.Fail(http.MethodPost, "/transactions/", http.StatusInternalServerError, "database is locked")

	err := Transactions(c).Create(context.Background(), core.TransactionDraft{})
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"error_type":"server_error"`)
	assert.Contains(t, buf.String(), `"status_code":500`)
}
