package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateETag(t *testing.T) {
	first, err := GenerateETag(map[string]string{"total": "5000000"})
	require.NoError(t, err)
	second, err := GenerateETag(map[string]string{"total": "5000000"})
	require.NoError(t, err)
	assert.Equal(t, first, second, "equal payloads must hash identically")

	changed, err := GenerateETag(map[string]string{"total": "5000001"})
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}

func TestSendJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendJSONError(rec, "holding not found", http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error": "holding not found"}`, rec.Body.String())
}
