package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logger(&logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The scoped logger must be reachable from the request context.
		zerolog.Ctx(r.Context()).Info().Msg("handling")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/publishers/nobody", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var handling map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &handling))
	assert.Equal(t, "handling", handling["message"])
	assert.Equal(t, "/api/v1/publishers/nobody", handling["path"])

	var served map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &served))
	assert.Equal(t, "request served", served["message"])
	assert.Equal(t, float64(http.StatusNotFound), served["status"])
	assert.Equal(t, "GET", served["method"])
	assert.Equal(t, float64(len("missing")), served["bytes"])
}
