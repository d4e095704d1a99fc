package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestAddLogging(t *testing.T) {
	logBuffer := bytes.NewBuffer([]byte{})
	logger := zerolog.New(logBuffer).Level(zerolog.DebugLevel)
	called := false
	next := http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			called = true
			assert.Equal(t, "viewer", CtxGetClient(r.Context()), "client should be set as context key")
			log.Ctx(r.Context()).Info().Msg("AAA")
		},
	)
	handler := AddLogging(next)
	req, _ := http.NewRequestWithContext(logger.WithContext(context.Background()), http.MethodGet, "/tree", nil)
	req.Header.Add("Client", "viewer")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert := assert.New(t)
	assert.True(called, "middleware handler must call next handler")
	assert.Contains(logBuffer.String(), `"path":"/tree"`)
	assert.Contains(logBuffer.String(), `"client":"viewer"`)
	assert.Contains(logBuffer.String(), "AAA")
	assert.Contains(logBuffer.String(), "served in")
}

func TestCtxGetClient(t *testing.T) {
	ctx := context.WithValue(context.Background(), contextKey("a"), "c")
	assert.Equal(t, "", CtxGetClient(ctx), "client key not found")
	ctx = context.WithValue(context.Background(), contextClient, "b")
	assert.Equal(t, "b", CtxGetClient(ctx), "valid")
	ctx = context.WithValue(context.Background(), contextClient, []string{"a"})
	assert.Equal(t, "", CtxGetClient(ctx), "invalid type in correct key")
}
