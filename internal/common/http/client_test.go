package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/optimize", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ping", body["msg"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"msg":"pong"}`))
	}))
	defer server.Close()

	c := NewServiceClient(server.URL+"/", "secret", time.Second)
	var out struct {
		Msg string `json:"msg"`
	}
	require.NoError(t, c.PostJSON(context.Background(), "/optimize", map[string]string{"msg": "ping"}, &out))
	assert.Equal(t, "pong", out.Msg)
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	}))
	defer server.Close()

	c := NewServiceClient(server.URL, "", time.Second)
	err := c.GetJSON(context.Background(), "/geocode", &struct{}{})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, strings.Contains(statusErr.Body, "down"))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewServiceClient(server.URL, "", 20*time.Millisecond)
	err := c.PostJSON(context.Background(), "/slow", map[string]string{}, nil)
	assert.Error(t, err)
}
