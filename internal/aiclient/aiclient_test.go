package aiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smorty/internal/apperr"
)

var testSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []interface{}{"name"},
	"properties": map[string]interface{}{
		"name": map[string]interface{}{"type": "string"},
	},
}

func chatResponseServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{Choices: []chatChoice{{Message: chatMessage{Content: content}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestComplete_ValidFirstTry_ReturnsRaw(t *testing.T) {
	srv := chatResponseServer(t, `{"name":"alice"}`)
	defer srv.Close()

	c := New(Config{APIKey: "key", BaseURL: srv.URL}, zap.NewNop().Sugar())
	raw, err := c.Complete(context.Background(), "sys", "user", testSchema)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"alice"}`, string(raw))
}

func TestComplete_InvalidThenValid_RetriesAndSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		content := `{"name":"alice"}`
		if n == 1 {
			content = `{"wrong_field":true}`
		}
		resp := chatResponse{Choices: []chatChoice{{Message: chatMessage{Content: content}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", BaseURL: srv.URL}, zap.NewNop().Sugar())
	raw, err := c.Complete(context.Background(), "sys", "user", testSchema)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"alice"}`, string(raw))
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestComplete_NeverValid_FailsAfterRetries(t *testing.T) {
	srv := chatResponseServer(t, `{"wrong_field":true}`)
	defer srv.Close()

	c := New(Config{APIKey: "key", BaseURL: srv.URL}, zap.NewNop().Sugar())
	_, err := c.Complete(context.Background(), "sys", "user", testSchema)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindAiSchema))
}

func TestComplete_MissingAPIKey_FailsFast(t *testing.T) {
	c := New(Config{BaseURL: "http://unused.invalid"}, zap.NewNop().Sugar())
	_, err := c.Complete(context.Background(), "sys", "user", testSchema)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindAiAuth))
}

func TestComplete_Unauthorized_IsFatalNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", BaseURL: srv.URL}, zap.NewNop().Sugar())
	_, err := c.Complete(context.Background(), "sys", "user", testSchema)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindAiAuth))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParseRetryAfter_NumericSeconds(t *testing.T) {
	d := parseRetryAfter("2")
	require.Equal(t, int64(2), d.Nanoseconds()/1e9)
}

func TestParseRetryAfter_Empty_DefaultsToOneSecond(t *testing.T) {
	d := parseRetryAfter("")
	require.Equal(t, int64(1), d.Nanoseconds()/1e9)
}
