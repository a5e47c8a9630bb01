package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge-ai/adforge/internal/model"
)

func TestInvokeNotConfigured(t *testing.T) {
	c := NewClient("", "", time.Second)
	_, err := c.Invoke(context.Background(), Request{Role: model.AgentCopywriter})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInvokeSuccess(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Adforge-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{
			Reply:      "here is your copy",
			Structured: json.RawMessage(`{"headline":"Buy now"}`),
			Logs:       []string{"prompt built", "model called"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	resp, err := c.Invoke(context.Background(), Request{
		Role:   model.AgentCopywriter,
		System: "You are a copywriter.",
		Input:  Input{PromptTemplateID: "copywriter_v1", Temperature: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "here is your copy", resp.Reply)
	assert.JSONEq(t, `{"headline":"Buy now"}`, string(resp.Structured))
	assert.Equal(t, []string{"prompt built", "model called"}, resp.Logs)

	assert.Equal(t, model.AgentCopywriter, got.Role)
	assert.Equal(t, "copywriter_v1", got.Input.PromptTemplateID)
}

func TestInvokeOmitsKeyHeaderWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Adforge-Key"]
		assert.False(t, present)
		_ = json.NewEncoder(w).Encode(Response{Reply: "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Invoke(context.Background(), Request{Role: model.AgentDataOps})
	require.NoError(t, err)
}

func TestInvokeNon2xxWithErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": "model unavailable",
			"logs":  []string{"retrying", "giving up"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Invoke(context.Background(), Request{Role: model.AgentDesigner})

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusBadGateway, callErr.StatusCode)
	assert.Equal(t, "model unavailable", callErr.Message)
	assert.Equal(t, []string{"retrying", "giving up"}, callErr.Logs)
}

func TestInvokeNon2xxPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Invoke(context.Background(), Request{Role: model.AgentCompliance})

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusGatewayTimeout, callErr.StatusCode)
	assert.Contains(t, callErr.Message, "upstream timeout")
}

func TestInvoke200WithErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing rate limit quota"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Invoke(context.Background(), Request{Role: model.AgentMediaBuyer})

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Zero(t, callErr.StatusCode)
	assert.Equal(t, "missing rate limit quota", callErr.Message)
}

func TestInvokeMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Invoke(context.Background(), Request{Role: model.AgentDataOps})
	require.Error(t, err)
	var callErr *CallError
	assert.False(t, errors.As(err, &callErr), "malformed body is a decode error, not a CallError")
}

func TestInvokeContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Invoke(ctx, Request{Role: model.AgentCompetitorAnalysis})
	assert.Error(t, err)
}

func TestPromptRegistryCoversEveryAgent(t *testing.T) {
	reg := NewPromptRegistry()
	seen := map[string]bool{}
	for _, agent := range model.Agents() {
		p := reg.For(agent)
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.System)
		assert.False(t, seen[p.ID], "duplicate prompt id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestPromptRegistryFallback(t *testing.T) {
	p := NewPromptRegistry().For("landing_page")
	assert.Equal(t, "landing_page_generic_v1", p.ID)
	assert.NotEmpty(t, p.System)
}
