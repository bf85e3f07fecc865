package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/warmflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Provider: ProviderGroq,
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		Model:    "test-model",
	}, zap.NewNop())
}

func completionBody(content string) []byte {
	out := map[string]any{
		"id":    "cmpl-1",
		"model": "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	raw, _ := json.Marshal(out)
	return raw
}

func TestCompletion(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write(completionBody("Caller reports a double charge on invoice 4481."))
	})

	content, err := client.Completion(context.Background(), []Message{
		{Role: RoleSystem, Content: "You summarize support calls."},
		{Role: RoleUser, Content: "transcript here"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Caller reports a double charge on invoice 4481.", content)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Len(t, gotReq.Messages, 2)
}

func TestCompletion_EmptyMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Completion(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestCompletion_MissingAPIKey(t *testing.T) {
	client := NewClient(Config{Provider: ProviderOpenAI, BaseURL: "http://localhost:1"}, zap.NewNop())

	_, err := client.Completion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrPermanent, types.GetErrorCode(err))
}

func TestCompletion_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	})

	_, err := client.Completion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrTransient, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestCompletion_BadRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	})

	_, err := client.Completion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrPermanent, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}

func TestCompletion_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cmpl-1","model":"test-model","choices":[]}`))
	})

	_, err := client.Completion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}

func TestCompletion_ContextTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(completionBody("too late"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Completion(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamTimeout, types.GetErrorCode(err))
}

func TestHealthCheck(t *testing.T) {
	healthy := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Write([]byte(`{"data":[]}`))
	})
	require.NoError(t, healthy.HealthCheck(context.Background()))

	failing := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	err := failing.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrTransient, types.GetErrorCode(err))
}

func TestConfigDefaults(t *testing.T) {
	tests := []struct {
		provider  string
		wantURL   string
		wantModel string
	}{
		{ProviderOpenAI, "https://api.openai.com", "gpt-4o-mini"},
		{ProviderGroq, "https://api.groq.com/openai", "llama-3.3-70b-versatile"},
		{"", "https://api.openai.com", "gpt-4o-mini"},
	}
	for _, tt := range tests {
		cfg := Config{Provider: tt.provider}
		cfg.applyDefaults()
		assert.Equal(t, tt.wantURL, cfg.BaseURL)
		assert.Equal(t, tt.wantModel, cfg.Model)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	}
}
