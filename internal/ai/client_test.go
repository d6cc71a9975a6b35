package ai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

// newFakeOpenAI serves the chat completions endpoint with handler.
func newFakeOpenAI(t *testing.T, handler http.HandlerFunc) *ai.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return ai.NewClient(ai.Config{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "test-model"},
		testhelpers.NewLogger(io.Discard))
}

func TestClient_Complete(t *testing.T) {
	var received map[string]any
	client := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "test-model",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "  I was in the library.  "}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`))
	})

	reply, err := client.Complete(context.Background(), ai.Request{
		Purpose:  "persona",
		Messages: []openai.ChatCompletionMessage{ai.System("be terse"), ai.User("Where were you?")},
		JSON:     true,
	})
	require.NoError(t, err)
	require.Equal(t, "I was in the library.", reply)
	require.Equal(t, "test-model", received["model"])
	require.Len(t, received["messages"], 2)
	require.Equal(t, map[string]any{"type": "json_object"}, received["response_format"])
}

func TestClient_Complete_upstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			payload: `{"error": {"message": "overloaded", "type": "server_error"}}`,
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			payload: `{"id": "chatcmpl-2", "object": "chat.completion", "choices": []}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			})
			_, err := client.Complete(context.Background(), ai.Request{
				Purpose:  "scenario",
				Messages: []openai.ChatCompletionMessage{ai.User("hello")},
			})
			require.ErrorIs(t, err, ai.ErrUpstreamUnavailable)
		})
	}
}
