package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/myrjola/sheerluck-engine/internal/e2etest"
	"github.com/myrjola/sheerluck-engine/internal/scenario"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI answers chat completions like the real backend would. Scenario requests get the canonical case, note
// requests one alibi note and persona requests a fixed alibi.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	c, err := scenario.QuickStart()
	require.NoError(t, err)
	c.ID = ""
	generated, err := json.Marshal(c)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		system := req.Messages[0].Content
		var content string
		switch {
		case strings.HasPrefix(system, "You are a creative author"):
			content = string(generated)
		case strings.HasPrefix(system, "You help a detective keep notes"):
			content = `{"notes":[{"text":"Robert says he left the study at 9 pm","category":"alibi"}]}`
		default:
			content = "I left the study at 9 pm and read in the library until midnight."
		}
		writeCompletion(w, content)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// brokenOpenAI fails every request like an overloaded backend.
func brokenOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeCompletion(w http.ResponseWriter, content string) {
	body, err := json.Marshal(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// testLookupEnv configures an in-memory server on a random port that talks to backend.
func testLookupEnv(backend *httptest.Server, overrides map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := overrides[key]; ok {
			return v, true
		}
		switch key {
		case "SHEERLUCK_ADDR":
			return "localhost:0", true
		case "SHEERLUCK_SQLITE_URL":
			return ":memory:", true
		case "OPENAI_API_KEY":
			return "test", true
		case "SHEERLUCK_OPENAI_BASE_URL":
			return backend.URL + "/v1", true
		default:
			return "", false
		}
	}
}

// startTestServer starts the web service and stops it when the test ends.
func startTestServer(t *testing.T, lookupEnv func(string) (string, bool)) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, lookupEnv, run)
	require.NoError(t, err)
	return server
}
