package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1", req["model"])
		assert.Equal(t, "system text", req["system"])
		assert.Equal(t, "prompt text", req["prompt"])
		assert.Equal(t, false, req["stream"])

		options, ok := req["options"].(map[string]interface{})
		require.True(t, ok)
		assert.InDelta(t, 0.2, options["temperature"], 1e-9)
		assert.EqualValues(t, 1024, options["num_predict"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": "generated answer",
			"done":     true,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	assert.Equal(t, "ollama", client.Provider())

	resp, err := client.Generate(context.Background(), Request{
		Model:        "llama3.1",
		SystemPrompt: "system text",
		Prompt:       "prompt text",
		Temperature:  0.2,
		MaxTokens:    1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "generated answer", resp.Text)
}

func TestOllamaGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	_, err := client.Generate(context.Background(), Request{Model: "llama3.1", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestRegistry(t *testing.T) {
	ollama := NewOllamaClient("http://localhost:11434")
	registry := NewRegistry(ollama)

	got, err := registry.Get("ollama")
	require.NoError(t, err)
	assert.Same(t, Client(ollama), got)

	_, err = registry.Get("gemini")
	require.Error(t, err)

	assert.Equal(t, []string{"ollama"}, registry.Providers())
}
