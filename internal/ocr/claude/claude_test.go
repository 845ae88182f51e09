package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognize(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))

		resp := map[string]interface{}{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-opus-4-6",
			"stop_reason": "end_turn",
			"content": []map[string]interface{}{
				{"type": "text", "text": "Mensa Castelfidardo\nPrimi piatti\nPasta al pesto"},
			},
			"usage": map[string]interface{}{"input_tokens": 10, "output_tokens": 12},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	tr := newTranscriber("sk-test", "claude-opus-4-6", anthropic.WithBaseURL(server.URL))
	text, err := tr.Recognize(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)

	assert.Equal(t, "Mensa Castelfidardo\nPrimi piatti\nPasta al pesto", text)
	assert.Equal(t, "claude-opus-4-6", body["model"])

	msgs, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]interface{})["type"])
	assert.Equal(t, "text", content[1].(map[string]interface{})["type"])
}

func TestRecognizeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	tr := newTranscriber("sk-test", "claude-opus-4-6", anthropic.WithBaseURL(server.URL))
	_, err := tr.Recognize(context.Background(), []byte{0x89})
	assert.Error(t, err)
}

func TestAvailable(t *testing.T) {
	assert.True(t, New("sk", "m").Available(context.Background()))
	assert.False(t, New("", "m").Available(context.Background()))
}
