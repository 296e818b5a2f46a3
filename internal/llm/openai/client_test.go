package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/llm"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []any{
			map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestClient_CompleteWithSystem(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   any
		want       string
		wantErr    error
	}{
		{
			name:       "success",
			statusCode: http.StatusOK,
			response:   completion("AAPL looks strong"),
			want:       "AAPL looks strong",
		},
		{
			name:       "unauthorized",
			statusCode: http.StatusUnauthorized,
			response:   map[string]any{"error": map[string]any{"message": "Incorrect API key provided", "type": "invalid_request_error"}},
			wantErr:    llm.ErrAuthFailed,
		},
		{
			name:       "rate limit",
			statusCode: http.StatusTooManyRequests,
			response:   map[string]any{"error": map[string]any{"message": "Rate limit reached"}},
			wantErr:    llm.ErrRateLimit,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			response:   map[string]any{"error": map[string]any{"message": "boom"}},
			wantErr:    llm.ErrRequestFailed,
		},
		{
			name:       "empty content",
			statusCode: http.StatusOK,
			response:   completion(""),
			wantErr:    llm.ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

				raw, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(raw, &gotBody)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_ = json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := New(Config{
				APIKey:      "sk-test",
				BaseURL:     server.URL,
				Temperature: 0.2,
				Timeout:     5 * time.Second,
			}, zap.NewNop())

			got, err := client.CompleteWithSystem(context.Background(), "You are a financial analyst", "Analyze AAPL")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			assert.Equal(t, DefaultModel, gotBody["model"])
			assert.Equal(t, 0.2, gotBody["temperature"])
			msgs, _ := gotBody["messages"].([]any)
			require.Len(t, msgs, 2)
			assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
			assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
		})
	}
}

func TestClient_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := New(Config{APIKey: "sk-test", BaseURL: server.URL}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.CompleteWithSystem(ctx, "s", "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{APIKey: "k"}, zap.NewNop())
	assert.Equal(t, "gpt-4o", c.Model())
}
