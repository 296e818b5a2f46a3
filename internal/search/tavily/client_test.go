package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/search"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(Config{
		APIKey:  "tvly-test",
		BaseURL: server.URL + "/",
		Timeout: 5 * time.Second,
		Backoff: []time.Duration{time.Millisecond, time.Millisecond},
	}, zap.NewNop())
}

func TestClient_Search(t *testing.T) {
	var got searchBody
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(searchReply{
			Query: got.Query,
			Results: []replyItem{
				{Title: " NVDA beats estimates ", URL: "https://reuters.com/nvda", Content: "Revenue up 80%", Score: 0.92, PublishedDate: "2025-05-28"},
				{Title: "no url", Content: "dropped"},
			},
			ResponseTime: 0.8,
		})
	})

	resp, err := c.Search(context.Background(), search.SearchRequest{
		Query:          "  NVDA   earnings ",
		IncludeDomains: []string{"reuters.com", "bloomberg.com"},
		TimeRange:      search.TimeRangeMonth,
	})
	require.NoError(t, err)

	assert.Equal(t, "NVDA earnings", got.Query)
	assert.Equal(t, "finance", got.Topic)
	assert.Equal(t, "basic", got.SearchDepth)
	assert.Equal(t, search.TimeRangeMonth, got.TimeRange)
	assert.Equal(t, search.DefaultMaxResults, got.MaxResults)
	assert.Len(t, got.IncludeDomains, 2)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "NVDA beats estimates", resp.Results[0].Title)
	assert.Equal(t, Name, resp.Results[0].Provider)
	assert.Equal(t, 0.8, resp.ResponseTime)
}

func TestClient_SearchKeepsNewsTopic(t *testing.T) {
	var topic string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body searchBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		topic = body.Topic
		_ = json.NewEncoder(w).Encode(searchReply{Results: []replyItem{{Title: "t", URL: "https://ft.com/a"}}})
	})

	_, err := c.Search(context.Background(), search.SearchRequest{Query: "oil", Topic: search.TopicNews})
	require.NoError(t, err)
	assert.Equal(t, search.TopicNews, topic)
}

func TestClient_SearchErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantDetail string
	}{
		{"empty results", http.StatusOK, `{"query":"q","results":[]}`, search.ErrEmptyResults, ""},
		{"unauthorized", http.StatusUnauthorized, `{"detail":{"error":"Unauthorized: missing or invalid API key."}}`, search.ErrUnauthorized, ""},
		{"rate limit", http.StatusTooManyRequests, `{"detail":{"error":"Too many requests"}}`, search.ErrRateLimit, "Too many requests"},
		{"plan limit", statusPlanLimit, `{"detail":{"error":"This request exceeds your plan's set usage limit."}}`, search.ErrRateLimit, "usage limit"},
		{"usage limit", statusUsageLimit, `{"detail":"Pay-as-you-go limit reached"}`, search.ErrRateLimit, "Pay-as-you-go"},
		{"bad request", http.StatusBadRequest, `{"detail":{"error":"Query is too long"}}`, search.ErrInvalidRequest, "Query is too long"},
		{"not found", http.StatusNotFound, ``, search.ErrSearchFailed, "status 404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Search(context.Background(), search.SearchRequest{Query: "q"})
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantDetail != "" {
				assert.Contains(t, err.Error(), tt.wantDetail)
			}
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
		})
	}
}

func TestClient_SearchEmptyQuery(t *testing.T) {
	c := New(Config{APIKey: "k"}, nil)
	_, err := c.Search(context.Background(), search.SearchRequest{Query: " \t "})
	assert.ErrorIs(t, err, search.ErrInvalidRequest)
}

func TestClient_SearchRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(searchReply{Results: []replyItem{{Title: "Fed holds rates", URL: "https://reuters.com/x"}}})
	})

	resp, err := c.Search(context.Background(), search.SearchRequest{Query: "fed"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "Fed holds rates", resp.Results[0].Title)
}

func TestClient_SearchGivesUpAfterBackoff(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), search.SearchRequest{Query: "q"})
	assert.ErrorIs(t, err, search.ErrSearchFailed)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_SearchContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	c := New(Config{APIKey: "k", BaseURL: server.URL, Timeout: 100 * time.Millisecond}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := c.Search(ctx, search.SearchRequest{Query: "test"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "error = %v", err)
}
