package duckduckgo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/search"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="result results_links result--ad">
    <a class="result__a" href="https://duckduckgo.com/y.js?ad_provider=x">Sponsored broker</a>
    <a class="result__snippet">Open an account today</a>
  </div>
  <div class="result results_links">
    <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reuters.com%2Fmarkets%2Fapple&amp;rut=abc">Apple shares rise on <b>record</b> iPhone sales</a></h2>
    <a class="result__snippet">Apple Inc shares rose 3% after the company reported record revenue.</a>
  </div>
  <div class="result results_links">
    <h2><a class="result__a" href="https://www.cnbc.com/apple-earnings">Apple earnings recap</a></h2>
    <a class="result__snippet">What to know about Apple's quarter.</a>
  </div>
  <div class="result results_links">
    <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.wsj.com%2Fapple">WSJ on Apple</a></h2>
    <a class="result__snippet">Third result.</a>
  </div>
</div>
</body></html>`

func TestClient_Search(t *testing.T) {
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/html/", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"q":  r.PostForm.Get("q"),
			"kl": r.PostForm.Get("kl"),
			"df": r.PostForm.Get("df"),
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL}, zap.NewNop())
	resp, err := client.Search(context.Background(), search.SearchRequest{
		Query:      "AAPL stock",
		MaxResults: 2,
		TimeRange:  "week",
		Topic:      search.TopicNews,
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://www.reuters.com/markets/apple", resp.Results[0].URL)
	assert.Equal(t, "Apple shares rise on record iPhone sales", resp.Results[0].Title)
	assert.Contains(t, resp.Results[0].Content, "record revenue")
	assert.Equal(t, Name, resp.Results[0].Provider)
	assert.Equal(t, "https://www.cnbc.com/apple-earnings", resp.Results[1].URL)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score)

	assert.Equal(t, "AAPL stock news", gotForm["q"])
	assert.Equal(t, "us-en", gotForm["kl"])
	assert.Equal(t, "w", gotForm["df"])
}

func TestClient_Search_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no results", http.StatusOK, `<html><body><div class="no-results">No results.</div></body></html>`, search.ErrEmptyResults},
		{"anti-bot", http.StatusAccepted, ``, search.ErrRateLimit},
		{"too many", http.StatusTooManyRequests, ``, search.ErrRateLimit},
		{"forbidden", http.StatusForbidden, ``, search.ErrSearchFailed},
		{"server error", http.StatusServiceUnavailable, ``, search.ErrSearchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(Config{BaseURL: server.URL, Backoff: []time.Duration{time.Millisecond}}, zap.NewNop())
			_, err := client.Search(context.Background(), search.SearchRequest{Query: "tsla"})
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestClient_Search_Retry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Backoff: []time.Duration{time.Millisecond}}, zap.NewNop())
	resp, err := client.Search(context.Background(), search.SearchRequest{Query: "aapl"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_Search_EmptyQuery(t *testing.T) {
	_, err := New(Config{}, zap.NewNop()).Search(context.Background(), search.SearchRequest{Query: "  "})
	assert.ErrorIs(t, err, search.ErrInvalidRequest)
}

func TestClient_Search_Domains(t *testing.T) {
	var q string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		q = r.PostForm.Get("q")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL}, zap.NewNop())
	_, err := client.Search(context.Background(), search.SearchRequest{
		Query:          "fed",
		IncludeDomains: []string{"reuters.com"},
		ExcludeDomains: []string{"reddit.com"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(q, "site:reuters.com -site:reddit.com"), q)
}

func TestUnwrapURL(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fft.com%2Fx&rut=1", "https://ft.com/x"},
		{"https://www.bloomberg.com/a", "https://www.bloomberg.com/a"},
		{"https://duckduckgo.com/y.js?ad=1", ""},
		{"javascript:void(0)", ""},
		{"//duckduckgo.com/l/?uddg=javascript%3Aalert(1)&rut=1", ""},
		{"//duckduckgo.com/l/?uddg=data%3Atext%2Fhtml%2Cx", ""},
		{"//duckduckgo.com/l/?uddg=%2F%2Fno-scheme.com", ""},
		{"ftp://files.example.com/report.pdf", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, unwrapURL(tt.href))
		})
	}
}

func TestTimeFilter(t *testing.T) {
	assert.Equal(t, "d", timeFilter("day"))
	assert.Equal(t, "m", timeFilter("month"))
	assert.Equal(t, "", timeFilter(""))
	assert.Equal(t, "", timeFilter("decade"))
}
