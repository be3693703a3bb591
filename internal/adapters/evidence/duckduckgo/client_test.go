package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func newSearchServer(t *testing.T) *httptest.Server {
	t.Helper()

	fixture, err := os.ReadFile("testdata/results.html")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "remote work", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(fixture)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestSearchParsesAndUnwrapsResults(t *testing.T) {
	t.Parallel()

	server := newSearchServer(t)
	client := New(WithEndpoint(server.URL+"/html/"), WithHTTPClient(server.Client()), WithRateLimit(rate.Inf, 0))

	results, err := client.Search(context.Background(), "  remote work ", 10)
	require.NoError(t, err)

	assert.Equal(t, []domain.SearchResult{
		{Title: "Remote work study", URL: "https://example.org/remote?a=1&b=2", Snippet: "Workers saved 72 minutes a day."},
		{Title: "Why offices matter", URL: "https://news.example.com/offices", Snippet: "Serendipity in hallways."},
		{Title: "Hybrid & flexible", URL: "http://blog.example.net/hybrid", Snippet: "Both sides gain."},
	}, results)
}

func TestSearchHonorsMaxResults(t *testing.T) {
	t.Parallel()

	server := newSearchServer(t)
	client := New(WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithRateLimit(rate.Inf, 0))

	results, err := client.Search(context.Background(), "remote work", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://news.example.com/offices", results[1].URL)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	_, err := New().Search(context.Background(), "   ", 3)
	require.Error(t, err)
}

func TestSearchReportsHTTPFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	_, err := New(WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithRateLimit(rate.Inf, 0)).
		Search(context.Background(), "remote work", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 429")
}

func TestSearchRateLimitRespectsContext(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(server.Close)

	client := New(WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithRateLimit(rate.Every(time.Hour), 1))

	_, err := client.Search(context.Background(), "first", 3)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, "second", 3)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSearchBurstRunsPairedQueriesTogether(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(server.Close)

	client := New(WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithRateLimit(rate.Every(time.Hour), DefaultBurst))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var group errgroup.Group
	for _, query := range []string{"query a", "query b"} {
		group.Go(func() error {
			_, err := client.Search(ctx, query, 3)
			return err
		})
	}
	require.NoError(t, group.Wait())
	assert.Equal(t, int32(2), hits.Load())

	third, cancelThird := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelThird()
	_, err := client.Search(third, "query c", 3)
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchTextStripsChromeAndTruncates(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Ignored</title><style>body{}</style></head><body>
<header>Site header</header><nav>Home | About</nav>
<script>var tracking = true;</script>
<main><h1>Commute   data</h1><p>Remote workers   save time.</p><noscript>enable js</noscript></main>
<footer>Copyright</footer></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)

	client := New(WithHTTPClient(server.Client()))
	text, err := client.FetchText(context.Background(), server.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, "Commute data Remote workers save time.", text)

	short := New(WithHTTPClient(server.Client()), WithMaxChars(7))
	text, err = short.FetchText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Commute", text)
}

func TestFetchTextDefaultLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(strings.Repeat("é ", 3000)))
	}))
	t.Cleanup(server.Close)

	text, err := New(WithHTTPClient(server.Client())).FetchText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(text)), DefaultMaxChars)
	assert.True(t, strings.HasPrefix(text, "é é"))
}

func TestFetchTextRejectsNonHTTPURL(t *testing.T) {
	t.Parallel()

	_, err := New().FetchText(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported page url scheme")
}

func TestResolveResultURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{href: "//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fx", want: "https://a.example/x", ok: true},
		{href: "https://b.example/y", want: "https://b.example/y", ok: true},
		{href: "/html/?q=next", ok: false},
		{href: "https://duckduckgo.com/y.js?ad_domain=x", ok: false},
		{href: "javascript:void(0)", ok: false},
		{href: "//duckduckgo.com/l/?uddg=ftp%3A%2F%2Fc.example", ok: false},
	}

	for _, tt := range tests {
		got, ok := resolveResultURL(tt.href)
		assert.Equal(t, tt.ok, ok, tt.href)
		assert.Equal(t, tt.want, got, tt.href)
	}
}
