package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urldev/plugin-monitor/internal/monitor"
	"github.com/urldev/plugin-monitor/internal/wporg"
)

var tokenExp = regexp.MustCompile(`name="_token" value="([^"]+)"`)

type mockSettings struct {
	mu    sync.Mutex
	raw   string
	saves []string
	cache *mockCache
}

func (m *mockSettings) Raw(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.raw, nil
}

func (m *mockSettings) Save(_ context.Context, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.raw = raw
	m.saves = append(m.saves, raw)

	if m.cache != nil {
		m.cache.set(&monitor.CacheEntry{
			ExpiresAt: time.Now().Add(time.Hour),
			Plugins: []wporg.Plugin{
				{Slug: "akismet", Name: "Akismet", Version: "5.3", ActiveInstalls: 1000, Rating: 94, NumRatings: 12, Downloaded: 4000},
				{Slug: "hello-dolly", Name: "Hello Dolly", Version: "1.7.2", ActiveInstalls: 25000, Rating: 80, NumRatings: 3, Homepage: "https://wordpress.org/plugins/hello-dolly/"},
			},
		})
	}

	return nil
}

type mockCache struct {
	mu    sync.Mutex
	entry *monitor.CacheEntry
}

func (m *mockCache) set(entry *monitor.CacheEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entry = entry
}

func (m *mockCache) Entry(context.Context) (*monitor.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.entry, nil
}

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *http.Client, *mockSettings) {
	t.Helper()

	cache := &mockCache{}
	st := &mockSettings{cache: cache}

	handler, err := New(cfg, st, cache)
	require.NoError(t, err)

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return server, &http.Client{Jar: jar}, st
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}

func TestHandler_saveAndRender(t *testing.T) {
	server, client, st := newTestServer(t, Config{SessionSecret: "secret"})

	resp, err := client.Get(server.URL)
	require.NoError(t, err)

	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No plugin data found.")

	match := tokenExp.FindStringSubmatch(body)
	require.Len(t, match, 2)

	resp, err = client.PostForm(server.URL, url.Values{
		tokenField: {match[1]},
		slugsField: {" akismet, <b>hello-dolly</b>\n"},
	})
	require.NoError(t, err)

	body = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"akismet, hello-dolly"}, st.saves)

	assert.Contains(t, body, "<strong>Total Active Installations:</strong> 26,000")
	assert.Contains(t, body, "<strong>Total Ratings:</strong> 15")
	assert.Contains(t, body, "<strong>Total Downloads:</strong> 4,000")
	assert.Contains(t, body, "Hello Dolly <small>(hello-dolly)</small>")
	assert.Contains(t, body, `href="https://wordpress.org/plugins/hello-dolly/"`)
	assert.Contains(t, body, `value="akismet, hello-dolly"`)
	assert.NotContains(t, body, "No plugin data found.")
}

func TestHandler_renderEscapesOnce(t *testing.T) {
	server, client, st := newTestServer(t, Config{SessionSecret: "secret"})

	st.cache.set(&monitor.CacheEntry{
		ExpiresAt: time.Now().Add(time.Hour),
		Plugins: []wporg.Plugin{
			{Slug: "jetpack", Name: "Jetpack \u2013 WP Security, Backup, Speed, & Growth", Version: "13.2"},
		},
	})

	resp, err := client.Get(server.URL)
	require.NoError(t, err)

	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Jetpack \u2013 WP Security, Backup, Speed, &amp; Growth <small>(jetpack)</small>")
	assert.NotContains(t, body, "&amp;amp;")
	assert.NotContains(t, body, "&amp;#8211;")
}

func TestHandler_forgedSubmission(t *testing.T) {
	server, client, st := newTestServer(t, Config{SessionSecret: "secret"})

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = readBody(t, resp)

	resp, err = client.PostForm(server.URL, url.Values{
		tokenField: {"forged"},
		slugsField: {"akismet"},
	})
	require.NoError(t, err)
	_ = readBody(t, resp)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, st.saves)

	// no session at all.
	resp, err = http.PostForm(server.URL, url.Values{slugsField: {"akismet"}})
	require.NoError(t, err)
	_ = readBody(t, resp)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, st.saves)
}

func TestHandler_basicAuth(t *testing.T) {
	server, client, _ := newTestServer(t, Config{SessionSecret: "secret", AdminUsername: "admin", AdminPassword: "pass"})

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = readBody(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "wrong")

	resp, err = client.Do(req)
	require.NoError(t, err)
	_ = readBody(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.SetBasicAuth("admin", "pass")

	resp, err = client.Do(req)
	require.NoError(t, err)
	_ = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(server.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, "ok", readBody(t, resp))
}

func TestHandler_unknownPath(t *testing.T) {
	server, client, _ := newTestServer(t, Config{})

	resp, err := client.Get(server.URL + "/wp-admin")
	require.NoError(t, err)
	_ = readBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewPageData(t *testing.T) {
	entry := &monitor.CacheEntry{
		Plugins: []wporg.Plugin{
			{Slug: "a", Name: "A", ActiveInstalls: 1000, LastUpdated: "2024-03-21 6:58pm GMT"},
			{Slug: "b", ActiveInstalls: 25000, Downloaded: 1234567},
			{Slug: "c", Name: "C", LastUpdated: "unknown", PluginURL: "https://example.org/c"},
		},
	}

	data := newPageData("a,b,c", entry)

	assert.True(t, data.HasData)
	assert.Equal(t, "a,b,c", data.Raw)
	assert.Equal(t, summaryView{TotalActiveInstalls: "26,000", TotalRatings: "0", TotalDownloads: "1,234,567"}, data.Summary)

	require.Len(t, data.Plugins, 2)
	assert.Equal(t, "March 21, 2024", data.Plugins[0].LastUpdated)
	assert.Equal(t, "#", data.Plugins[0].Link)
	assert.Equal(t, "unknown", data.Plugins[1].LastUpdated)
	assert.Equal(t, "https://example.org/c", data.Plugins[1].Link)

	assert.False(t, newPageData("a", nil).HasData)
	assert.False(t, newPageData("a", &monitor.CacheEntry{}).HasData)
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		desc     string
		input    string
		expected string
	}{
		{
			desc:     "plain list",
			input:    "foo, bar",
			expected: "foo, bar",
		},
		{
			desc:     "tags removed",
			input:    "<script>alert(1)</script>foo",
			expected: "alert(1)foo",
		},
		{
			desc:     "whitespace collapsed",
			input:    "  foo,\n\tbar  ,  baz ",
			expected: "foo, bar , baz",
		},
		{
			desc:     "control characters removed",
			input:    "foo\x00bar",
			expected: "foobar",
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, test.expected, sanitizeText(test.input))
			assert.False(t, strings.ContainsAny(sanitizeText(test.input), "<>"))
		})
	}
}
