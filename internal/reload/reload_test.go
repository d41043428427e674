package reload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/pressify/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	assert.Equal(t, Message{Type: "reload"}, NewMessage(ModeFull, ""))
	assert.Equal(t, Message{Type: "inject", Pattern: "**/*.css", Suffix: ".css"}, NewMessage(ModeScoped, "**/*.css"))
	assert.JSONEq(t, `{"type":"inject","pattern":"**/*.css","suffix":".css"}`, string(NewMessage(ModeScoped, "**/*.css").encode()))
}

func TestPatternSuffix(t *testing.T) {
	testCases := []struct {
		pattern string
		want    string
	}{
		{"**/*.css", ".css"},
		{"*.min.css", ".min.css"},
		{"css/style.css", "/style.css"},
		{"assets/theme-?.css", ".css"},
		{"**", ""},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern, func(t *testing.T) {
			assert.Equal(t, tc.want, patternSuffix(tc.pattern))
		})
	}
}

func TestClientFiltersStylesheetsBySuffix(t *testing.T) {
	assert.Contains(t, clientScript, "refreshStyles(msg.suffix")
	assert.Contains(t, clientScript, "url.pathname.slice(-suffix.length) !== suffix")
}

func TestInjectScript(t *testing.T) {
	testCases := []struct {
		name string
		page string
	}{
		{"full document", "<!DOCTYPE html><html><head><title>x</title></head><body><p>hi</p></body></html>"},
		{"fragment", "<p>hi</p>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := InjectScript([]byte(tc.page), ClientPath)
			require.NoError(t, err)

			page := string(out)
			assert.Contains(t, page, `<script src="/__pressify/client.js" async="">`)
			assert.Contains(t, page, "<p>hi</p>")
			assert.Less(t, strings.Index(page, "<p>hi</p>"), strings.Index(page, "<script"))
		})
	}
}

func TestInjectScriptOnce(t *testing.T) {
	page := []byte(`<html><body><script src="/__pressify/client.js"></script></body></html>`)

	out, err := InjectScript(page, ClientPath)
	require.NoError(t, err)
	assert.Equal(t, page, out)
}

func startServer(t *testing.T, upstream http.Handler, adapter platform.Adapter, open bool) *Server {
	t.Helper()
	backend := httptest.NewServer(upstream)
	t.Cleanup(backend.Close)

	target, err := url.Parse(backend.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(Options{Host: "127.0.0.1", Port: 0, Target: target, Open: open}, adapter, nil)
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = s.Shutdown(shutdownCtx)
	})
	return s
}

func TestProxyInjectsClientIntoHTML(t *testing.T) {
	upstream := http.NewServeMux()
	upstream.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body>WordPress</body></html>")
	})
	upstream.HandleFunc("/style.css", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = io.WriteString(w, "body{}")
	})
	s := startServer(t, upstream, nil, false)

	resp, err := http.Get(s.URL() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "WordPress")
	assert.Contains(t, string(body), ClientPath)
	assert.Equal(t, int64(len(body)), resp.ContentLength)

	resp, err = http.Get(s.URL() + "/style.css")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "body{}", string(body))
}

func TestProxyServesClientScript(t *testing.T) {
	s := startServer(t, http.NotFoundHandler(), nil, false)

	resp, err := http.Get(s.URL() + ClientPath)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, string(body), SocketPath)
}

func TestProxyRewritesRedirects(t *testing.T) {
	var backendHost string
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://"+backendHost+"/wp-admin/", http.StatusFound)
	})
	s := startServer(t, upstream, nil, false)
	backendHost = s.opts.Target.Host

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(s.URL() + "/wp-login.php")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, s.URL()+"/wp-admin/", resp.Header.Get("Location"))
}

func TestNotifyReachesBrowsers(t *testing.T) {
	s := startServer(t, http.NotFoundHandler(), nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(s.URL(), "http") + SocketPath
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return s.Hub().Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Notify(ctx, ModeScoped, "**/*.css")

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, Message{Type: "inject", Pattern: "**/*.css", Suffix: ".css"}, msg)
}

func TestNotifyWithoutClientsIsSilent(t *testing.T) {
	s := startServer(t, http.NotFoundHandler(), nil, false)

	assert.NotPanics(t, func() {
		for i := 0; i < 100; i++ {
			s.Notify(context.Background(), ModeFull, "")
		}
	})
}

func TestStartOpensBrowser(t *testing.T) {
	adapter := &platform.Static{}
	s := startServer(t, http.NotFoundHandler(), adapter, true)

	assert.Equal(t, []string{s.URL()}, adapter.Opened)
}

func TestStartFailsOnBusyPort(t *testing.T) {
	first := startServer(t, http.NotFoundHandler(), nil, false)
	_, port, _ := strings.Cut(strings.TrimPrefix(first.URL(), "http://"), ":")

	target, _ := url.Parse("http://127.0.0.1:1")
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	s := NewServer(Options{Host: "127.0.0.1", Port: p, Target: target}, nil, nil)
	err = s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROXY_LISTEN_FAILED")
}
