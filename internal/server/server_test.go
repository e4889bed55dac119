package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetsmith/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// layeredRoots creates a temp tree that shadows part of a dev tree.
func layeredRoots(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	temp := filepath.Join(dir, ".tmp")
	dev := filepath.Join(dir, "src")

	writeFile(t, filepath.Join(dev, "index.html"), "<html><body><h1>dev</h1></body></html>")
	writeFile(t, filepath.Join(dev, "css", "main.scss"), "$a: 1;")
	writeFile(t, filepath.Join(dev, "css", "main.css"), "/* stale */")
	writeFile(t, filepath.Join(temp, "css", "main.css"), "body{color:red}")
	writeFile(t, filepath.Join(dev, "docs", "index.html"), "<p>docs</p>")
	writeFile(t, filepath.Join(dev, "img", "icon.weird"), "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	return temp, dev
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func newTestServer(t *testing.T) (*DevServer, *httptest.Server) {
	t.Helper()
	temp, dev := layeredRoots(t)
	s := New(config.ServerConfig{Host: "127.0.0.1"}, []string{temp, dev}, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		ts.Close()
	})
	return s, ts
}

func TestStaticLayeredRoots(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/css/main.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{color:red}", body, "temp shadows dev")
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")

	resp, body = get(t, ts.URL+"/css/main.scss")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "$a: 1;", body)

	resp, _ = get(t, ts.URL+"/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticStaysInsideRoots(t *testing.T) {
	temp, dev := layeredRoots(t)
	writeFile(t, filepath.Join(filepath.Dir(dev), "secret.txt"), "secret")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret.txt"
	Static{Roots: []string{temp, dev}}.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	Static{Roots: []string{dev}}.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/index.html", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStaticIndexAndInjection(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `<html><body><h1>dev</h1><script src="/__livereload.js"></script></body></html>`, body)

	resp, _ = get(t, ts.URL+"/docs")
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/docs/", resp.Header.Get("Location"))

	resp, body = get(t, ts.URL+"/docs/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `<p>docs</p><script src="/__livereload.js"></script>`, body)
}

func TestStaticDetectsUnknownExtensions(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/img/icon.weird")
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestLiveReloadScript(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+ScriptPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, body, SocketPath)
}

func TestInjectScript(t *testing.T) {
	assert.Equal(t, `<BODY>x<script src="/__livereload.js"></script></BODY>`, string(InjectScript([]byte("<BODY>x</BODY>"))))
	assert.Equal(t, `<p>x</p><script src="/__livereload.js"></script>`, string(InjectScript([]byte("<p>x</p>"))))
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+SocketPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestReloadBroadcast(t *testing.T) {
	s, ts := newTestServer(t)
	a := dial(t, ts)
	b := dial(t, ts)
	require.Eventually(t, func() bool { return s.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	s.Reload()
	assert.Equal(t, "reload", readMessage(t, a).Type)
	assert.Equal(t, "reload", readMessage(t, b).Type)

	s.InjectCSS([]string{"css/main.css"})
	msg := readMessage(t, a)
	assert.Equal(t, "css", msg.Type)
	assert.Equal(t, []string{"css/main.css"}, msg.Paths)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestCSSMessageWireFormat(t *testing.T) {
	data, err := json.Marshal(Message{Type: "css", Paths: []string{"css/main.css"}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"css","paths":["css/main.css"]`)
	assert.NotContains(t, string(data), `"path":`)
}

func TestInjectCSSWithoutPathsIsNoop(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.InjectCSS(nil)
	s.Reload()
	assert.Equal(t, "reload", readMessage(t, conn).Type)
}

func TestClientDisconnectUnregisters(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close(websocket.StatusNormalClosure, "bye")
	assert.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	testCases := []struct {
		origin string
		host   string
		ok     bool
	}{
		{"", "localhost:3000", true},
		{"http://localhost:3000", "localhost:3000", true},
		{"http://127.0.0.1:3000", "localhost:3000", true},
		{"https://evil.example", "localhost:3000", false},
		{"file://x", "localhost:3000", false},
		{"http://localhost:4000", "localhost:3000", false},
	}
	for _, tc := range testCases {
		r := httptest.NewRequest(http.MethodGet, "/__livereload", nil)
		r.Host = tc.host
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		assert.Equal(t, tc.ok, checkOrigin(r), tc.origin)
	}
}

func TestStartAndShutdown(t *testing.T) {
	temp, dev := layeredRoots(t)
	s := New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, []string{temp, dev}, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotEmpty(t, s.Addr())

	resp, body := get(t, s.URL()+"/css/main.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{color:red}", body)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, s.Shutdown(ctx), "shutdown is idempotent")

	_, err := http.Get(s.URL())
	assert.Error(t, err)
}
