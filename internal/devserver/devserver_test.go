package devserver

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pageforge/internal/config"
	"git.home.luguber.info/inful/pageforge/internal/site"
)

func testProject(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{
		Title:     "Dev Site",
		BaseURL:   "http://localhost:8080",
		Output:    filepath.Join(root, "dist"),
		Posts:     filepath.Join(root, "posts"),
		Pages:     filepath.Join(root, "pages"),
		Templates: filepath.Join(root, "templates"),
		Assets:    filepath.Join(root, "assets"),
		Port:      8080,
	}
	require.NoError(t, os.MkdirAll(cfg.Posts, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Assets, 0o755))
	writePost(t, cfg, "hello.md", `---
title: Hello
date: 2024-02-01
---
Hello world.
`)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Assets, "styles.css"), []byte("body{}"), 0o644))
	return cfg
}

func writePost(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Posts, name), []byte(content), 0o644))
}

func TestServerServesSnapshot(t *testing.T) {
	cfg := testProject(t)
	loop := NewLoop(cfg, site.NewBuilder(cfg, nil))
	require.NoError(t, loop.Rebuild(context.Background()))

	ts := httptest.NewServer(loop.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body := readAll(t, resp)
	assert.Contains(t, body, "Dev Site")
	assert.Contains(t, body, "/__pageforge/reload.js", "HTML pages must carry the reload client")

	resp, err = http.Get(ts.URL + "/assets/styles.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, readAll(t, resp), "reload.js", "non-HTML artifacts are served verbatim")

	resp, err = http.Get(ts.URL + "/no-such-page.html")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerBeforeFirstBuild(t *testing.T) {
	loop := NewLoop(testProject(t), nil)

	ts := httptest.NewServer(loop.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRebuildFailureKeepsPreviousSnapshot(t *testing.T) {
	cfg := testProject(t)
	loop := NewLoop(cfg, site.NewBuilder(cfg, nil))
	require.NoError(t, loop.Rebuild(context.Background()))
	rev1 := loop.server.Snapshot().Revision

	// unterminated code fence: the pass must fail
	writePost(t, cfg, "hello.md", `---
title: Hello
date: 2024-02-01
---
`+"```go\nbroken\n")

	err := loop.Rebuild(context.Background())
	require.Error(t, err)
	require.NotNil(t, loop.server.Snapshot())
	assert.Equal(t, rev1, loop.server.Snapshot().Revision, "failed build must not advance the snapshot")

	old, ok := loop.server.Snapshot().Get("hello.html")
	require.True(t, ok)
	assert.Contains(t, string(old.Data), "Hello world.")

	// fix it: snapshot advances
	writePost(t, cfg, "hello.md", `---
title: Hello
date: 2024-02-01
---
Fixed body.
`)
	require.NoError(t, loop.Rebuild(context.Background()))
	assert.Greater(t, loop.server.Snapshot().Revision, rev1)
	fixed, _ := loop.server.Snapshot().Get("hello.html")
	assert.Contains(t, string(fixed.Data), "Fixed body.")
}

func TestReloadHubBroadcast(t *testing.T) {
	m := NewMetrics()
	hub := NewReloadHub(m)
	defer hub.Shutdown()

	ts := httptest.NewServer(hub)
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	requireLine(t, lines, ": connected")

	// give the client goroutine time to register before broadcasting
	time.Sleep(50 * time.Millisecond)
	hub.Broadcast(7)
	requireLine(t, lines, `data: {"revision":7}`)

	// stale revision is ignored
	hub.Broadcast(7)
	hub.Broadcast(8)
	requireLine(t, lines, `data: {"revision":8}`)
}

func requireLine(t *testing.T, lines <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed while waiting for %q", want)
			}
			if line == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, 500*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for i := 0; i < 10; i++ {
		d.Notify()
	}

	select {
	case <-d.C():
	case <-time.After(2 * time.Second):
		t.Fatal("expected one emission after quiet window")
	}

	select {
	case <-d.C():
		t.Fatal("burst must coalesce into a single emission")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncerMaxDelayBound(t *testing.T) {
	d := NewDebouncer(80*time.Millisecond, 250*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// keep the filesystem "noisy": never quiet long enough for the quiet
	// window, so only the max delay can fire
	stop := time.After(600 * time.Millisecond)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	start := time.Now()
	for {
		select {
		case <-tick.C:
			d.Notify()
		case <-d.C():
			elapsed := time.Since(start)
			assert.Less(t, elapsed, 500*time.Millisecond, "max delay must bound postponement")
			return
		case <-stop:
			t.Fatal("debouncer starved by continuous events")
		}
	}
}

func TestArtifactPathMapping(t *testing.T) {
	assert.Equal(t, "index.html", artifactPath("/"))
	assert.Equal(t, "hello.html", artifactPath("/hello.html"))
	assert.Equal(t, "tags/go.html", artifactPath("/tags/go.html"))
	assert.Equal(t, "assets/styles.css", artifactPath("/assets/styles.css"))
	assert.Equal(t, "index.html", artifactPath("/../../etc/passwd/../.."))
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
