// Package devserver runs the local preview loop: an HTTP server over the
// latest build snapshot, a recursive filesystem watcher, and an SSE channel
// that tells open pages to reload after each successful rebuild.
package devserver

import (
	"bytes"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync/atomic"

	"git.home.luguber.info/inful/pageforge/internal/site"
)

// Server serves the current snapshot from memory. The snapshot pointer is
// swapped atomically after each successful rebuild; requests in flight keep
// reading the snapshot they started with.
type Server struct {
	snapshot atomic.Pointer[site.Snapshot]
	hub      *ReloadHub
	metrics  *Metrics
	mux      *http.ServeMux
}

func NewServer(m *Metrics) *Server {
	s := &Server{hub: NewReloadHub(m), metrics: m}
	mux := http.NewServeMux()
	mux.Handle("/__pageforge/reload", s.hub)
	mux.HandleFunc("/__pageforge/reload.js", serveReloadScript)
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/", s.serveArtifact)
	s.mux = mux
	return s
}

// Swap publishes a new snapshot and notifies connected pages.
func (s *Server) Swap(snap *site.Snapshot) {
	s.snapshot.Store(snap)
	s.hub.Broadcast(snap.Revision)
}

// Snapshot returns the currently served snapshot, or nil before first build.
func (s *Server) Snapshot() *site.Snapshot {
	return s.snapshot.Load()
}

func (s *Server) Shutdown() {
	s.hub.Shutdown()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot.Load()
	if snap == nil {
		http.Error(w, "no build yet", http.StatusServiceUnavailable)
		return
	}

	art, ok := snap.Get(artifactPath(r.URL.Path))
	if !ok {
		http.NotFound(w, r)
		return
	}

	data := art.Data
	ctype := contentTypeFor(art.Path)
	if strings.HasPrefix(ctype, "text/html") {
		data = injectReloadScript(data)
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}

// artifactPath maps a request path to a snapshot artifact path.
func artifactPath(urlPath string) string {
	p := path.Clean("/" + urlPath)
	if p == "/" {
		return "index.html"
	}
	p = strings.TrimPrefix(p, "/")
	if strings.HasSuffix(urlPath, "/") {
		return p + "/index.html"
	}
	return p
}

func contentTypeFor(artPath string) string {
	ext := path.Ext(artPath)
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// injectReloadScript inserts the live-reload client before </body>, or
// appends it when no body close tag is present.
func injectReloadScript(html []byte) []byte {
	tag := []byte(`<script src="/__pageforge/reload.js" async></script>`)
	if i := bytes.LastIndex(html, []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(html)+len(tag))
		out = append(out, html[:i]...)
		out = append(out, tag...)
		out = append(out, html[i:]...)
		return out
	}
	return append(append([]byte{}, html...), tag...)
}

func serveReloadScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(reloadScript))
}
