package devserver

import (
	"bufio"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ReloadHub manages SSE clients for revision-change broadcasts. Clients that
// cannot keep up are dropped rather than allowed to stall a broadcast.
type ReloadHub struct {
	mu           sync.RWMutex
	nextID       int
	clients      map[int]*reloadClient
	metrics      *Metrics
	closed       bool
	lastRevision uint64
}

type reloadClient struct {
	id   int
	ch   chan uint64
	done chan struct{}
}

func NewReloadHub(m *Metrics) *ReloadHub {
	return &ReloadHub{clients: map[int]*reloadClient{}, metrics: m}
}

// ServeHTTP implements the SSE endpoint. Each connected client receives the
// current revision immediately and a new event after every successful rebuild.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "reload hub shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &reloadClient{ch: make(chan uint64, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.lastRevision
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetReloadClients(count)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		slog.Debug("reload write", slog.Any("error", err))
		h.removeClient(client.id)
		return
	}
	if current > 0 {
		writeRevision(bw, current)
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(30 * time.Second)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(client.id)
			return
		case <-client.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err == nil {
				bw.Flush()
				flusher.Flush()
			} else {
				h.removeClient(client.id)
				return
			}
		case rev := <-client.ch:
			writeRevision(bw, rev)
			if err := bw.Flush(); err == nil {
				flusher.Flush()
			} else {
				h.removeClient(client.id)
				return
			}
		}
	}
}

func writeRevision(bw *bufio.Writer, rev uint64) {
	bw.WriteString("data: {\"revision\":" + strconv.FormatUint(rev, 10) + "}\n\n")
}

func (h *ReloadHub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
		h.metrics.SetReloadClients(len(h.clients))
	}
}

// Broadcast notifies all clients of a new snapshot revision. Revisions only
// ever increase; stale or duplicate values are ignored.
func (h *ReloadHub) Broadcast(revision uint64) {
	h.mu.Lock()
	if h.closed || revision <= h.lastRevision {
		h.mu.Unlock()
		return
	}
	h.lastRevision = revision
	snapshot := make([]*reloadClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- revision:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.metrics.IncBroadcasts()
	slog.Debug("reload broadcast",
		slog.Uint64("revision", revision),
		slog.Int("clients", len(snapshot)),
		slog.Int("dropped", dropped))
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *ReloadHub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*reloadClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.metrics.SetReloadClients(0)
}

// reloadScript is injected into served HTML pages. It reloads the page when
// the server announces a revision newer than the one the page was built from.
const reloadScript = `(() => {
  if (window.__PAGEFORGE_LR__) return;
  window.__PAGEFORGE_LR__ = true;
  function connect(){
    const es = new EventSource('/__pageforge/reload');
    let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (current === null) { current = p.revision; return; }
        if (p.revision > current) { location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`
