package devserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/pageforge/internal/config"
	"git.home.luguber.info/inful/pageforge/internal/logfields"
	"git.home.luguber.info/inful/pageforge/internal/pferrors"
	"git.home.luguber.info/inful/pageforge/internal/site"
)

// rescanInterval is how often the watcher re-walks the source roots to pick
// up directories whose creation events were missed.
const rescanInterval = 5 * time.Minute

// Loop is the dev mode supervisor: one watcher, one debouncer, one rebuild
// consumer, one HTTP server. Rebuild failures are logged and the previous
// snapshot stays live.
type Loop struct {
	cfg     *config.Config
	builder *site.Builder
	server  *Server
	metrics *Metrics
	deb     *Debouncer
}

func NewLoop(cfg *config.Config, builder *site.Builder) *Loop {
	m := NewMetrics()
	return &Loop{
		cfg:     cfg,
		builder: builder,
		server:  NewServer(m),
		metrics: m,
		deb:     NewDebouncer(DefaultQuietWindow, DefaultMaxDelay),
	}
}

// Handler exposes the HTTP surface, mainly for tests.
func (l *Loop) Handler() http.Handler {
	return l.server
}

// Rebuild runs one build pass and swaps the served snapshot on success.
func (l *Loop) Rebuild(ctx context.Context) error {
	start := time.Now()
	res, err := l.builder.Build(ctx)
	l.metrics.ObserveBuild(time.Since(start), err)
	if err != nil {
		return err
	}
	l.server.Swap(res.Snapshot)
	return nil
}

// Run blocks until ctx is canceled. The initial build must succeed; after
// that, build failures only log.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Rebuild(ctx); err != nil {
		return err
	}

	roots := []string{l.cfg.Posts, l.cfg.Pages, l.cfg.Templates, l.cfg.Assets}
	watcher, err := NewWatcher(roots, func(string) { l.deb.Notify() })
	if err != nil {
		return err
	}
	defer watcher.Close()
	go watcher.Run(ctx)
	go l.deb.Run(ctx)

	sched, err := gocron.NewScheduler()
	if err != nil {
		return pferrors.Wrap(err, pferrors.CategoryInternal, pferrors.SeverityFatal, "failed to create scheduler")
	}
	if _, err := sched.NewJob(gocron.DurationJob(rescanInterval), gocron.NewTask(watcher.Rescan)); err != nil {
		return pferrors.Wrap(err, pferrors.CategoryInternal, pferrors.SeverityFatal, "failed to schedule rescan job")
	}
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	httpSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(l.cfg.Port),
		Handler:           l.server,
		ReadHeaderTimeout: 10 * time.Second,
		// SSE connections are long-lived; no write timeout.
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.ListenAndServe() }()
	slog.Info("dev server listening", logfields.Port(l.cfg.Port))

	for {
		select {
		case <-ctx.Done():
			l.server.Shutdown()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
			return nil

		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return pferrors.IOError("listen", httpSrv.Addr, err)

		case <-l.deb.C():
			if err := l.Rebuild(ctx); err != nil {
				args := []any{logfields.Error(err)}
				for _, a := range pferrors.ContextAttrs(err) {
					args = append(args, a)
				}
				slog.Error("rebuild failed, keeping previous snapshot", args...)
			}
		}
	}
}
