package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pageforge/internal/config"
	"git.home.luguber.info/inful/pageforge/internal/devserver"
	"git.home.luguber.info/inful/pageforge/internal/logfields"
	"git.home.luguber.info/inful/pageforge/internal/pferrors"
	"git.home.luguber.info/inful/pageforge/internal/scaffold"
	"git.home.luguber.info/inful/pageforge/internal/site"
	"git.home.luguber.info/inful/pageforge/internal/state"
)

// stateFile holds node hashes between runs so unchanged pages are not
// re-rendered.
const stateFile = ".pageforge.db"

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"pageforge.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output string `short:"o" help:"Override output directory"`
		Clean  bool   `help:"Ignore saved build state and render everything"`
	} `cmd:"" help:"Build the site once and exit"`

	Dev struct {
		Port int `short:"p" help:"Override HTTP port"`
	} `cmd:"" help:"Serve the site locally and rebuild on change"`

	Init struct {
		Dir      string `short:"d" help:"Target directory" default:"."`
		Template string `help:"Git URL of a template repository to clone"`
		Force    bool   `help:"Overwrite an existing non-empty directory"`
	} `cmd:"" help:"Create a new site project"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch kctx.Command() {
	case "build":
		err = runBuild(ctx)
	case "dev":
		err = runDev(ctx)
	case "init":
		err = scaffold.Create(ctx, scaffold.Options{
			Dir:      CLI.Init.Dir,
			Template: CLI.Init.Template,
			Force:    CLI.Init.Force,
		})
	}
	if err != nil {
		args := []any{logfields.Error(err)}
		for _, a := range pferrors.ContextAttrs(err) {
			args = append(args, a)
		}
		slog.Error("command failed", args...)
		os.Exit(1)
	}
}

func runBuild(ctx context.Context) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Build.Output != "" {
		cfg.Output = CLI.Build.Output
	}

	var st *state.Store
	if !CLI.Build.Clean {
		st, err = state.Open(stateFile)
		if err != nil {
			slog.Warn("build state unavailable, rendering everything", logfields.Error(err))
		} else {
			defer st.Close()
		}
	}

	builder := site.NewBuilder(cfg, st)
	if st != nil {
		if err := builder.RestoreState(ctx); err != nil {
			slog.Warn("failed to restore build state", logfields.Error(err))
		}
	}

	res, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	slog.Info("site published",
		logfields.Path(cfg.Output),
		slog.Int("rendered", res.Stats.Rendered),
		slog.Int("skipped", res.Stats.Skipped))
	return nil
}

func runDev(ctx context.Context) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Dev.Port != 0 {
		cfg.Port = CLI.Dev.Port
	}

	st, err := state.Open(stateFile)
	if err != nil {
		slog.Warn("build state unavailable, rendering everything", logfields.Error(err))
		st = nil
	} else {
		defer st.Close()
	}

	builder := site.NewBuilder(cfg, st)
	if st != nil {
		if err := builder.RestoreState(ctx); err != nil {
			slog.Warn("failed to restore build state", logfields.Error(err))
		}
	}

	return devserver.NewLoop(cfg, builder).Run(ctx)
}
