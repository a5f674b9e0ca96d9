// Package scaffold creates new site projects, either from the built-in
// starter files or by cloning a template repository.
package scaffold

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/pageforge/internal/logfields"
	"git.home.luguber.info/inful/pageforge/internal/pferrors"
)

// Options controls project creation.
type Options struct {
	Dir      string // target directory
	Template string // optional git URL to clone instead of the starter files
	Force    bool   // overwrite an existing non-empty directory
}

// Create initializes a new project in opts.Dir. The target must be empty or
// nonexistent unless Force is set.
func Create(ctx context.Context, opts Options) error {
	if opts.Dir == "" {
		opts.Dir = "."
	}

	if !opts.Force {
		if err := requireEmpty(opts.Dir); err != nil {
			return err
		}
	}

	if opts.Template != "" {
		return cloneTemplate(ctx, opts)
	}
	return writeStarter(opts.Dir)
}

func requireEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return pferrors.IOError("readdir", dir, err)
	}
	if len(entries) > 0 {
		return pferrors.New(pferrors.CategoryConfig, pferrors.SeverityFatal, "target directory is not empty (use --force to override)").
			WithContext("path", dir)
	}
	return nil
}

// cloneTemplate clones a template repository and strips its git history so
// the new project starts clean.
func cloneTemplate(ctx context.Context, opts Options) error {
	slog.Debug("cloning template", slog.String("url", opts.Template), logfields.Path(opts.Dir))

	if opts.Force {
		if err := os.RemoveAll(opts.Dir); err != nil {
			return pferrors.IOError("remove", opts.Dir, err)
		}
	}

	_, err := git.PlainCloneContext(ctx, opts.Dir, false, &git.CloneOptions{
		URL: opts.Template,
	})
	if err != nil {
		return pferrors.Wrap(err, pferrors.CategoryIO, pferrors.SeverityFatal, "failed to clone template repository").
			WithContext("url", opts.Template)
	}

	if err := os.RemoveAll(filepath.Join(opts.Dir, ".git")); err != nil {
		return pferrors.IOError("remove", filepath.Join(opts.Dir, ".git"), err)
	}

	slog.Info("project created from template", slog.String("url", opts.Template), logfields.Path(opts.Dir))
	return nil
}

func writeStarter(dir string) error {
	files := map[string]string{
		"pageforge.yaml":    starterConfig,
		"posts/welcome.md":  starterPost,
		"assets/styles.css": starterStyles,
	}
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return pferrors.IOError("mkdir", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return pferrors.IOError("write", full, err)
		}
	}
	slog.Info("project created", logfields.Path(dir), logfields.Count(len(files)))
	return nil
}
