// Package templates composes rendered fragments with layout templates.
//
// The engine is deliberately narrow: variable lookup, conditionals, and
// iteration over ordered lists, backed by text/template with a fixed function
// map. Missing variables and unknown template ids are reported as structured
// errors carrying the template id and key name.
package templates

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"

	"git.home.luguber.info/inful/pageforge/internal/pferrors"
)

//go:embed builtin/*.html
var builtinFS embed.FS

// funcs is the complete function surface available inside templates.
// Nothing here performs I/O or reaches outside the passed context.
var funcs = template.FuncMap{
	"formatDate": func(v any) string {
		switch t := v.(type) {
		case time.Time:
			return t.Format("January 2, 2006")
		case string:
			if parsed, err := time.Parse("2006-01-02", t); err == nil {
				return parsed.Format("January 2, 2006")
			}
			return t
		default:
			return ""
		}
	},
}

// Store holds parsed templates addressed by id (file base name without
// extension). Site templates override builtins of the same id.
type Store struct {
	templates map[string]*template.Template
	hashes    map[string]string
}

// Load reads *.html templates from dir, overlaying them on the builtins.
// A missing directory leaves only the builtins active.
func Load(dir string) (*Store, error) {
	s := &Store{
		templates: make(map[string]*template.Template),
		hashes:    make(map[string]string),
	}

	if err := fs.WalkDir(builtinFS, "builtin", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return err
		}
		return s.add(idFor(path), data)
	}); err != nil {
		return nil, pferrors.Wrap(err, pferrors.CategoryTemplate, pferrors.SeverityFatal, "failed to load builtin templates")
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return s, nil
			}
			return nil, pferrors.IOError("readdir", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, pferrors.IOError("read", path, err)
			}
			if err := s.add(idFor(path), data); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

func (s *Store) add(id string, body []byte) error {
	tpl, err := template.New(id).Funcs(funcs).Option("missingkey=error").Parse(string(body))
	if err != nil {
		return pferrors.Wrap(err, pferrors.CategoryTemplate, pferrors.SeverityFatal, "failed to parse template").
			WithContext("template", id)
	}
	s.templates[id] = tpl
	s.hashes[id] = hashHex(body)
	return nil
}

// Hash returns the content hash of template id, or "" if unknown. Build nodes
// fold template hashes into their input hashes so template edits invalidate
// dependents.
func (s *Store) Hash(id string) string {
	return s.hashes[id]
}

// IDs returns all known template ids, sorted.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// missingKeyRE matches text/template's missingkey=error message shape.
var missingKeyRE = regexp.MustCompile(`map has no entry for key "([^"]+)"`)

// Render executes template id against ctx.
func (s *Store) Render(id string, ctx Context) (string, error) {
	tpl, ok := s.templates[id]
	if !ok {
		return "", pferrors.TemplateNotFound(id)
	}

	var data any
	if ctx != nil {
		data = ctx.toAny()
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		if m := missingKeyRE.FindStringSubmatch(err.Error()); m != nil {
			return "", pferrors.MissingVariable(id, m[1])
		}
		return "", pferrors.Wrap(err, pferrors.CategoryTemplate, pferrors.SeverityFatal, "template execution failed").
			WithContext("template", id)
	}
	return buf.String(), nil
}

func idFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
