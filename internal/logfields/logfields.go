package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyRevision   = "revision"
	KeyNode       = "node"
	KeyStage      = "stage"
	KeyPath       = "path"
	KeyFile       = "file"
	KeySlug       = "slug"
	KeyTemplate   = "template"
	KeyDurationMS = "duration_ms"
	KeyPort       = "port"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Revision(rev uint64) slog.Attr   { return slog.Uint64(KeyRevision, rev) }
func Node(id string) slog.Attr        { return slog.String(KeyNode, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Template(id string) slog.Attr    { return slog.String(KeyTemplate, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
