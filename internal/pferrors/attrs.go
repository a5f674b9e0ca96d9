package pferrors

import (
	"errors"
	"log/slog"
	"sort"
)

// ContextAttrs flattens the Context fields of every Error in err's chain into
// slog attributes, outermost error first, keys sorted within each error.
// Diagnostics such as duplicate-slug file paths or template ids live only in
// Context, so operator-facing logs must emit these alongside the message.
func ContextAttrs(err error) []slog.Attr {
	var attrs []slog.Attr
	seen := map[string]bool{}
	for err != nil {
		var pe *Error
		if !errors.As(err, &pe) {
			break
		}
		keys := make([]string, 0, len(pe.Context))
		for k := range pe.Context {
			if !seen[k] {
				keys = append(keys, k)
				seen[k] = true
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, pe.Context[k]))
		}
		err = pe.Cause
	}
	return attrs
}
