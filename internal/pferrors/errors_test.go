package pferrors

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrMap(attrs []slog.Attr) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value.Any()
	}
	return m
}

func TestDuplicateSlugReportsBothPaths(t *testing.T) {
	err := DuplicateSlug("intro", "posts/a.md", "posts/b.md")

	m := attrMap(ContextAttrs(err))
	assert.Equal(t, "intro", m["slug"])
	assert.Equal(t, "posts/a.md", m["path"])
	assert.Equal(t, "posts/b.md", m["other_path"])
}

func TestTemplateErrorsCarryIDAndKey(t *testing.T) {
	m := attrMap(ContextAttrs(TemplateNotFound("post")))
	assert.Equal(t, "post", m["template"])

	m = attrMap(ContextAttrs(MissingVariable("index", "site.title")))
	assert.Equal(t, "index", m["template"])
	assert.Equal(t, "site.title", m["key"])
}

func TestContextAttrsWalksChain(t *testing.T) {
	inner := New(CategoryParse, SeverityFatal, "bad fence").
		WithContext("path", "posts/broken.md")
	outer := BuildFailed("post:broken", inner).
		WithContext("file", "posts/broken.md")

	attrs := ContextAttrs(outer)
	m := attrMap(attrs)
	assert.Equal(t, "post:broken", m["node"])
	assert.Equal(t, "posts/broken.md", m["file"])
	assert.Equal(t, "posts/broken.md", m["path"])

	// outermost error's fields come first
	require.NotEmpty(t, attrs)
	assert.Contains(t, []string{"file", "node"}, attrs[0].Key)
}

func TestContextAttrsNonStructuredError(t *testing.T) {
	assert.Empty(t, ContextAttrs(errors.New("plain")))
	assert.Empty(t, ContextAttrs(nil))
}

func TestIsCategoryWalksChain(t *testing.T) {
	inner := New(CategoryContent, SeverityFatal, "duplicate slug")
	outer := Wrap(inner, CategoryBuild, SeverityFatal, "build failed")

	assert.True(t, IsCategory(outer, CategoryBuild))
	assert.True(t, IsCategory(outer, CategoryContent))
	assert.False(t, IsCategory(outer, CategoryTemplate))
}
