package slugify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Already--slugged  ", "already-slugged"},
		{"Crème Brûlée!", "creme-brulee"},
		{"Go 1.24 Release Notes", "go-1-24-release-notes"},
		{"___", ""},
		{"Ünïcödé", "unicode"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), "input %q", tc.in)
	}
}

func TestUniquerSuffixesInOrder(t *testing.T) {
	u := NewUniquer()
	assert.Equal(t, "intro", u.Next("intro"))
	assert.Equal(t, "intro-1", u.Next("intro"))
	assert.Equal(t, "intro-2", u.Next("intro"))
	assert.Equal(t, "outro", u.Next("outro"))
}

func TestUniquerSkipsTakenSuffixes(t *testing.T) {
	u := NewUniquer()
	// "Intro", "Intro 1", "Intro": the suffix for the repeat must not
	// collide with the literal "intro-1" already handed out
	assert.Equal(t, "intro", u.Next("intro"))
	assert.Equal(t, "intro-1", u.Next("intro-1"))
	assert.Equal(t, "intro-2", u.Next("intro"))
	assert.Equal(t, "intro-1-1", u.Next("intro-1"))
}
