package site

import (
	"sort"
	"time"
)

// Artifact is one final output file: destination path (relative to the site
// root, forward slashes), content, and content hash.
type Artifact struct {
	Path string
	Data []byte
	Hash string
}

// Snapshot is the complete, consistent output of one successful build.
// Immutable once published; the dev server always reads whole snapshots.
type Snapshot struct {
	Revision  uint64
	BuildID   string
	CreatedAt time.Time

	artifacts map[string]Artifact
}

func newSnapshot(buildID string, artifacts map[string]Artifact) *Snapshot {
	return &Snapshot{
		BuildID:   buildID,
		CreatedAt: time.Now().UTC(),
		artifacts: artifacts,
	}
}

// Get returns the artifact at path.
func (s *Snapshot) Get(path string) (Artifact, bool) {
	a, ok := s.artifacts[path]
	return a, ok
}

// Paths returns every artifact path, sorted.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.artifacts))
	for p := range s.artifacts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the artifact count.
func (s *Snapshot) Len() int {
	return len(s.artifacts)
}
