package site

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pageforge/internal/pferrors"
)

// publishDir writes all artifacts into a staging directory next to outputDir
// and swaps it in with renames. The live tree is never left half-written: on
// any failure the staging directory is removed and outputDir is untouched.
func publishDir(outputDir, buildID string, artifacts map[string]Artifact) error {
	base := strings.TrimRight(outputDir, string(os.PathSeparator))
	staging := base + ".staging-" + shortID(buildID)

	if err := writeTree(staging, artifacts); err != nil {
		_ = os.RemoveAll(staging)
		return err
	}

	old := base + ".old-" + shortID(buildID)
	hadPrevious := false
	if _, err := os.Stat(outputDir); err == nil {
		hadPrevious = true
		if err := os.Rename(outputDir, old); err != nil {
			_ = os.RemoveAll(staging)
			return pferrors.IOError("rename", outputDir, err)
		}
	}

	if err := os.Rename(staging, outputDir); err != nil {
		if hadPrevious {
			_ = os.Rename(old, outputDir)
		}
		_ = os.RemoveAll(staging)
		return pferrors.IOError("rename", staging, err)
	}

	if hadPrevious {
		_ = os.RemoveAll(old)
	}
	return nil
}

func writeTree(root string, artifacts map[string]Artifact) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return pferrors.IOError("mkdir", root, err)
	}
	for _, art := range artifacts {
		full := filepath.Join(root, filepath.FromSlash(art.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return pferrors.IOError("mkdir", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, art.Data, 0o644); err != nil {
			return pferrors.IOError("write", full, err)
		}
	}
	return nil
}

// shortID keeps staging directory names readable.
func shortID(buildID string) string {
	if len(buildID) > 8 {
		return buildID[:8]
	}
	return buildID
}
