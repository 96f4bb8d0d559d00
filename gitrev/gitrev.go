// Package gitrev retrieves file content at arbitrary git revisions.
// It shells out to git, mirroring `git show <ref>:<path>`.
package gitrev

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned when the file does not exist at the revision.
var ErrNotExist = errors.New("file does not exist at revision")

// RepoRoot returns the top-level directory of the repository containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("not a git repository: %s", strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(out.String()), nil
}

// FileAtRevision returns the content of path as of ref. The path may be
// absolute or relative to repoRoot. A file missing at ref yields
// ErrNotExist, which callers treat as an empty old revision.
func FileAtRevision(ctx context.Context, repoRoot, ref, path string) ([]byte, error) {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(repoRoot, path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s against repo root: %w", path, err)
		}
		rel = r
	}

	cmd := exec.CommandContext(ctx, "git", "show", ref+":"+filepath.ToSlash(rel))
	cmd.Dir = repoRoot
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "does not exist") ||
			strings.Contains(msg, "exists on disk, but not in") {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("git show %s:%s: %s", ref, rel, strings.TrimSpace(msg))
	}
	return out.Bytes(), nil
}
