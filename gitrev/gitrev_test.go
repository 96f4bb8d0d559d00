package gitrev

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func gitOrSkip(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// initRepo creates a repository with one committed .strings file and
// returns its root.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run("init", "-q")
	if err := os.MkdirAll(filepath.Join(dir, "en.lproj"), 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "en.lproj", "Localizable.strings")
	if err := os.WriteFile(path, []byte("\"k\" = \"committed\";\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-q", "-m", "add strings")

	return dir
}

func TestRepoRoot(t *testing.T) {
	gitOrSkip(t)
	dir := initRepo(t)

	root, err := RepoRoot(context.Background(), filepath.Join(dir, "en.lproj"))
	if err != nil {
		t.Fatalf("RepoRoot error: %v", err)
	}
	// Resolve symlinks; macOS TempDir lives behind /private.
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Fatalf("RepoRoot = %q, want %q", got, want)
	}
}

func TestRepoRootOutsideRepo(t *testing.T) {
	gitOrSkip(t)
	if _, err := RepoRoot(context.Background(), t.TempDir()); err == nil {
		t.Fatal("RepoRoot outside a repository should fail")
	}
}

func TestFileAtRevision(t *testing.T) {
	gitOrSkip(t)
	dir := initRepo(t)

	// The working tree moved on; HEAD still has the committed content.
	path := filepath.Join(dir, "en.lproj", "Localizable.strings")
	if err := os.WriteFile(path, []byte("\"k\" = \"edited\";\n"), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := FileAtRevision(context.Background(), dir, "HEAD", path)
	if err != nil {
		t.Fatalf("FileAtRevision error: %v", err)
	}
	if string(data) != "\"k\" = \"committed\";\n" {
		t.Fatalf("content = %q", data)
	}

	// Relative paths work too.
	data, err = FileAtRevision(context.Background(), dir, "HEAD", filepath.Join("en.lproj", "Localizable.strings"))
	if err != nil {
		t.Fatalf("FileAtRevision relative error: %v", err)
	}
	if string(data) != "\"k\" = \"committed\";\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestFileAtRevisionMissingFile(t *testing.T) {
	gitOrSkip(t)
	dir := initRepo(t)

	_, err := FileAtRevision(context.Background(), dir, "HEAD", "no/such/file.strings")
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("error = %v, want ErrNotExist", err)
	}
}
