package project

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// DefaultBranch is assumed when the remote has no origin/main.
const DefaultBranch = "master"

// GitLinker links files to their hosted repository using the git CLI.
// Lookups are cached per directory.
//
// Thread Safety:
//   - Safe for concurrent use
type GitLinker struct {
	remoteURL string
	logger    *slog.Logger

	mu       sync.Mutex
	roots    map[string]string
	branches map[string]string
}

// NewGitLinker creates a linker for the repository containing dir.
func NewGitLinker(dir string, logger *slog.Logger) *GitLinker {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitLinker{
		remoteURL: GitRemoteURL(dir),
		logger:    logger,
		roots:     make(map[string]string),
		branches:  make(map[string]string),
	}
}

// RemoteURL returns the origin URL the linker was created with.
func (g *GitLinker) RemoteURL() string {
	return g.remoteURL
}

// RemoteFileURL returns the URL of path in the hosted repository, or ""
// when the repository has no origin.
func (g *GitLinker) RemoteFileURL(path string) string {
	if g.remoteURL == "" {
		return ""
	}
	root := g.repoRoot(path)
	if root == "" {
		return ""
	}
	branch := g.defaultBranch(root)
	url, known := RemoteFileURL(g.remoteURL, root, branch, path)
	if !known {
		g.logger.Debug("Unknown remote URL - assuming GitHub Enterprise", "url", g.remoteURL)
	}
	return url
}

// StorybookURL returns the Storybook docs page of the stories in path.
func (g *GitLinker) StorybookURL(path, base string) string {
	root := g.repoRoot(path)
	if root == "" {
		return ""
	}
	return StorybookURL(root, path, base)
}

func (g *GitLinker) repoRoot(path string) string {
	dir := path
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if root, ok := g.roots[dir]; ok {
		return root
	}
	root := GitRepoRoot(dir)
	g.roots[dir] = root
	return root
}

func (g *GitLinker) defaultBranch(root string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.branches[root]; ok {
		return b
	}
	b := GitDefaultBranch(root)
	g.branches[root] = b
	return b
}

func git(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// GitRemoteURL returns the origin URL of the repository containing dir.
func GitRemoteURL(dir string) string {
	return git(dir, "config", "--get", "remote.origin.url")
}

// GitRepoRoot returns the top level directory of the repository containing
// dir, with forward slashes.
func GitRepoRoot(dir string) string {
	return filepath.ToSlash(git(dir, "rev-parse", "--show-toplevel"))
}

// GitDefaultBranch returns "main" when the remote has an origin/main
// branch, and DefaultBranch otherwise.
func GitDefaultBranch(root string) string {
	for _, b := range strings.Split(git(root, "branch", "-r"), "\n") {
		if strings.TrimSpace(b) == "origin/main" {
			return "main"
		}
	}
	return DefaultBranch
}

var dotGitSuffix = regexp.MustCompile(`\.git$`)

// RemoteFileURL builds the browser URL of path for the remote. known is
// false when the host is not recognised and the GitHub form is assumed.
func RemoteFileURL(remote, root, branch, path string) (url string, known bool) {
	path = filepath.ToSlash(path)
	u := strings.TrimSpace(remote)
	if strings.HasPrefix(u, "git@") {
		u = strings.Replace(u, ":", "/", 1)
		u = strings.Replace(u, "git@", "https://", 1)
	}
	u = dotGitSuffix.ReplaceAllString(u, "")

	i := strings.Index(path, root)
	if root == "" || i == -1 {
		return "", true
	}
	rel := path[i+len(root):]

	switch {
	case strings.Contains(u, "github.com"):
		return fmt.Sprintf("%s/blob/%s%s", u, branch, rel), true
	case strings.Contains(u, "gitlab.com"):
		return fmt.Sprintf("%s/-/blob/%s%s", u, branch, rel), true
	case strings.Contains(u, "bitbucket.org"):
		return fmt.Sprintf("%s/src/%s%s", u, branch, rel), true
	case strings.Contains(u, "dev.azure.com"):
		if strings.HasPrefix(remote, "git@") {
			// git@ssh.dev.azure.com:v3/org/project/repo
			parts := strings.Split(remote, "/")
			if len(parts) < 3 {
				return "", true
			}
			tail := parts[len(parts)-3:]
			return fmt.Sprintf("https://dev.azure.com/%s/%s/_git/%s?path=%s&branch=%s", tail[0], tail[1], tail[2], rel, branch), true
		}
		// https://org@dev.azure.com/org/project/_git/repo
		_, host, _ := strings.Cut(remote, "@")
		return fmt.Sprintf("https://%s?path=%s&branch=%s", host, rel, branch), true
	}
	return fmt.Sprintf("%s/blob/%s%s", u, branch, rel), false
}

var storybookSeparators = regexp.MustCompile(`[\s|_]`)
var scriptExt = regexp.MustCompile(`\.[jt]sx?$`)

// StorybookURL returns the docs page of the stories in path, a file inside
// the repository at root.
func StorybookURL(root, path, base string) string {
	path = filepath.ToSlash(path)
	i := strings.Index(path, root)
	if root == "" || i == -1 {
		return ""
	}
	rel := strings.TrimPrefix(path[i+len(root):], "/")
	slug := strings.TrimSpace(rel)
	slug = storybookSeparators.ReplaceAllString(slug, "-")
	slug = scriptExt.ReplaceAllString(slug, "")
	slug = strings.Join(strings.Split(slug, "/"), "-")
	return fmt.Sprintf("%s/?path=/docs/%s", base, slug)
}
