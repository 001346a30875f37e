package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"go.uber.org/zap"
)

var timeNow = time.Now

type committed struct {
	repo   *git.Repository
	hash   string
	branch string
}

// openOrInit opens the repository enclosing dir, or initializes one in dir.
func openOrInit(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("initializing repository at %s: %w", dir, err)
	}
	return repo, nil
}

// commit stages projectDir and commits it. The repository is searched from
// the output directory so several projects share one history.
func (p *GitPublisher) commit(projectDir, message string) (*committed, error) {
	base := p.OutputDir
	if base == "" {
		base = projectDir
	}
	repo, err := openOrInit(base)
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	root := wt.Filesystem.Root()
	absProject, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", projectDir, err)
	}
	absRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		absRoot = root
	}
	if resolved, err := filepath.EvalSymlinks(absProject); err == nil {
		absProject = resolved
	}
	rel, err := filepath.Rel(absRoot, absProject)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("project %s is outside repository %s", projectDir, root)
	}

	if err := wt.AddWithOptions(&git.AddOptions{Path: filepath.ToSlash(rel)}); err != nil {
		return nil, fmt.Errorf("staging %s: %w", rel, err)
	}

	if message == "" {
		message = "Add generated project " + filepath.Base(projectDir)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.AuthorName,
			Email: p.AuthorEmail,
			When:  timeNow(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	p.logger().Debug("committed generated project", zap.String("hash", hash.String()), zap.String("path", rel))

	branch := headBranch(repo)
	if branch == "" {
		branch = p.Branch
	}
	return &committed{repo: repo, hash: hash.String(), branch: branch}, nil
}

// push returns a non-empty note when pushing was skipped on purpose.
func (p *GitPublisher) push(ctx context.Context, c *committed) (string, error) {
	if p.RepoURL == "" {
		return "Committed locally - no remote repository configured", nil
	}
	auth, note := p.auth()
	if note != "" {
		return note, nil
	}

	remoteName := p.Remote
	if remoteName == "" {
		remoteName = "origin"
	}
	if err := ensureRemote(c.repo, remoteName, p.RepoURL); err != nil {
		return "", err
	}

	branch := p.Branch
	if branch == "" {
		branch = c.branch
	}
	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", c.branch, branch))
	err := c.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("pushing to %s: %w", remoteName, err)
	}
	c.branch = branch
	return "", nil
}

// auth picks SSH agent auth for SSH URLs and token basic auth for HTTPS.
func (p *GitPublisher) auth() (transport.AuthMethod, string) {
	if isSSHURL(p.RepoURL) {
		if strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK")) == "" {
			return nil, "Committed locally - no SSH agent for push"
		}
		a, err := ssh.NewSSHAgentAuth("git")
		if err != nil {
			return nil, "Committed locally - SSH agent unavailable"
		}
		return a, ""
	}
	if strings.HasPrefix(p.RepoURL, "file://") || filepath.IsAbs(p.RepoURL) {
		return nil, ""
	}
	if p.Token == "" {
		return nil, "Committed locally - no git token for push"
	}
	return &http.BasicAuth{Username: "codeforge", Password: p.Token}, ""
}

// ensureRemote adds the remote when it is missing. An existing remote is
// never rewritten: one pointing elsewhere is an error.
func ensureRemote(repo *git.Repository, name, url string) error {
	remote, err := repo.Remote(name)
	if err == nil {
		for _, u := range remote.Config().URLs {
			if u == url {
				return nil
			}
		}
		return fmt.Errorf("remote %s already points to %s, not %s", name, strings.Join(remote.Config().URLs, ", "), url)
	} else if !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("looking up remote %s: %w", name, err)
	}
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	if err != nil {
		return fmt.Errorf("creating remote %s: %w", name, err)
	}
	return nil
}

func isSSHURL(url string) bool {
	return strings.HasPrefix(url, "git@") ||
		strings.HasPrefix(url, "ssh://") ||
		strings.HasPrefix(url, "git+ssh://")
}

func headBranch(repo *git.Repository) string {
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}
