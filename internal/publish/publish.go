// Package publish writes a generated project to disk and records it in git.
//
// Publishing degrades in tiers instead of failing outright: files are always
// written first (a write failure is the only hard error), then committed with
// go-git, then pushed when a remote and credentials are available. The tier
// reached is reported in RepositoryInfo.Status.
package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Publish outcome tiers.
const (
	StatusSuccess          = "success"
	StatusCommittedLocally = "committed_locally"
	StatusFilesSaved       = "files_saved"
)

// File is one path and its content, relative to the project root.
type File struct {
	Path    string
	Content string
}

// Request is everything needed to publish one generated project.
type Request struct {
	ProjectName   string
	Files         []File
	Manifest      File
	Readme        string
	CommitMessage string
}

// RepositoryInfo is the outcome of a publish.
type RepositoryInfo struct {
	Status        string `json:"status" yaml:"status"`
	RepositoryURL string `json:"repository_url,omitempty" yaml:"repository_url,omitempty"`
	LocalPath     string `json:"local_path" yaml:"local_path"`
	CommitHash    string `json:"commit_hash,omitempty" yaml:"commit_hash,omitempty"`
	Branch        string `json:"branch,omitempty" yaml:"branch,omitempty"`
	ProjectName   string `json:"project_name" yaml:"project_name"`
	FilesWritten  int    `json:"files_written" yaml:"files_written"`
	Note          string `json:"note,omitempty" yaml:"note,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// GitPublisher writes projects under OutputDir and commits them to the git
// repository enclosing OutputDir, creating one there if none exists.
type GitPublisher struct {
	OutputDir   string
	RepoURL     string
	Remote      string
	Branch      string
	Token       string
	AuthorName  string
	AuthorEmail string
	// Concurrency bounds parallel file writes. 0 means 8.
	Concurrency int
	Logger      *zap.Logger
}

// ProjectName returns "<language>-<framework>-app-<YYYYMMDD_HHMMSS>".
func ProjectName(language, framework string, t time.Time) string {
	return fmt.Sprintf("%s-%s-app-%s", language, framework, t.Format("20060102_150405"))
}

var manifestNames = map[string]string{
	"maven":    "pom.xml",
	"gradle":   "build.gradle",
	"npm":      "package.json",
	"yarn":     "package.json",
	"pip":      "requirements.txt",
	"poetry":   "pyproject.toml",
	"cargo":    "Cargo.toml",
	"go-mod":   "go.mod",
	"composer": "composer.json",
}

// ManifestName maps a build tool to its dependency manifest filename.
func ManifestName(buildTool string) string {
	if name, ok := manifestNames[buildTool]; ok {
		return name
	}
	return "dependencies.txt"
}

// Publish writes the project, then tries to commit and push it.
func (p *GitPublisher) Publish(ctx context.Context, req Request) (*RepositoryInfo, error) {
	logger := p.logger()
	projectDir := filepath.Join(p.OutputDir, req.ProjectName)

	if err := os.RemoveAll(projectDir); err != nil {
		return nil, fmt.Errorf("cleaning %s: %w", projectDir, err)
	}
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", projectDir, err)
	}

	written, err := p.writeFiles(ctx, projectDir, collect(req))
	if err != nil {
		return nil, err
	}
	logger.Info("project files written", zap.String("path", projectDir), zap.Int("files", written))

	info := &RepositoryInfo{
		RepositoryURL: p.RepoURL,
		LocalPath:     projectDir,
		ProjectName:   req.ProjectName,
		FilesWritten:  written,
	}

	repo, err := p.commit(projectDir, req.CommitMessage)
	if err != nil {
		logger.Warn("git operations failed", zap.Error(err))
		info.Status = StatusFilesSaved
		info.Note = "Files saved locally - git operations failed"
		info.Error = err.Error()
		return info, nil
	}
	info.CommitHash = repo.hash

	note, err := p.push(ctx, repo)
	info.Branch = repo.branch
	switch {
	case err != nil:
		logger.Warn("push failed", zap.Error(err))
		info.Status = StatusCommittedLocally
		info.Note = "Committed locally - push failed"
		info.Error = err.Error()
	case note != "":
		info.Status = StatusCommittedLocally
		info.Note = note
	default:
		info.Status = StatusSuccess
	}
	return info, nil
}

// collect orders the project files: generated files, then the manifest, then
// README.md. Later entries with the same path replace earlier ones.
func collect(req Request) []File {
	files := make([]File, 0, len(req.Files)+2)
	index := make(map[string]int, len(req.Files)+2)
	add := func(f File) {
		clean := filepath.Clean(f.Path)
		f.Path = clean
		if i, ok := index[clean]; ok {
			files[i] = f
			return
		}
		index[clean] = len(files)
		files = append(files, f)
	}
	for _, f := range req.Files {
		add(f)
	}
	if req.Manifest.Path != "" && strings.TrimSpace(req.Manifest.Content) != "" {
		add(req.Manifest)
	}
	if req.Readme != "" {
		add(File{Path: "README.md", Content: req.Readme})
	}
	return files
}

func (p *GitPublisher) writeFiles(ctx context.Context, root string, files []File) (int, error) {
	for _, f := range files {
		if filepath.IsAbs(f.Path) || f.Path == ".." || strings.HasPrefix(f.Path, ".."+string(filepath.Separator)) {
			return 0, fmt.Errorf("refusing to write %q outside the project directory", f.Path)
		}
	}

	limit := p.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			target := filepath.Join(root, f.Path)
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", f.Path, err)
			}
			if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", f.Path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(files), nil
}

func (p *GitPublisher) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
