// Package prompts loads the ordered requirement documents a pipeline run
// starts from.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Document types, keyed by the file prefix.
const (
	TypeTechnicalGuidelines       = "technical_guidelines"
	TypeBusinessRequirements      = "business_requirements"
	TypePostTechnicalRequirements = "post_technical_requirements"
	TypeAdditionalSpecifications  = "additional_specifications"
	TypeUnknown                   = "unknown"
)

var typesByKey = map[string]string{
	"P1": TypeTechnicalGuidelines,
	"P2": TypeBusinessRequirements,
	"P3": TypePostTechnicalRequirements,
	"P4": TypeAdditionalSpecifications,
}

// ErrNoPrompts is returned when none of the configured files exist.
var ErrNoPrompts = errors.New("no prompt files found")

// Info is one requirement document. Order is the 1-based position of the
// file in the configured list, so gaps remain when files are missing.
type Info struct {
	Order    int    `json:"order" yaml:"order"`
	Key      string `json:"key" yaml:"key"`
	Filename string `json:"filename" yaml:"filename"`
	Content  string `json:"content" yaml:"content"`
	Type     string `json:"type" yaml:"type"`
}

// Reader reads requirement documents from a directory.
type Reader struct {
	Dir    string
	Files  []string
	Logger *zap.Logger
}

// NewReader returns a Reader for files inside dir.
func NewReader(dir string, files []string, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{Dir: dir, Files: files, Logger: logger}
}

// Load reads every configured file in order. Missing files are logged and
// skipped; it is an error only when nothing could be read.
func (r *Reader) Load() ([]Info, error) {
	var docs []Info
	for i, name := range r.Files {
		path := filepath.Join(r.Dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				r.Logger.Warn("prompt file not found", zap.String("path", path))
				continue
			}
			return nil, fmt.Errorf("reading prompt file %s: %w", path, err)
		}
		key := KeyFor(name)
		docs = append(docs, Info{
			Order:    i + 1,
			Key:      key,
			Filename: name,
			Content:  strings.TrimSpace(string(data)),
			Type:     TypeFor(key),
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s (looked for %s)", ErrNoPrompts, r.Dir, strings.Join(r.Files, ", "))
	}
	return docs, nil
}

// KeyFor extracts the document key from a filename: "P1-PreTech.txt" -> "P1".
func KeyFor(filename string) string {
	key, _, _ := strings.Cut(filename, "-")
	return key
}

// TypeFor maps a document key to its semantic type.
func TypeFor(key string) string {
	if t, ok := typesByKey[key]; ok {
		return t
	}
	return TypeUnknown
}

// Combine joins documents into one context block, each introduced by a
// "=== P1: Technical Guidelines ===" banner.
func Combine(docs []Info) string {
	parts := make([]string, 0, len(docs)*3)
	for _, d := range docs {
		parts = append(parts, fmt.Sprintf("=== %s: %s ===", d.Key, titleType(d.Type)), d.Content, "")
	}
	return strings.Join(parts, "\n")
}

// Section renders documents as "=== P1: technical_guidelines ===" blocks
// separated by blank lines, the form stage prompts embed.
func Section(docs []Info) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, fmt.Sprintf("=== %s: %s ===\n%s", d.Key, d.Type, d.Content))
	}
	return strings.Join(parts, "\n\n")
}

func titleType(t string) string {
	words := strings.Split(t, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
