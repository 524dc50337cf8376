package memory

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const gitContextTokensPerFile = 500

// GitContextEntry is a chunked commit/diff-summary for one file named in the
// query (spec §4.3).
type GitContextEntry struct {
	Path    string
	Summary string
}

// BuildGitContext loads commit messages for paths, oldest commit first,
// skipping invalid hashes silently and treating a missing or corrupt .git
// directory as "no context" rather than an error (spec §4.3).
func BuildGitContext(repoRoot string, paths []string, countFn func(string) int) ([]GitContextEntry, error) {
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		return nil, nil // absence of .git/ is not an error
	}

	var entries []GitContextEntry
	for _, path := range paths {
		summary, err := summarizeFileHistory(repo, path, countFn)
		if err != nil || summary == "" {
			continue
		}
		entries = append(entries, GitContextEntry{Path: path, Summary: summary})
	}
	return entries, nil
}

func summarizeFileHistory(repo *git.Repository, path string, countFn func(string) int) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", err
	}

	commitIter, err := repo.Log(&git.LogOptions{From: head.Hash(), FileName: &path})
	if err != nil {
		return "", err
	}
	defer commitIter.Close()

	var hashes []plumbing.Hash
	_ = commitIter.ForEach(func(c *object.Commit) error {
		if c.Hash.IsZero() {
			return nil // invalid hash, skip silently
		}
		hashes = append(hashes, c.Hash)
		return nil
	})

	var lines []string
	for i := len(hashes) - 1; i >= 0; i-- { // oldest-first ingestion
		c, err := repo.CommitObject(hashes[i])
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", c.Hash.String()[:7], c.Author.When.Format("2006-01-02"), firstLine(c.Message)))
	}

	summary := strings.Join(lines, "\n")
	if countFn == nil {
		return summary, nil
	}
	for countFn(summary) > gitContextTokensPerFile && len(lines) > 1 {
		lines = lines[1:]
		summary = strings.Join(lines, "\n")
	}
	return summary, nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
