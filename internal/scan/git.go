package scan

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"flowmap/internal/types"
)

const (
	gitTimeout    = 30 * time.Second
	fetchParallel = 8
)

// GitScanner reads change sets out of a git worktree by shelling out to the
// git binary with explicit arguments.
type GitScanner struct {
	root    string
	matcher *Matcher
}

// NewGitScanner scans the worktree at root, restricted to the allow-list
// patterns.
func NewGitScanner(root string, allowPatterns []string) *GitScanner {
	return &GitScanner{root: root, matcher: NewMatcher(allowPatterns)}
}

// Scan implements Scanner.
func (s *GitScanner) Scan(ctx context.Context, lastRevision string) (types.ScanDiff, error) {
	head, err := s.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return types.ScanDiff{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	current := strings.TrimSpace(string(head))

	diff := types.ScanDiff{CurrentRevision: current}
	if lastRevision == "" || lastRevision == current {
		// No-op fast path: nothing to diff, caller just advances its cursor.
		return diff, nil
	}

	out, err := s.git(ctx, "diff", "--name-status", "--no-renames", lastRevision, current)
	if err != nil {
		return types.ScanDiff{}, fmt.Errorf("diff %s..%s: %w", lastRevision, current, err)
	}

	var added, modified []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		status, path, ok := strings.Cut(line, "\t")
		if !ok || !s.matcher.Match(path) {
			continue
		}
		switch status[0] {
		case 'A':
			added = append(added, path)
		case 'M', 'T':
			modified = append(modified, path)
		case 'D':
			diff.Removed = append(diff.Removed, path)
		}
	}
	sort.Strings(diff.Removed)

	diff.Added, err = s.fetchAll(ctx, current, added, types.FileAdded)
	if err != nil {
		return types.ScanDiff{}, err
	}
	diff.Modified, err = s.fetchAll(ctx, current, modified, types.FileModified)
	if err != nil {
		return types.ScanDiff{}, err
	}
	return diff, nil
}

// fetchAll retrieves file contents at the given revision in parallel.
// Contents are pure function results of (revision, path), so ordering in the
// output slice is fixed by the input order regardless of fetch completion.
func (s *GitScanner) fetchAll(ctx context.Context, revision string, paths []string, status types.FileStatus) ([]types.TrackedFile, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	files := make([]types.TrackedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallel)
	for i, p := range paths {
		g.Go(func() error {
			content, err := s.git(gctx, "show", revision+":"+p)
			if err != nil {
				return fmt.Errorf("fetch %s at %s: %w", p, revision, err)
			}
			files[i] = types.TrackedFile{Path: p, Status: status, Content: string(content)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *GitScanner) git(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
