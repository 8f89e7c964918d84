package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	maxGrepMatches    = 50
	maxFileResults    = 10
	maxSearchFileSize = 1 << 20
)

var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "vendor": true,
	".venv": true, "venv": true, "__pycache__": true,
	".idea": true, ".vscode": true,
}

// walkWorkspace visits regular files under root, skipping VCS and dependency
// directories. fn returns fs.SkipAll to stop early.
func walkWorkspace(ctx context.Context, root string, fn func(path, rel string) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		return fn(path, filepath.ToSlash(rel))
	})
	if errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

// ---------------------------- grep_search -------------------------------------

type grepSearch struct{}

type grepArgs struct {
	Query          string `json:"query"`
	IncludePattern string `json:"include_pattern"`
	ExcludePattern string `json:"exclude_pattern"`
	CaseSensitive  bool   `json:"case_sensitive"`
}

// GrepMatch is one matching line.
type GrepMatch struct {
	File       string `json:"file"`
	LineNumber int    `json:"line_number"`
	Line       string `json:"line"`
}

func (t *grepSearch) Spec() Spec {
	return Spec{
		Name:        "grep_search",
		Description: "Search file contents in the workspace with a regular expression. Returns at most 50 matches.",
		InputSchema: object(map[string]any{
			"query":           prop("string", "Regular expression (RE2 syntax)."),
			"include_pattern": prop("string", "Glob matched against file names or relative paths, e.g. *.go."),
			"exclude_pattern": prop("string", "Glob of files to skip."),
			"case_sensitive":  prop("boolean", "Match case; defaults to false."),
		}, "query"),
	}
}

func (t *grepSearch) Invoke(ctx context.Context, req Request) (Response, error) {
	var args grepArgs
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	if args.Query == "" {
		return Response{}, errors.New("query is empty")
	}
	expr := args.Query
	if !args.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Response{}, fmt.Errorf("invalid regular expression: %w", err)
	}
	root, err := workspaceRoot(req)
	if err != nil {
		return Response{}, err
	}

	matches := make([]GrepMatch, 0)
	truncated := false
	err = walkWorkspace(ctx, root, func(path, rel string) error {
		if args.IncludePattern != "" && !globMatch(args.IncludePattern, rel) {
			return nil
		}
		if args.ExcludePattern != "" && globMatch(args.ExcludePattern, rel) {
			return nil
		}
		found, err := grepFile(path, rel, re, maxGrepMatches-len(matches))
		if err != nil {
			return nil
		}
		matches = append(matches, found...)
		if len(matches) >= maxGrepMatches {
			truncated = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return JSON(map[string]any{"matches": matches, "truncated": truncated})
}

func grepFile(path, rel string, re *regexp.Regexp, limit int) ([]GrepMatch, error) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxSearchFileSize {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(data[:min(len(data), 512)], 0) >= 0 {
		return nil, nil // binary
	}
	var out []GrepMatch
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64<<10), maxSearchFileSize)
	for n := 1; sc.Scan() && len(out) < limit; n++ {
		line := sc.Text()
		if re.MatchString(line) {
			out = append(out, GrepMatch{File: rel, LineNumber: n, Line: strings.TrimRight(line, "\r")})
		}
	}
	return out, nil
}

// globMatch matches pattern against the base name, or the full relative
// path when the pattern contains a separator.
func globMatch(pattern, rel string) bool {
	target := filepath.Base(rel)
	if strings.Contains(pattern, "/") {
		target = rel
	}
	ok, err := filepath.Match(pattern, target)
	return err == nil && ok
}

// ---------------------------- file_search -------------------------------------

type fileSearch struct{}

func (t *fileSearch) Spec() Spec {
	return Spec{
		Name:        "file_search",
		Description: "Fuzzy search for files by path. Returns at most 10 paths, best match first.",
		InputSchema: object(map[string]any{
			"query": prop("string", "Part of a file name or path."),
		}, "query"),
	}
}

func (t *fileSearch) Invoke(ctx context.Context, req Request) (Response, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	q := strings.ToLower(strings.TrimSpace(args.Query))
	if q == "" {
		return Response{}, errors.New("query is empty")
	}
	root, err := workspaceRoot(req)
	if err != nil {
		return Response{}, err
	}

	type hit struct {
		path  string
		score int
	}
	var hits []hit
	err = walkWorkspace(ctx, root, func(_, rel string) error {
		if s, ok := fuzzyScore(q, strings.ToLower(rel)); ok {
			hits = append(hits, hit{rel, s})
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if len(hits[i].path) != len(hits[j].path) {
			return len(hits[i].path) < len(hits[j].path)
		}
		return hits[i].path < hits[j].path
	})
	files := make([]string, 0, maxFileResults)
	for i := 0; i < len(hits) && i < maxFileResults; i++ {
		files = append(files, hits[i].path)
	}
	return JSON(map[string]any{"files": files, "total_matches": len(hits)})
}

// fuzzyScore reports whether q is a subsequence of path and how well it
// matches. Substring hits outrank scattered ones; hits in the base name
// outrank hits in directories.
func fuzzyScore(q, path string) (int, bool) {
	base := path[strings.LastIndex(path, "/")+1:]
	switch {
	case base == q:
		return 1000, true
	case strings.Contains(base, q):
		return 500, true
	case strings.Contains(path, q):
		return 300, true
	}
	score, qi, streak := 0, 0, 0
	for i := 0; i < len(path) && qi < len(q); i++ {
		if path[i] == q[qi] {
			qi++
			streak++
			score += streak
		} else {
			streak = 0
		}
	}
	if qi < len(q) {
		return 0, false
	}
	return min(score, 299), true
}
