package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

// DefaultReadLimit is the number of lines read_file returns without a limit.
const DefaultReadLimit = 150

// ---------------------------- read_file ---------------------------------------

type readFile struct{ log *logging.Logger }

type readFileArgs struct {
	TargetFile           any  `json:"target_file"`
	Offset               *int `json:"offset"`
	Limit                *int `json:"limit"`
	ShouldReadEntireFile bool `json:"should_read_entire_file"`
}

// ReadFileResult is the structured result of read_file.
type ReadFileResult struct {
	Content    string   `json:"content"`
	StartLine  int      `json:"start_line,omitempty"`
	EndLine    int      `json:"end_line,omitempty"`
	Summary    []string `json:"summary,omitempty"`
	TotalLines int      `json:"total_lines"`
}

func (t *readFile) Spec() Spec {
	return Spec{
		Name:        "read_file",
		Description: "Read a text file. Returns a window of lines (150 by default) with a summary of lines outside it.",
		InputSchema: object(map[string]any{
			"target_file":             prop("string", "Path of the file, relative to the workspace or absolute."),
			"offset":                  prop("integer", "1-based line to start reading from."),
			"limit":                   prop("integer", "Number of lines to read."),
			"should_read_entire_file": prop("boolean", "Read the whole file, ignoring offset and limit."),
		}, "target_file"),
	}
}

func (t *readFile) Invoke(_ context.Context, req Request) (Response, error) {
	var args readFileArgs
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	target := targetPath(args.TargetFile)
	path, err := resolvePath(req, target)
	if err != nil {
		return Response{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Response{}, fmt.Errorf("file %s does not exist", target)
		}
		return Response{}, err
	}
	lines := strings.SplitAfter(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	if args.ShouldReadEntireFile {
		t.log.Debug().Str("path", path).Int("lines", len(lines)).Msg("read entire file")
		return JSON(ReadFileResult{Content: string(data), TotalLines: len(lines)})
	}

	offset, limit := 1, DefaultReadLimit
	if args.Offset != nil && *args.Offset > 1 {
		offset = *args.Offset
	}
	if args.Limit != nil && *args.Limit > 0 {
		limit = *args.Limit
	}
	res := readWindow(lines, offset, limit)
	t.log.Debug().Str("path", path).Int("start", res.StartLine).Int("end", res.EndLine).Msg("read file")
	return JSON(res)
}

// readWindow returns lines [offset, offset+limit) (1-based) with a summary
// of what was left out.
func readWindow(lines []string, offset, limit int) ReadFileResult {
	total := len(lines)
	start := min(offset-1, total)
	end := min(total, start+limit)
	window := lines[start:end]

	var summary []string
	if start > 0 {
		summary = append(summary, fmt.Sprintf("... %d lines before ...", start))
	}
	if end < total {
		summary = append(summary, fmt.Sprintf("... %d lines after ...", total-end))
	}

	endLine := max(offset+len(window)-1, offset)
	if len(window) > 0 && end == total {
		endLine = total
	}
	return ReadFileResult{
		Content:    strings.Join(window, ""),
		StartLine:  offset,
		EndLine:    endLine,
		Summary:    summary,
		TotalLines: total,
	}
}

// targetPath accepts a plain path or an object with a "path" key, which
// some models send.
func targetPath(v any) string {
	switch p := v.(type) {
	case string:
		return strings.TrimSpace(p)
	case map[string]any:
		if s, ok := p["path"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// ---------------------------- edit_file ---------------------------------------

type editFile struct{ log *logging.Logger }

type editFileArgs struct {
	TargetFile   string  `json:"target_file"`
	Instructions string  `json:"instructions"`
	CodeEdit     any     `json:"code_edit"`
	CodeReplace  *string `json:"code_replace"`
}

func (t *editFile) Spec() Spec {
	return Spec{
		Name: "edit_file",
		Description: "Edit an existing file. Either code_edit, a map of 1-based inclusive line ranges such as \"3-7\" " +
			"to replacement text, or code_replace, the complete new file content.",
		InputSchema: object(map[string]any{
			"target_file":  prop("string", "File to edit."),
			"instructions": prop("string", "One sentence describing the edit."),
			"code_edit": map[string]any{
				"type":                 "object",
				"description":          "Line range to replacement text, e.g. {\"10-12\": \"new lines\"}.",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"code_replace": prop("string", "Complete replacement content for the file."),
		}, "target_file", "instructions"),
	}
}

func (t *editFile) Invoke(_ context.Context, req Request) (Response, error) {
	var args editFileArgs
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	if args.CodeEdit == nil && args.CodeReplace == nil {
		return Response{}, errors.New("either code_edit or code_replace must be provided")
	}
	if err := permit(req, "edit_file", map[string]any{"target_file": args.TargetFile, "instructions": args.Instructions}); err != nil {
		return Response{}, err
	}
	path, err := resolvePath(req, args.TargetFile)
	if err != nil {
		return Response{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Response{}, fmt.Errorf("file %s does not exist", args.TargetFile)
		}
		return Response{}, err
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return Response{}, err
	}

	var edited string
	if args.CodeEdit != nil {
		edited, err = applyCodeEdit(string(original), args.CodeEdit)
		if err != nil {
			return Response{}, err
		}
	} else {
		edited = *args.CodeReplace
	}

	if err := os.WriteFile(path, []byte(edited), info.Mode().Perm()); err != nil {
		return Response{}, err
	}
	t.log.Info().Str("path", path).Msg("edited file")
	return JSON(map[string]any{"status": "success", "message": "Successfully edited " + args.TargetFile})
}

// applyCodeEdit interprets code_edit: a map of line ranges, a JSON object
// string of the same, or any other string as a full replacement.
func applyCodeEdit(original string, edit any) (string, error) {
	switch e := edit.(type) {
	case map[string]any:
		return ApplyLineEdits(original, stringValues(e)), nil
	case map[string]string:
		return ApplyLineEdits(original, e), nil
	case string:
		s := strings.TrimSpace(e)
		if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
			return e, nil
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return "", fmt.Errorf("failed to parse code_edit as JSON: %w", err)
		}
		return ApplyLineEdits(original, stringValues(parsed)), nil
	default:
		return "", fmt.Errorf("invalid type for code_edit: %T", edit)
	}
}

func stringValues(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// ---------------------------- create_file -------------------------------------

type createFile struct{ log *logging.Logger }

type createFileArgs struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (t *createFile) Spec() Spec {
	return Spec{
		Name:        "create_file",
		Description: "Create a file with the given content, creating parent directories. Overwrites an existing file.",
		InputSchema: object(map[string]any{
			"file_path": prop("string", "Path of the file to create."),
			"content":   prop("string", "Full content of the file."),
		}, "file_path", "content"),
	}
}

func (t *createFile) Invoke(_ context.Context, req Request) (Response, error) {
	var args createFileArgs
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	if err := permit(req, "create_file", map[string]any{"file_path": args.FilePath, "content_length": len(args.Content)}); err != nil {
		return Response{}, err
	}
	path, err := resolvePath(req, args.FilePath)
	if err != nil {
		return Response{}, err
	}
	_, statErr := os.Stat(path)
	existed := statErr == nil

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Response{}, err
	}
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return Response{}, err
	}

	msg := "Created file at " + args.FilePath
	if existed {
		msg = "Updated file at " + args.FilePath
	}
	t.log.Info().Str("path", path).Bool("existed", existed).Msg("wrote file")
	return JSON(map[string]any{"status": "success", "message": msg})
}

// ---------------------------- delete_file -------------------------------------

type deleteFile struct{ log *logging.Logger }

func (t *deleteFile) Spec() Spec {
	return Spec{
		Name:        "delete_file",
		Description: "Delete a file.",
		InputSchema: object(map[string]any{
			"target_file": prop("string", "File to delete."),
		}, "target_file"),
	}
}

func (t *deleteFile) Invoke(_ context.Context, req Request) (Response, error) {
	var args struct {
		TargetFile string `json:"target_file"`
	}
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	if err := permit(req, "delete_file", map[string]any{"target_file": args.TargetFile}); err != nil {
		return Response{}, err
	}
	path, err := resolvePath(req, args.TargetFile)
	if err != nil {
		return Response{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Response{}, fmt.Errorf("file %s does not exist", args.TargetFile)
		}
		return Response{}, err
	}
	if info.IsDir() {
		return Response{}, fmt.Errorf("%s is a directory", args.TargetFile)
	}
	if err := os.Remove(path); err != nil {
		return Response{}, err
	}
	t.log.Info().Str("path", path).Msg("deleted file")
	return JSON(map[string]any{"status": "success", "message": "Deleted file " + args.TargetFile})
}

// ---------------------------- list_directory ----------------------------------

type listDirectory struct{}

// DirEntry is one item reported by list_directory. Size is nil for
// directories.
type DirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size *int64 `json:"size"`
	Path string `json:"path"`
}

func (t *listDirectory) Spec() Spec {
	return Spec{
		Name:        "list_directory",
		Description: "List the files and directories in a directory.",
		InputSchema: object(map[string]any{
			"relative_workspace_path": prop("string", "Directory relative to the workspace root; defaults to the root."),
		}),
	}
}

func (t *listDirectory) Invoke(_ context.Context, req Request) (Response, error) {
	var args struct {
		Path string `json:"relative_workspace_path"`
	}
	if err := decode(req.Arguments, &args); err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(args.Path) == "" {
		args.Path = "."
	}
	dir, err := resolvePath(req, args.Path)
	if err != nil {
		return Response{}, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Response{}, fmt.Errorf("directory %s does not exist", args.Path)
		}
		return Response{}, err
	}
	if !info.IsDir() {
		return Response{}, fmt.Errorf("%s is not a directory", args.Path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Response{}, err
	}
	contents := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		item := DirEntry{Name: e.Name(), Type: "file", Path: filepath.Join(args.Path, e.Name())}
		if e.IsDir() {
			item.Type = "dir"
		} else if fi, err := e.Info(); err == nil {
			size := fi.Size()
			item.Size = &size
		}
		contents = append(contents, item)
	}
	return JSON(map[string]any{"contents": contents})
}
