// Package tools defines the tool contract offered to models, a catalog to
// hold them, and the default coding tools (files, search, shell, web).
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
)

// ErrPermissionDenied is returned when the permission policy refuses an
// operation.
var ErrPermissionDenied = errors.New("permission denied")

// Spec describes how a tool is presented to the model. InputSchema is a JSON
// schema object.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Permitter decides whether a side-effecting operation may proceed.
type Permitter interface {
	RequestPermission(operation string, details map[string]any) bool
}

// Request carries one tool invocation.
type Request struct {
	SessionID string
	Arguments map[string]any
	// Workspace is the root relative paths resolve against; empty means the
	// process working directory.
	Workspace string
	// Permissions gates side effects; nil allows everything.
	Permissions Permitter
}

// Response is a tool result. Content is what the model sees; Result keeps
// the structured value for callers.
type Response struct {
	Content string
	Result  any
}

// Tool exposes structured metadata and an invocation handler.
type Tool interface {
	Spec() Spec
	Invoke(ctx context.Context, req Request) (Response, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	Def Spec
	Fn  func(ctx context.Context, req Request) (Response, error)
}

// New returns a Tool named name backed by fn. A nil schema means an object
// with no declared properties.
func New(name, description string, schema map[string]any, fn func(ctx context.Context, req Request) (Response, error)) *Func {
	if schema == nil {
		schema = object(nil)
	}
	return &Func{Def: Spec{Name: name, Description: description, InputSchema: schema}, Fn: fn}
}

func (f *Func) Spec() Spec { return f.Def }

func (f *Func) Invoke(ctx context.Context, req Request) (Response, error) {
	if f.Fn == nil {
		return Response{}, fmt.Errorf("tool %s has no handler", f.Def.Name)
	}
	return f.Fn(ctx, req)
}

// JSON builds a Response whose content is v encoded as JSON.
func JSON(v any) (Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("encode tool result: %w", err)
	}
	return Response{Content: string(b), Result: v}, nil
}

// decode copies loosely typed model arguments into out. Numbers sent as
// strings and similar slips are tolerated.
func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func permit(req Request, op string, details map[string]any) error {
	if req.Permissions == nil || req.Permissions.RequestPermission(op, details) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
}

// resolvePath makes p absolute against the request workspace.
func resolvePath(req Request, p string) (string, error) {
	if p == "" {
		return "", errors.New("path is empty")
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	root := req.Workspace
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	return filepath.Join(root, p), nil
}

func workspaceRoot(req Request) (string, error) {
	if req.Workspace != "" {
		return req.Workspace, nil
	}
	return os.Getwd()
}

func object(props map[string]any, required ...string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
