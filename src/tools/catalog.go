package tools

import (
	"fmt"
	"strings"
	"sync"
)

// Catalog is an in-memory tool registry keyed by lower-cased name that keeps
// registration order.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
	specs map[string]Spec
	order []string
}

// NewCatalog constructs a catalog seeded with the provided tools. Invalid or
// duplicate entries are skipped.
func NewCatalog(tools ...Tool) *Catalog {
	c := &Catalog{
		tools: make(map[string]Tool),
		specs: make(map[string]Spec),
	}
	for _, t := range tools {
		_ = c.Register(t)
	}
	return c
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register adds a tool. Duplicate names return an error.
func (c *Catalog) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	spec := tool.Spec()
	k := key(spec.Name)
	if k == "" {
		return fmt.Errorf("tool name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[k]; exists {
		return fmt.Errorf("tool %s already registered", spec.Name)
	}
	c.tools[k] = tool
	c.specs[k] = spec
	c.order = append(c.order, k)
	return nil
}

// Unregister removes a tool, reporting whether it was present.
func (c *Catalog) Unregister(name string) bool {
	k := key(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tools[k]; !ok {
		return false
	}
	delete(c.tools, k)
	delete(c.specs, k)
	for i, o := range c.order {
		if o == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the tool and its specification if present.
func (c *Catalog) Lookup(name string) (Tool, Spec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	k := key(name)
	tool, ok := c.tools[k]
	if !ok {
		return nil, Spec{}, false
	}
	return tool, c.specs[k], true
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	_, _, ok := c.Lookup(name)
	return ok
}

// Specs returns the tool specifications in registration order.
func (c *Catalog) Specs() []Spec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]Spec, 0, len(c.order))
	for _, k := range c.order {
		specs = append(specs, c.specs[k])
	}
	return specs
}

// Tools returns the registered tools in order.
func (c *Catalog) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tools := make([]Tool, 0, len(c.order))
	for _, k := range c.order {
		tools = append(tools, c.tools[k])
	}
	return tools
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
