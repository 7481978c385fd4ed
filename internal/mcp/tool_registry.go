package mcp

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ToolCategory groups tools by what they operate on.
type ToolCategory string

const (
	CategoryExtraction ToolCategory = "extraction"
	CategoryCatalog    ToolCategory = "catalog"
)

const maxToolName = 64

// ToolMetadata describes a registered MCP tool.
type ToolMetadata struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    ToolCategory `json:"category"`
	Keywords    []string     `json:"keywords,omitempty"`
}

func (t *ToolMetadata) validate() error {
	if t == nil {
		return errors.New("nil tool metadata")
	}
	if !validToolName(t.Name) {
		return fmt.Errorf("tool name %q must be snake_case, starting with a letter, at most %d bytes", t.Name, maxToolName)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("tool %q has no description", t.Name)
	}
	return nil
}

func validToolName(name string) bool {
	if name == "" || len(name) > maxToolName || name[0] < 'a' || name[0] > 'z' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

// ToolRegistry holds the metadata of the tools a Server exposes, in
// registration order.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []*ToolMetadata
	index map[string]int
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{index: map[string]int{}}
}

// Register adds tool. Names are unique.
func (r *ToolRegistry) Register(tool *ToolMetadata) error {
	if err := tool.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.index[tool.Name]; dup {
		return fmt.Errorf("tool %q registered twice", tool.Name)
	}
	r.index[tool.Name] = len(r.order)
	r.order = append(r.order, tool)
	return nil
}

func (r *ToolRegistry) Get(name string) (*ToolMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.order[i], true
}

// List returns the tools in registration order.
func (r *ToolRegistry) List() []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Search ranks tools matching query, case-insensitively: name matches
// first, then description, then keyword matches. Ties keep registration
// order. A blank query matches nothing.
func (r *ToolRegistry) Search(query string) []*ToolMetadata {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	type hit struct {
		tool *ToolMetadata
		rank int
	}
	var hits []hit
	for _, t := range r.List() {
		switch {
		case strings.Contains(t.Name, q):
			hits = append(hits, hit{t, 0})
		case strings.Contains(strings.ToLower(t.Description), q):
			hits = append(hits, hit{t, 1})
		case slices.ContainsFunc(t.Keywords, func(k string) bool { return strings.Contains(strings.ToLower(k), q) }):
			hits = append(hits, hit{t, 2})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return a.rank - b.rank })

	out := make([]*ToolMetadata, len(hits))
	for i, h := range hits {
		out[i] = h.tool
	}
	return out
}

func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
