package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is an explicit tool catalog instance. It is constructed at
// startup and handed to the executor and dispatcher by reference, so tests
// can build isolated registries with fake handlers.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the catalog. Re-registering a name fails with
// DuplicateToolError.
func (r *Registry) Register(tool *Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %q has no handler", tool.Name)
	}
	if tool.Async && tool.Pool == "" {
		return fmt.Errorf("async tool %q has no pool affinity", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return &DuplicateToolError{Name: tool.Name}
	}

	r.tools[tool.Name] = tool
	return nil
}

// MustRegister registers a tool and panics on failure. For startup wiring
// where a bad catalog is a programming error.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Lookup returns the tool or NotFoundError.
func (r *Registry) Lookup(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, &NotFoundError{Resource: "tool", ID: name}
	}
	return tool, nil
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// PollableTypes returns the names of tools shown in the default active-jobs
// view. Exposing every internal job type by default would leak unrelated
// background work into a generic "what's running" list.
func (r *Registry) PollableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []string
	for _, tool := range r.tools {
		if tool.Pollable {
			result = append(result, tool.Name)
		}
	}
	sort.Strings(result)
	return result
}
