package handler

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"hearth/internal/generation/schema"
	id "hearth/pkg/domain"
)

// TaskSpec is a generation task a module exposes over HTTP. The output shape
// and system prompt are fixed server-side; callers supply only the user prompt.
type TaskSpec struct {
	ModuleID     id.ModuleID
	TaskType     string
	SystemPrompt string
	Schema       *schema.Schema
}

func (t TaskSpec) key() string {
	return t.ModuleID.String() + "/" + t.TaskType
}

// Catalog holds the tasks modules have registered.
type Catalog struct {
	mu    sync.RWMutex
	tasks map[string]TaskSpec
}

func NewCatalog(specs ...TaskSpec) (*Catalog, error) {
	c := &Catalog{tasks: make(map[string]TaskSpec)}
	for _, s := range specs {
		if err := c.Register(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) Register(spec TaskSpec) error {
	if spec.ModuleID.IsNil() || spec.TaskType == "" || spec.Schema == nil {
		return fmt.Errorf("catalog: module, task type and schema are required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tasks[spec.key()]; exists {
		return fmt.Errorf("catalog: task %s already registered", spec.key())
	}
	c.tasks[spec.key()] = spec
	return nil
}

func (c *Catalog) Lookup(moduleID id.ModuleID, taskType string) (TaskSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.tasks[TaskSpec{ModuleID: moduleID, TaskType: taskType}.key()]
	return spec, ok
}

// Modules lists the modules with at least one registered task, sorted.
func (c *Catalog) Modules() []id.ModuleID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []id.ModuleID
	for _, spec := range c.tasks {
		if !slices.Contains(out, spec.ModuleID) {
			out = append(out, spec.ModuleID)
		}
	}
	slices.SortFunc(out, func(a, b id.ModuleID) int { return strings.Compare(string(a), string(b)) })
	return out
}
