package plugin

import (
	"sync"

	"github.com/flowloom/rivulet/model"
)

// factory builds a fresh Executor instance per call — executors hold no
// cross-run state, so the registry never reuses an instance between runs.
type factory func() Executor

var (
	mu       sync.RWMutex
	registry = map[model.NodeType]factory{}
)

// Register associates a node type tag with an Executor factory. Node
// packages call this from an init() func, the way the teacher's
// nodes/echo/echo.go registers "echo".
func Register(nodeType model.NodeType, f factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[nodeType] = f
}

// New looks up the Executor factory for a node type and builds an
// instance. ok is false for unregistered types (the engine surfaces this
// as model.ErrUnknownType).
func New(nodeType model.NodeType) (Executor, bool) {
	mu.RLock()
	f, ok := registry[nodeType]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(), true
}

// Types returns every registered node type, primarily for validate/export
// tooling and tests.
func Types() []model.NodeType {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]model.NodeType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}
