package api

import (
	"context"

	"github.com/flowloom/rivulet/plugin"
)

// NullBus is a no-op event bus implementation, the default
// InstanceManager falls back to when nothing heavier is wired in.
type NullBus struct{}

func (n NullBus) Emit(ctx context.Context, event string, fields map[string]any) error { return nil }

// Ensure interface implementation at compile time
var _ plugin.EventBus = (*NullBus)(nil)
