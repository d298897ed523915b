package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Factory builds an unconnected adapter.
type Factory func(logger *slog.Logger) Adapter

// targets holds the factories registered by each adapter's init.
var targets = struct {
	sync.RWMutex
	byType map[string]Factory
}{byType: make(map[string]Factory)}

// Register makes a target type available to NewAdapter. Registering the
// same type twice replaces the factory.
func Register(targetType string, f Factory) {
	targets.Lock()
	defer targets.Unlock()
	targets.byType[targetType] = f
}

// Get returns the factory of a target type.
func Get(targetType string) (Factory, bool) {
	targets.RLock()
	defer targets.RUnlock()
	f, ok := targets.byType[targetType]
	return f, ok
}

// IsRegistered reports whether NewAdapter accepts the target type.
func IsRegistered(targetType string) bool {
	_, ok := Get(targetType)
	return ok
}

// ListAdapters returns the registered target types in sorted order.
func ListAdapters() []string {
	targets.RLock()
	defer targets.RUnlock()
	return slices.Sorted(maps.Keys(targets.byType))
}

// NewAdapter creates an unconnected adapter for cfg.Type.
// A nil logger discards output.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, errors.New("target type not specified")
	}
	f, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return f(logger.With(slog.String("target", cfg.Type))), nil
}

// UnknownAdapterError reports a target type no adapter registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown target type %q\nAvailable targets: %v\nHint: Check target.type in leapmodel.yaml", e.Type, e.Available)
}
