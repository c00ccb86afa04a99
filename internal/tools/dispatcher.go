package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Result captures the outcome of a tool call.
type Result struct {
	Text string
}

// Handler executes a tool by name.
type Handler func(ctx context.Context, args map[string]any) (Result, error)

// ErrUnknownTool indicates the requested tool has no registered handler.
var ErrUnknownTool = errors.New("unknown tool")

// Dispatcher maps tool names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// RegisterHandler associates a tool name with an executable handler.
func (d *Dispatcher) RegisterHandler(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// Call executes the handler registered for the given tool name.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (Result, error) {
	d.mu.RLock()
	h, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return h(ctx, args)
}

// Registered returns the names that have a handler, sorted.
func (d *Dispatcher) Registered() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StringArg returns args[key] when it is a string.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
