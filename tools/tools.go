// Package tools implements the registry of named capabilities that a
// reasoning stage may invoke. Every invocation yields a Result with a
// "success" or "error" status; failures never escape as Go errors.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/everydev1618/fincoach/errdefs"
	"github.com/everydev1618/fincoach/llm"
)

var (
	// ErrToolNotFound is returned when a tool name is not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolAlreadyRegistered is returned when trying to register a duplicate tool name.
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// ToolError wraps errors with tool context.
type ToolError struct {
	ToolName string
	Err      error
}

func (e *ToolError) Error() string {
	return "tool " + e.ToolName + ": " + e.Err.Error()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Handler executes a tool with validated arguments.
type Handler func(ctx context.Context, args Args) (Result, error)

// Middleware wraps tool execution.
type Middleware func(name string, next Handler) Handler

// Tool is a named capability with a declared parameter schema.
type Tool struct {
	Name        string
	Description string
	Params      map[string]ParamDef
	Handler     Handler
}

// Registry is a collection of callable tools. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	middleware []Middleware
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names are unique within a registry.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return errdefs.Invalid("name", "tool name is required")
	}
	if t.Handler == nil {
		return &ToolError{ToolName: t.Name, Err: errors.New("handler is nil")}
	}
	for name, p := range t.Params {
		if !validTypes[p.Type] {
			return &ToolError{ToolName: t.Name, Err: fmt.Errorf("parameter %s: unsupported type %q", name, p.Type)}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name]; ok {
		return &ToolError{ToolName: t.Name, Err: ErrToolAlreadyRegistered}
	}
	r.tools[t.Name] = t
	return nil
}

// Use adds middleware to the execution chain.
func (r *Registry) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute validates args against the tool's schema and runs it.
// Unknown tools, invalid arguments and handler failures all come back as an
// error Result.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	r.mu.RLock()
	t, ok := r.tools[name]
	middleware := r.middleware
	r.mu.RUnlock()

	if !ok {
		log.WithField("tool", name).Warn("unknown tool requested")
		return Error((&ToolError{ToolName: name, Err: ErrToolNotFound}).Error())
	}

	validated, err := validate(t.Params, args)
	if err != nil {
		res := Error(err.Error())
		res.Err = err
		return res
	}

	exec := t.Handler
	for i := len(middleware) - 1; i >= 0; i-- {
		exec = middleware[i](name, exec)
	}

	res, err := call(ctx, exec, validated)
	if err != nil {
		res = Error(err.Error())
		res.Err = err
		return res
	}
	if res.Status == "" {
		res.Status = StatusSuccess
	}
	return res
}

// call runs h and turns a panic into an error.
func call(ctx context.Context, h Handler, args Args) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return h(ctx, args)
}

// Logging returns middleware that logs each call's outcome and duration.
func Logging(entry *log.Entry) Middleware {
	return func(name string, next Handler) Handler {
		return func(ctx context.Context, args Args) (Result, error) {
			start := time.Now()
			res, err := next(ctx, args)
			fields := log.Fields{"tool": name, "duration_ms": time.Since(start).Milliseconds()}
			if err != nil {
				entry.WithFields(fields).WithError(err).Debug("tool failed")
				return res, err
			}
			fields["status"] = res.Status
			entry.WithFields(fields).Debug("tool executed")
			return res, err
		}
	}
}

// Schemas returns the schemas for all tools, sorted by name.
func (r *Registry) Schemas() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]llm.ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		schemas = append(schemas, buildSchema(t))
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}

// Filter returns a new Registry with only the named tools. Unknown names are
// ignored.
func (r *Registry) Filter(names ...string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := &Registry{
		tools:      make(map[string]Tool),
		middleware: append([]Middleware(nil), r.middleware...),
	}
	for _, n := range names {
		if t, ok := r.tools[n]; ok {
			filtered.tools[n] = t
		}
	}
	return filtered
}

// buildSchema builds a JSON schema from explicit parameter definitions.
func buildSchema(t Tool) llm.ToolSchema {
	props := make(map[string]any)
	required := []string{}

	for pname, pdef := range t.Params {
		prop := map[string]any{
			"type": pdef.Type,
		}
		if pdef.Description != "" {
			prop["description"] = pdef.Description
		}
		if len(pdef.Enum) > 0 {
			prop["enum"] = pdef.Enum
		}
		props[pname] = prop

		if pdef.Required {
			required = append(required, pname)
		}
	}
	sort.Strings(required)

	return llm.ToolSchema{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}
