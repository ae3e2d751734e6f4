// Package caps answers permission questions for the admin surface. The core
// pattern is: allowed = checker verdict, then each registered gate may
// override the running verdict, letting embedding code grant exceptions
// without touching the calling logic.
package caps

import "context"

// Action names a permission-checked operation.
type Action string

const (
	// ActionCreateShadow guards creating a shadow draft.
	ActionCreateShadow Action = "create_shadow"
	// ActionEditShadow guards editing an existing shadow.
	ActionEditShadow Action = "edit_shadow"
	// ActionPublishShadow guards publishing a shadow onto its original.
	ActionPublishShadow Action = "publish_shadow"
)

// Checker is the host capability query.
type Checker interface {
	Can(ctx context.Context, action Action, recordID int64) bool
}

// Gate can override a capability verdict. It receives the verdict so far and
// returns the (possibly changed) verdict.
type Gate interface {
	Allow(ctx context.Context, action Action, allowed bool, recordID int64) bool
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, action Action, allowed bool, recordID int64) bool

// Allow implements Gate.
func (f GateFunc) Allow(ctx context.Context, action Action, allowed bool, recordID int64) bool {
	return f(ctx, action, allowed, recordID)
}

// Registry combines a checker with override gates.
type Registry struct {
	checker Checker
	gates   []Gate
}

// NewRegistry creates a registry over the given checker.
func NewRegistry(checker Checker) *Registry {
	return &Registry{checker: checker}
}

// RegisterGate appends an override gate. Gates run in registration order.
func (r *Registry) RegisterGate(g Gate) {
	r.gates = append(r.gates, g)
}

// Allowed evaluates the capability check with overrides applied.
func (r *Registry) Allowed(ctx context.Context, action Action, recordID int64) bool {
	allowed := false
	if r.checker != nil {
		allowed = r.checker.Can(ctx, action, recordID)
	}
	for _, g := range r.gates {
		allowed = g.Allow(ctx, action, allowed, recordID)
	}
	return allowed
}
