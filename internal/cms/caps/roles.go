package caps

import "context"

type contextKey string

// rolesKey carries the authenticated user's roles through the request context.
const rolesKey contextKey = "redline:roles"

// WithRoles returns a context carrying the user's roles.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}

// RolesFromContext returns the roles stored on the context, if any.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(rolesKey).([]string)
	return roles
}

// RoleChecker grants actions based on the roles carried by the request
// context. It is the default Checker used by the admin server.
type RoleChecker struct {
	grants map[string][]Action
}

// NewRoleChecker creates a checker from a role -> actions grant table.
func NewRoleChecker(grants map[string][]Action) *RoleChecker {
	return &RoleChecker{grants: grants}
}

// DefaultGrants returns the built-in grant table: editors and admins may do
// everything shadow-related.
func DefaultGrants() map[string][]Action {
	all := []Action{ActionCreateShadow, ActionEditShadow, ActionPublishShadow}
	return map[string][]Action{
		"admin":  all,
		"editor": all,
	}
}

// Can implements Checker.
func (c *RoleChecker) Can(ctx context.Context, action Action, recordID int64) bool {
	for _, role := range RolesFromContext(ctx) {
		for _, granted := range c.grants[role] {
			if granted == action {
				return true
			}
		}
	}
	return false
}
