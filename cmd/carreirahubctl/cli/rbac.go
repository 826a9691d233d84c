package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/carreirahub/carreirahub/internal/rbac"
)

// OutputOptions selects where and how a command prints.
type OutputOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o OutputOptions) withDefaults() OutputOptions {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// RBACCLI answers access questions against the static role tables.
type RBACCLI struct {
	resolver *rbac.Resolver
}

// NewRBACCLI constructs the helper.
func NewRBACCLI(resolver *rbac.Resolver) *RBACCLI {
	return &RBACCLI{resolver: resolver}
}

// RoleSummary describes one role for the roles command.
type RoleSummary struct {
	Role        rbac.Role         `json:"role"`
	Label       string            `json:"label"`
	Home        string            `json:"home"`
	Permissions []rbac.Permission `json:"permissions"`
	Routes      []string          `json:"routes"`
}

// Roles lists every role with its permissions and accessible routes.
func (c *RBACCLI) Roles() []RoleSummary {
	reg := c.resolver.Registry()
	out := make([]RoleSummary, 0, len(reg.Roles()))
	for _, role := range reg.Roles() {
		out = append(out, RoleSummary{
			Role:        role,
			Label:       rbac.Label(role),
			Home:        c.resolver.HomeRoute(role),
			Permissions: reg.PermissionsFor(role),
			Routes:      c.resolver.AccessibleRoutes(role),
		})
	}
	return out
}

// RolesCommand prints the role table.
func (c *RBACCLI) RolesCommand(opts OutputOptions) int {
	opts = opts.withDefaults()
	roles := c.Roles()
	if opts.JSONOutput {
		return encode(opts, "roles", roles)
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ROLE\tLABEL\tHOME\tPERMISSIONS")
	for _, r := range roles {
		perms := make([]string, 0, len(r.Permissions))
		for _, p := range r.Permissions {
			perms = append(perms, string(p))
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Role, r.Label, r.Home, strings.Join(perms, ","))
	}
	_ = tw.Flush()
	return 0
}

// RoutesCommand prints the route table and the unlisted route policy.
func (c *RBACCLI) RoutesCommand(opts OutputOptions) int {
	opts = opts.withDefaults()
	reg := c.resolver.Registry()
	if opts.JSONOutput {
		return encode(opts, "routes", map[string]any{
			"unlisted": reg.UnlistedPolicy(),
			"rules":    reg.Rules(),
		})
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATH\tROLES")
	for _, rule := range reg.Rules() {
		roles := make([]string, 0, len(rule.Roles))
		for _, r := range rule.Roles {
			roles = append(roles, string(r))
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", rule.Path, strings.Join(roles, ","))
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(opts.Stdout, "unlisted routes: %s\n", reg.UnlistedPolicy())
	return 0
}

// CanResult is the answer of the can command.
type CanResult struct {
	Role    rbac.Role `json:"role"`
	Path    string    `json:"path"`
	Allowed bool      `json:"allowed"`
	Home    string    `json:"home"`
}

// CanCommand reports whether role may open path. It exits 10 when the answer
// is no so scripts can branch on it.
func (c *RBACCLI) CanCommand(role, path string, opts OutputOptions) int {
	opts = opts.withDefaults()
	r := rbac.ParseRole(role)
	if !c.resolver.Registry().IsValidRole(r) {
		_, _ = fmt.Fprintf(opts.Stderr, "can: unknown role %q\n", role)
		return 1
	}
	result := CanResult{
		Role:    r,
		Path:    path,
		Allowed: c.resolver.CanAccessRoute(r, path),
		Home:    c.resolver.HomeRoute(r),
	}
	if opts.JSONOutput {
		if code := encode(opts, "can", result); code != 0 {
			return code
		}
	} else if result.Allowed {
		_, _ = fmt.Fprintf(opts.Stdout, "%s may open %s\n", r, path)
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "%s may NOT open %s (home: %s)\n", r, path, result.Home)
	}
	if !result.Allowed {
		return 10
	}
	return 0
}

// CheckProblem is one inconsistency found in the role tables.
type CheckProblem struct {
	Role   rbac.Role `json:"role"`
	Detail string    `json:"detail"`
}

// Check verifies that every role owns permissions and can open its landing
// route under the configured unlisted policy.
func (c *RBACCLI) Check() []CheckProblem {
	var problems []CheckProblem
	reg := c.resolver.Registry()
	for _, role := range reg.Roles() {
		if len(reg.PermissionsFor(role)) == 0 {
			problems = append(problems, CheckProblem{Role: role, Detail: "role has no permissions"})
		}
		home := c.resolver.HomeRoute(role)
		if !c.resolver.CanAccessRoute(role, home) {
			problems = append(problems, CheckProblem{Role: role, Detail: fmt.Sprintf("landing route %s is not accessible", home)})
		}
	}
	return problems
}

// CheckCommand prints the outcome of Check and exits 10 when problems exist.
func (c *RBACCLI) CheckCommand(opts OutputOptions) int {
	opts = opts.withDefaults()
	problems := c.Check()
	if opts.JSONOutput {
		if code := encode(opts, "check", map[string]any{"ok": len(problems) == 0, "problems": problems}); code != 0 {
			return code
		}
	} else if len(problems) == 0 {
		_, _ = fmt.Fprintf(opts.Stdout, "ok: %d roles checked (unlisted routes: %s)\n", len(c.resolver.Registry().Roles()), c.resolver.Registry().UnlistedPolicy())
	} else {
		for _, p := range problems {
			_, _ = fmt.Fprintf(opts.Stdout, "%s: %s\n", p.Role, p.Detail)
		}
	}
	if len(problems) > 0 {
		return 10
	}
	return 0
}

func encode(opts OutputOptions, command string, v any) int {
	enc := json.NewEncoder(opts.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "%s: encode json: %v\n", command, err)
		return 1
	}
	return 0
}
