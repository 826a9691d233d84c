// Package guard enforces route access at navigation time.
package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
)

// DefaultEntryRoute is where anonymous visitors are sent.
const DefaultEntryRoute = "/login"

// Outcome is the result class of a guard decision.
type Outcome int

const (
	Allow Outcome = iota
	RedirectEntry
	RedirectHome
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectEntry:
		return "redirect_entry"
	case RedirectHome:
		return "redirect_home"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Decision is what the guard concluded for one navigation.
type Decision struct {
	Outcome  Outcome
	Location string
	Role     rbac.Role
	Path     string
}

// Strategy decides how an authenticated but unauthorized navigation ends.
// home is the role's landing route and homeAllowed says whether the role
// may open it.
type Strategy func(role rbac.Role, path, home string, homeAllowed bool) Decision

// SoftRedirect sends the user to their landing route. If that route is
// itself forbidden it denies instead of redirecting in a loop.
func SoftRedirect(role rbac.Role, path, home string, homeAllowed bool) Decision {
	if !homeAllowed || home == path {
		return Decision{Outcome: Deny, Location: "", Role: role, Path: path}
	}
	return Decision{Outcome: RedirectHome, Location: home, Role: role, Path: path}
}

// HardDeny renders the access denied view, offering the landing route as the
// way back when the role may open it.
func HardDeny(role rbac.Role, path, home string, homeAllowed bool) Decision {
	d := Decision{Outcome: Deny, Role: role, Path: path}
	if homeAllowed && home != path {
		d.Location = home
	}
	return d
}

// ErrUnknownStrategy is returned when parsing an unsupported strategy name.
var ErrUnknownStrategy = errors.New("guard: unknown strategy")

// ParseStrategy maps configuration input to a Strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "redirect":
		return SoftRedirect, nil
	case "deny":
		return HardDeny, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
	}
}

// Guard combines the resolver with an unauthorized-access strategy.
type Guard struct {
	resolver   *rbac.Resolver
	strategy   Strategy
	entryRoute string
}

// New constructs a Guard. A nil strategy means SoftRedirect; an empty entry
// route means DefaultEntryRoute.
func New(resolver *rbac.Resolver, strategy Strategy, entryRoute string) *Guard {
	if strategy == nil {
		strategy = SoftRedirect
	}
	if entryRoute == "" {
		entryRoute = DefaultEntryRoute
	}
	return &Guard{resolver: resolver, strategy: strategy, entryRoute: entryRoute}
}

// With returns a copy of the guard using strategy.
func (g *Guard) With(strategy Strategy) *Guard {
	cp := *g
	if strategy != nil {
		cp.strategy = strategy
	}
	return &cp
}

// EntryRoute returns the public entry route.
func (g *Guard) EntryRoute() string {
	return g.entryRoute
}

// Decide evaluates a navigation to path by the holder of p. A nil profile is
// anonymous. It never mutates p.
func (g *Guard) Decide(p *profile.Profile, path string) Decision {
	if p == nil || p.Role == "" {
		return Decision{Outcome: RedirectEntry, Location: g.entryRoute, Path: path}
	}
	role := p.Role
	if !g.resolver.Registry().IsValidRole(role) {
		return Decision{Outcome: RedirectEntry, Location: g.entryRoute, Role: role, Path: path}
	}
	if g.resolver.CanAccessRoute(role, path) {
		return Decision{Outcome: Allow, Role: role, Path: path}
	}
	home := g.resolver.HomeRoute(role)
	return g.strategy(role, path, home, g.resolver.CanAccessRoute(role, home))
}
