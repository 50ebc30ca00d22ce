package common

import "context"

// Role enumerates the access levels known to the system.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleMarketOwner Role = "market_owner"
	RoleEmployee    Role = "employee"
)

// Manager reports whether the role may run close-by-date, reopen, and
// analytics operations.
func (r Role) Manager() bool {
	return r == RoleAdmin || r == RoleMarketOwner
}

// Actor identifies the authenticated user performing an operation. Every
// mutating call records Actor.ID in created_by/updated_by/closed_by audit
// columns.
type Actor struct {
	ID   int64
	Role Role
}

type ctxKey string

const actorKey ctxKey = "auth/actor"

// WithActor stores the authenticated actor on the provided context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom extracts the authenticated actor from the context if present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	v := ctx.Value(actorKey)
	if v == nil {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}
