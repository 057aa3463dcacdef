package middleware

import "context"

const ActorKey contextKey = "actor"

// SystemActor is recorded for changes made by background workers.
const SystemActor = "system"

// WithActor returns a context carrying the identity recorded in the change
// log for mutations made under it.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the actor from context, defaulting to SystemActor.
func GetActor(ctx context.Context) string {
	if a, ok := ctx.Value(ActorKey).(string); ok && a != "" {
		return a
	}
	return SystemActor
}
