package app

import (
	"context"
	"strings"
)

// Actor names the host surface that issued a store mutation.
type Actor string

// Actor values used by the bundled hosts.
const (
	ActorUnknown Actor = "unknown"
	ActorTUI     Actor = "tui"
	ActorWeb     Actor = "web"
	ActorAPI     Actor = "api"
	ActorMCP     Actor = "mcp"
	ActorReplay  Actor = "replay"
)

// actorContextKey stores context keys for actor values.
type actorContextKey struct{}

// WithActor attaches a normalized actor to context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, normalizeActor(actor))
}

// ActorFromContext returns the attached actor, or ActorUnknown.
func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return ActorUnknown
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok {
		return ActorUnknown
	}
	return actor
}

// normalizeActor canonicalizes actor names.
func normalizeActor(actor Actor) Actor {
	actor = Actor(strings.ToLower(strings.TrimSpace(string(actor))))
	if actor == "" {
		return ActorUnknown
	}
	return actor
}
