package shared

import (
	"context"
	"net/http"
	"strings"
)

// ActorHeader carries the id of the user operating the register.
const ActorHeader = "X-User-ID"

type actorContextKey struct{}

// ContextWithActor stores the acting user id in context.
func ContextWithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFromContext extracts the acting user id from context.
func ActorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(actorContextKey{}).(string)
	return id
}

// ActorMiddleware copies the actor header into the request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(ActorHeader)); id != "" {
			r = r.WithContext(ContextWithActor(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
