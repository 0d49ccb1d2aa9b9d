package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/saveable/internal/auth"
	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// actorKey is the context key for the authenticated actor.
const actorKey ctxKey = "actor"

// GetActor returns the authenticated actor ref from context.
// Returns 401 error if the request is not authenticated.
func GetActor(ctx context.Context) (domain.EntityRef, error) {
	ref, ok := ctx.Value(actorKey).(domain.EntityRef)
	if !ok || ref.IsZero() {
		return domain.EntityRef{}, huma.Error401Unauthorized("Authentication required")
	}
	return ref, nil
}

// setActor stores the actor ref in context.
func setActor(ctx context.Context, ref domain.EntityRef) context.Context {
	return context.WithValue(ctx, actorKey, ref)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores the actor in context.
// If no token is present or invalid, continues without an actor in context.
// Handlers use GetActor or RequireActor to check authentication.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				// Invalid token - continue without actor (handler will reject if auth required)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setActor(r.Context(), claims.Actor())))
		})
	}
}

// RequireActor returns the live entity the request acts as.
// Returns 401 if not authenticated or the entity no longer exists.
func (s *Server) RequireActor(ctx context.Context) (domain.Entity, error) {
	ref, err := GetActor(ctx)
	if err != nil {
		return nil, err
	}

	actor, err := s.registry.Load(ctx, ref.Type, ref.ID)
	switch {
	case errors.Is(err, domainerrors.ErrNotFound), errors.Is(err, domainerrors.ErrUnknownType):
		return nil, huma.Error401Unauthorized("Actor not found")
	case err != nil:
		return nil, err
	}
	return actor, nil
}

// rateLimitKey charges authenticated requests to their actor and the rest
// to the client address.
func rateLimitKey(r *http.Request) string {
	if ref, ok := r.Context().Value(actorKey).(domain.EntityRef); ok && !ref.IsZero() {
		return "actor:" + ref.String()
	}
	return "ip:" + clientIP(r)
}

// clientIP strips the port from RemoteAddr, which RealIP has already
// rewritten from forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
