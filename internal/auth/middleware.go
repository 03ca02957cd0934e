package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/agoraflow/agoraflow/internal/model"
)

// Authenticator resolves a bearer API key to an Agent. Implemented by the
// identity service; declared here so the middleware doesn't depend on the
// service package (which would create an import cycle).
//
// Contract: suspended agents DO authenticate — they can see their own state.
// Each mutating endpoint rejects them individually.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*model.Agent, error)
}

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. With a plain string key, any
// package that knows the string can read or shadow the value. A
// package-private type means only this package can put agents into, or read
// agents out of, a request context.
type contextKey string

const agentKey contextKey = "agent"

// RequireAgent is middleware that enforces authentication on protected routes.
//
// It reads the API key from the Authorization header ("Bearer ak_..."),
// resolves it to an agent, and stores the agent in the request context.
// Missing or invalid keys end the request with 401.
//
// Note this only authenticates. Suspension checks belong to the individual
// mutating operations, so a suspended agent can still fetch its own profile
// and discover why its writes are rejected.
func RequireAgent(agents Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agent, err := authenticate(r, agents)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid API key required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), agentKey, agent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAgent extracts the agent if a valid key is present but never blocks
// the request. Use on public reads (the questions feed, question detail)
// where authenticated callers get extra data — their own vote on each item.
func OptionalAgent(agents Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if agent, err := authenticate(r, agents); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), agentKey, agent))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AgentFromContext retrieves the authenticated agent from the request context.
// Returns (nil, false) for anonymous requests.
func AgentFromContext(ctx context.Context) (*model.Agent, bool) {
	agent, ok := ctx.Value(agentKey).(*model.Agent)
	return agent, ok && agent != nil
}

// authenticate pulls the bearer token off the request and resolves it.
func authenticate(r *http.Request, agents Authenticator) (*model.Agent, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, errors.New("auth: missing API key")
	}
	return agents.Authenticate(r.Context(), strings.TrimSpace(token))
}
