package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/authz"
	"github.com/phishdrill/phishdrill/internal/metrics"
)

// Authorizer enforces per-route requirements against the principal placed
// in the context by Authenticate.
type Authorizer struct {
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewAuthorizer creates a new Authorizer.
func NewAuthorizer(logger *slog.Logger, recorder metrics.Recorder) *Authorizer {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Authorizer{logger: logger, metrics: recorder}
}

// Require returns middleware that lets the request through only when the
// principal satisfies req. No principal is 401; a denial is 403. No role or
// permission implies any other.
func (a *Authorizer) Require(req authz.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				writeAuthError(w)
				return
			}

			decision := authz.Authorize(principal, req)
			a.metrics.IncAuthzDecision(decision.String())
			if decision != authz.Allow {
				a.logger.Warn("authorization denied",
					slog.String("account_id", principal.Subject()),
					slog.String("requirement", requirementString(req)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission is shorthand for Require(authz.AnyPermission(...)).
func (a *Authorizer) RequirePermission(permissions ...string) func(http.Handler) http.Handler {
	return a.Require(authz.AnyPermission(permissions...))
}

// RequireRole is shorthand for Require(authz.RoleEquals(role)).
func (a *Authorizer) RequireRole(role string) func(http.Handler) http.Handler {
	return a.Require(authz.RoleEquals(role))
}

func requirementString(req authz.Requirement) string {
	if req == nil {
		return "<nil>"
	}
	return req.String()
}

// writeForbidden writes a 403 response without naming what was missing.
func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":{"code":"%s","message":"%s"}}`, "FORBIDDEN", "Insufficient permissions")))
}
