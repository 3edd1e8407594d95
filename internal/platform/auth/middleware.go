package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/rbac"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the authenticated identity a request carries. Token issuance put
// the role in the token, so no user lookup is needed to authorize a route;
// services that need freshness (e.g. deactivation checks) load the user row.
type Actor struct {
	ID   uuid.UUID
	Role rbac.Role
}

// Claims is the JWT payload minted at login.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Config holds token verification settings. Tokens are HS256-signed by this
// service itself; there is no external identity provider.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Middleware validates the bearer token and places the Actor on the request
// context.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.Secret, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			uid, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}
			role, ok := rbac.Parse(claims.Role)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token role")
			}

			ctx := WithActor(c.Request().Context(), Actor{ID: uid, Role: role})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// MustActor returns the actor set by Middleware. Routes behind the
// middleware always have one.
func MustActor(c echo.Context) Actor {
	a, _ := ActorFromContext(c.Request().Context())
	return a
}
