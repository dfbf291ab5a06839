package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"occupancy/internal/model"
)

const (
	tokenContextKey  = "user"
	claimsContextKey = "claims"
)

// JWTMiddleware verifies the bearer token signature and expiry and stores the
// parsed token in the echo context.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  secret,
		ContextKey:  tokenContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		},
	})
}

// RequireAccessToken rejects refresh tokens and access tokens revoked by
// logout. It must run after JWTMiddleware.
func RequireAccessToken(store TokenStoreInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			claims, ok := token.Claims.(*Claims)
			if !ok || claims.TokenType != TokenTypeAccess {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if _, err := claims.UserID(); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			revoked, _ := store.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
			if revoked {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// RequireRole allows the request only when the caller holds one of roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
		}
	}
}

// ClaimsFromContext returns the claims stored by RequireAccessToken.
func ClaimsFromContext(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok
}

// SetClaims stores claims in the context. Handler tests use it to skip the
// token middlewares.
func SetClaims(c echo.Context, claims *Claims) {
	c.Set(claimsContextKey, claims)
}
