// Package middleware provides shared request processing: access-token
// verification, role/permission gates and rate limiting.
package middleware

import (
	"encoding/base64"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys populated by JWTAuth for downstream handlers and gates.
const (
	CtxUserID      = "user_id"
	CtxTokenUUID   = "token_uuid"
	CtxRoles       = "roles"
	CtxPermissions = "permissions"
)

// JWTAuth returns a middleware that validates a Bearer access token
// against the base64-encoded PEM RSA public key and injects the
// subject, token uuid and the role/permission claims into the request
// context. Verification is purely cryptographic; no database access.
// The key is parsed once at startup and a malformed key is fatal.
func JWTAuth(publicKeyB64 string) echo.MiddlewareFunc {
	pemBytes, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		log.Fatalf("jwt middleware: decode public key: %v", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		log.Fatalf("jwt middleware: parse public key: %v", err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
					return nil, echo.ErrUnauthorized
				}
				return key, nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(CtxUserID, sub)
			if tokenUUID, ok := claims["token_uuid"].(string); ok {
				c.Set(CtxTokenUUID, tokenUUID)
			}
			c.Set(CtxRoles, claimStrings(claims["roles"]))
			c.Set(CtxPermissions, claimStrings(claims["permissions"]))
			return next(c)
		}
	}
}

// claimStrings converts a decoded JSON claim ([]interface{}) back into
// a string slice, dropping anything that is not a string.
func claimStrings(v any) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
