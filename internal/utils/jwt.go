// Package utils provides helper functions for credential hashing and
// token creation: bcrypt passwords, RS256 access tokens and the opaque
// refresh/verification token scheme.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by VerifyAccessToken for any token that
// fails cryptographic verification: bad signature, malformed claims or
// expiry.  Callers get no further detail on purpose.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed RS256 JWT together with the metadata callers
// need to correlate and expire it.
type AccessToken struct {
	Token     string
	TokenUUID string // fresh random id embedded in the claims, for revocation correlation
	Exp       time.Time
}

// TokenIdentity is the result of verifying an access token: the subject
// and the token's own uuid.  Verification is purely cryptographic and
// never touches the database.
type TokenIdentity struct {
	UserID    string
	TokenUUID string
}

// NewAccessToken builds and signs an RS256 JWT for a user.  privateKeyB64
// is a base64-encoded PEM private key as stored in configuration.  The
// claims carry subject, a fresh token uuid, iat/nbf/exp and the resolved
// permission and role sets, sorted and deduplicated so identical inputs
// always produce identical claim sequences.
func NewAccessToken(privateKeyB64, userID string, ttlMin int, permissions, roles []string) (AccessToken, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return AccessToken{}, fmt.Errorf("decode private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return AccessToken{}, fmt.Errorf("parse private key: %w", err)
	}

	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	tokenUUID := uuid.NewString()

	claims := jwt.MapClaims{
		"sub":         userID,
		"token_uuid":  tokenUUID,
		"exp":         exp.Unix(),
		"iat":         now.Unix(),
		"nbf":         now.Unix(),
		"permissions": SortedUnique(permissions),
		"roles":       SortedUnique(roles),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: signed, TokenUUID: tokenUUID, Exp: exp}, nil
}

// VerifyAccessToken checks signature and standard claims (including
// expiry) against the base64-encoded PEM public key and extracts the
// subject and token uuid.  Any failure maps to ErrInvalidToken.
func VerifyAccessToken(publicKeyB64, token string) (TokenIdentity, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return TokenIdentity{}, fmt.Errorf("decode public key: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return TokenIdentity{}, fmt.Errorf("parse public key: %w", err)
	}

	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return key, nil
	})
	if err != nil || !tok.Valid {
		return TokenIdentity{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenIdentity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	tokenUUID, _ := claims["token_uuid"].(string)
	if sub == "" || tokenUUID == "" {
		return TokenIdentity{}, ErrInvalidToken
	}
	return TokenIdentity{UserID: sub, TokenUUID: tokenUUID}, nil
}

// NewOpaqueRefresh returns a fresh refresh-token pair: the raw secret
// handed to the client (256 bits, URL-safe base64) and the hash stored
// server-side.  Only the hash ever reaches the database, so a dump of
// the tokens table cannot be replayed.
func NewOpaqueRefresh() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashRefreshRaw(raw), nil
}

// HashRefreshRaw returns the base64-encoded SHA-256 digest of a raw
// refresh secret, the form in which refresh tokens are stored and
// looked up.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// NewVerificationToken returns an opaque email-verification token:
// 32 random bytes, URL-safe base64 so it can travel in a link.
func NewVerificationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SortedUnique returns a lexicographically sorted copy of in with
// duplicates and empty strings removed.  Claim sequences built from it
// are deterministic regardless of query ordering.
func SortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
