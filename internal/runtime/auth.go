package runtime

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// DevAPIKey is accepted when no credential of any kind is configured.
const DevAPIKey = "insecure_dev_key"

// APIKeyHeader carries the shared API key.
const APIKeyHeader = "X-API-Key"

// ErrUnauthorized is the message returned for rejected requests.
var ErrUnauthorized = errors.New("invalid or missing credentials")

// Credentials holds every accepted way to authenticate a request.
type Credentials struct {
	APIKey     string
	APIKeyHash string // bcrypt hash of an API key
	JWTSecret  []byte
}

// Insecure reports whether nothing is configured and the development key applies.
func (c Credentials) Insecure() bool {
	return c.APIKey == "" && c.APIKeyHash == "" && len(c.JWTSecret) == 0
}

// Authenticate checks an API key and a bearer token. It returns the caller
// subject: "api-key" for key access or the token subject.
func (c Credentials) Authenticate(apiKey, bearer string) (string, bool) {
	if apiKey != "" {
		if c.matchKey(apiKey) {
			return "api-key", true
		}
	}
	if bearer != "" && len(c.JWTSecret) > 0 {
		if sub, err := ParseJWT(bearer, c.JWTSecret); err == nil {
			return sub, true
		}
	}
	return "", false
}

func (c Credentials) matchKey(key string) bool {
	expected := c.APIKey
	if c.Insecure() {
		expected = DevAPIKey
	}
	if expected != "" && subtle.ConstantTimeCompare([]byte(key), []byte(expected)) == 1 {
		return true
	}
	if c.APIKeyHash != "" && bcrypt.CompareHashAndPassword([]byte(c.APIKeyHash), []byte(key)) == nil {
		return true
	}
	return false
}

// HashAPIKey returns a bcrypt hash suitable for server.api_key_hash.
func HashAPIKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}

// SignJWT issues a signed token with the provided subject and TTL.
func SignJWT(subject string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseJWT validates an HS256 token and returns its subject.
func ParseJWT(token string, secret []byte) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// EchoAuthMiddleware rejects requests that carry neither a valid API key nor a valid bearer token.
func EchoAuthMiddleware(creds Credentials) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sub, ok := creds.Authenticate(c.Request().Header.Get(APIKeyHeader), bearerToken(c))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error())
			}
			c.Set("subject", sub)
			c.SetRequest(c.Request().WithContext(ContextWithSubject(c.Request().Context(), sub)))
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

type subjectKey struct{}

// ContextWithSubject stores the authenticated caller in ctx.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext returns the caller stored by the auth middleware.
func SubjectFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(subjectKey{}).(string)
	return s, ok
}
