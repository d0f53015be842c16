package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

type contextKey string

const identityKey contextKey = "identity"

// identity returns the authenticated display name set by the auth middleware.
func identity(r *http.Request) string {
	name, _ := r.Context().Value(identityKey).(string)
	return name
}

// authenticator issues and verifies HS256 session tokens carrying the
// display name as subject.
type authenticator struct {
	secret []byte
	ttl    time.Duration
}

func newAuthenticator(secret string, ttl time.Duration) *authenticator {
	return &authenticator{secret: []byte(secret), ttl: ttl}
}

func (a *authenticator) issue(displayName string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": displayName,
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

func (a *authenticator) verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing bearer token"))
			return
		}
		name, err := a.verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid token"))
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loginRateLimit bounds credential-guessing attempts process-wide.
func loginRateLimit() func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Every(time.Second), 5)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, fmt.Errorf("too many attempts"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
