package httpapi

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jensholdgaard/auctioneer/internal/clock"
)

// CookieName is the session cookie set by /login.
const CookieName = "auction_session"

const (
	tokenIssuer  = "auctioneer"
	tokenSubject = "operator"
)

var (
	ErrBadCredentials  = errors.New("invalid password")
	ErrUnauthenticated = errors.New("authentication required")
)

// Authenticator issues and verifies operator session tokens. With an empty
// password every request is let through.
type Authenticator struct {
	password []byte
	secret   []byte
	ttl      time.Duration
	clock    clock.Clock
}

// NewAuthenticator returns an Authenticator signing HS256 tokens with secret.
func NewAuthenticator(password, secret string, ttl time.Duration, clk clock.Clock) *Authenticator {
	return &Authenticator{
		password: []byte(password),
		secret:   []byte(secret),
		ttl:      ttl,
		clock:    clk,
	}
}

// Enabled reports whether a password is required.
func (a *Authenticator) Enabled() bool { return len(a.password) > 0 }

// Login checks password and returns a signed token with its expiry.
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if subtle.ConstantTimeCompare([]byte(password), a.password) != 1 {
		return "", time.Time{}, ErrBadCredentials
	}
	now := a.clock.Now()
	exp := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    tokenIssuer,
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, exp, nil
}

// Verify validates a token issued by Login.
func (a *Authenticator) Verify(tokenString string) error {
	_, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(tokenSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return nil
}

// Middleware rejects requests without a valid token in the session cookie
// or an Authorization bearer header.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, kindUnauthorized, ErrUnauthenticated)
			return
		}
		if err := a.Verify(token); err != nil {
			writeError(w, http.StatusUnauthorized, kindUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return token
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func (a *Authenticator) cookie(token string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
