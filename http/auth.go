package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

// HeaderClientID carries the client id a caller picked for itself. The
// server generates one when the header is absent.
const HeaderClientID = "X-Tafl-Client-Id"

// ErrTypeUnauthorized tags auth secret mismatches.
const ErrTypeUnauthorized = "unauthorized"

// VerifyAuthSecret returns a WebSocket handshake check that requires
// the shared secret as a bearer token. An empty secret disables the
// check.
func VerifyAuthSecret(secret string) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := checkAuthSecret(secret, r); err != nil {
			logs.WithClientID(r.Header.Get(HeaderClientID)).Error(err)
			return err
		}

		return nil
	}
}

// VerifyAuthSecretHandler guards an HTTP handler with the shared
// secret.
func VerifyAuthSecretHandler(secret string, next http.HandlerFunc) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkAuthSecret(secret, r); err != nil {
			logs.WithClientID(r.Header.Get(HeaderClientID)).Error(err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func checkAuthSecret(secret string, r *http.Request) error {
	if secret == "" {
		return nil
	}

	token := BearerToken(r)
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return errors.New("invalid auth secret").
			WithType(ErrTypeUnauthorized)
	}
	return nil
}

// BearerToken extracts the bearer token from the Authorization header,
// empty when the header is missing or not a bearer scheme.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return auth[len(prefix):]
}
