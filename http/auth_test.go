package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	utests := []struct {
		scenario string
		header   string
		token    string
	}{
		{
			scenario: "bearer token is returned",
			header:   "Bearer hifrid",
			token:    "hifrid",
		},
		{
			scenario: "lowercase scheme is accepted",
			header:   "bearer hifrid",
			token:    "hifrid",
		},
		{
			scenario: "missing header returns an empty token",
		},
		{
			scenario: "non bearer scheme returns an empty token",
			header:   "Basic aGk6ZnJpZA==",
		},
		{
			scenario: "bare scheme returns an empty token",
			header:   "Bearer ",
		},
	}

	for _, u := range utests {
		t.Run(u.scenario, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if u.header != "" {
				req.Header.Set("Authorization", u.header)
			}

			require.Equal(t, u.token, BearerToken(req))
		})
	}
}

func TestVerifyAuthSecretHandler(t *testing.T) {
	t.Run("matching secret reaches the handler", func(t *testing.T) {
		var called bool
		h := VerifyAuthSecretHandler("hifrid", func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer hifrid")
		rec := httptest.NewRecorder()
		h(rec, req)

		require.True(t, called)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		var called bool
		h := VerifyAuthSecretHandler("hifrid", func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		h(rec, req)

		require.False(t, called)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		h := VerifyAuthSecretHandler("hifrid", func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler called without a token")
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty secret disables the check", func(t *testing.T) {
		var called bool
		h := VerifyAuthSecretHandler("", func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h(rec, req)

		require.True(t, called)
	})
}

func TestHandleWithCORS(t *testing.T) {
	t.Run("preflight is answered directly", func(t *testing.T) {
		h := HandleWithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler called on preflight")
		}))

		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("request passes through with cors headers", func(t *testing.T) {
		h := HandleWithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusTeapot, rec.Code)
		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
