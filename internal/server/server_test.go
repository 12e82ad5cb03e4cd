package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

func newTokenEndpoint(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://example.com/auth", TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, fmt.Errorf("connection reset")
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges the code", func(t *testing.T) {
		tokens := newTokenEndpoint(t, http.StatusOK)
		h := NewOAuthHandler(testConfig(tokens.URL), "state-1", "Spotify", nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=good-code", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Spotify connected") {
			t.Errorf("unexpected page %q", rec.Body.String())
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		tok, err := h.Wait(ctx)
		if err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if tok.AccessToken != "access" || tok.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", tok)
		}
	})

	t.Run("rejects a bad state", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("http://unused"), "state-1", "Spotify", nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		_, err := h.Wait(context.Background())
		if err == nil || !strings.Contains(err.Error(), "state") {
			t.Errorf("expected state error, got %v", err)
		}
	})

	t.Run("reports a denied consent", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("http://unused"), "s", "YouTube Music", nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		_, err := h.Wait(context.Background())
		if err == nil || !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", err)
		}
	})

	t.Run("reports a failed exchange", func(t *testing.T) {
		tokens := newTokenEndpoint(t, http.StatusUnauthorized)
		h := NewOAuthHandler(testConfig(tokens.URL), "s", "Spotify", nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if _, err := h.Wait(context.Background()); err == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("processes one callback", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("http://unused"), "s", "Spotify", nil)
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=bad", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "already processed") {
			t.Errorf("expected second callback to be rejected, got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("logs a failed confirmation page", func(t *testing.T) {
		tokens := newTokenEndpoint(t, http.StatusOK)
		var buf bytes.Buffer
		h := NewOAuthHandler(testConfig(tokens.URL), "s", "Spotify", log.New(&buf))

		w := &brokenWriter{ResponseRecorder: httptest.NewRecorder()}
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		if !strings.Contains(buf.String(), "failed to render confirmation page") {
			t.Errorf("expected render error to be logged, got %q", buf.String())
		}
		if _, err := h.Wait(context.Background()); err != nil {
			t.Errorf("token should still be delivered, got %v", err)
		}
	})

	t.Run("wait honours the context", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("http://unused"), "s", "Spotify", nil)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := h.Wait(ctx); err != context.DeadlineExceeded {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("method routing", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle("get", "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "ok")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}

		if got := r.Routes(); len(got) != 1 || got[0] != "GET /health" {
			t.Errorf("unexpected routes %v", got)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var calls []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					calls = append(calls, name)
					next.ServeHTTP(w, req)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handler(NewOAuthHandler(testConfig("http://unused"), "s", "Spotify", nil))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, CallbackPath+"?state=x", nil))
		if strings.Join(calls, ",") != "first,second" {
			t.Errorf("unexpected middleware order %v", calls)
		}
	})

	t.Run("logging and recover", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

		r := NewBasicRouter()
		r.Use(Logging(logger), Recover(logger))
		r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom?code=secret", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		out := buf.String()
		if !strings.Contains(out, "handler panic") || !strings.Contains(out, "status=500") {
			t.Errorf("unexpected log output %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Error("query string should not be logged")
		}
	})
}

func TestCallbackServer(t *testing.T) {
	r := NewBasicRouter()
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "pong")
	}))

	srv, err := Listen("127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", srv.Addr()))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("expected pong, got %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}

	select {
	case err := <-srv.Errors():
		t.Errorf("unexpected server error %v", err)
	default:
	}
}
