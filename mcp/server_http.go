package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler returns the HTTP routes: /healthz and the streamable MCP endpoint
// at /mcp, behind Bearer auth when apiKey is set.
func Handler(b Backend, apiKey string) http.Handler {
	httpServer := server.NewStreamableHTTPServer(newServer(b), server.WithStateLess(true))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	var mcpHandler http.Handler = httpServer
	if apiKey != "" {
		mcpHandler = bearerAuth(apiKey, httpServer)
	}
	mux.Handle("/mcp", mcpHandler)
	return mux
}

// ServeHTTP serves Handler on addr until ctx is cancelled, then shuts down
// gracefully.
func ServeHTTP(ctx context.Context, addr, apiKey string, b Backend, logger *zap.SugaredLogger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      Handler(b, apiKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("MCP HTTP server listening", "addr", addr, "auth", apiKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Infow("MCP HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// bearerAuth rejects requests whose Bearer token does not equal apiKey.
func bearerAuth(apiKey string, next http.Handler) http.Handler {
	want := []byte(apiKey)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			unauthorized(w, `Bearer realm="mcp"`, "missing Authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			unauthorized(w, `Bearer realm="mcp", error="invalid_token"`, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, challenge, msg string) {
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
