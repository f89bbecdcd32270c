package mcp

import (
	"context"
	"time"

	"github.com/lukman83/matcha-stock/internal/classifier"
	"github.com/lukman83/matcha-stock/internal/models"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "matcha-stock"
	serverVersion = "1.0.0"
)

// Backend is what the tools read from. *app.App implements it.
type Backend interface {
	Check(ctx context.Context, url string, render bool) (classifier.Result, error)
	Restocked(ctx context.Context, lookback time.Duration) ([]models.Restock, error)
	BrandSummaries(ctx context.Context) ([]models.BrandSummary, error)
	BrandStatus(ctx context.Context, name string) ([]models.ProductStatus, error)
}

func newServer(b Backend) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	registerTools(s, b)
	return s
}

// Serve starts the MCP stdio server with all tools registered.
func Serve(b Backend) error {
	return server.ServeStdio(newServer(b))
}
