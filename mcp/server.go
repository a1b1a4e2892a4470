// Package mcp exposes the identity operations as MCP tools.
package mcp

import (
	"context"

	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "beast-antidetect"
	serverVersion = "1.0.0"
)

// Identity is the set of operations the tools call.
type Identity interface {
	GenerateFingerprint(candidate *models.Fingerprint) models.Fingerprint
	QueryIP(ctx context.Context, spec models.LaunchSpec) (*models.IPResult, error)
	Snapshot(ctx context.Context, spec models.LaunchSpec, target string, includeCookies bool) (*models.SnapshotResult, error)
	Cookies(ctx context.Context, spec models.LaunchSpec, target string) (*models.CookiesResult, error)
	RunBulk(ctx context.Context, specs []models.LaunchSpec, policy models.BulkPolicy) (*models.BulkReport, error)
}

// NewServer builds an MCP server with all tools registered.
func NewServer(svc Identity) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	registerTools(s, &tools{svc: svc})
	return s
}

// Serve starts the MCP stdio server.
func Serve(svc Identity) error {
	return server.ServeStdio(NewServer(svc))
}
