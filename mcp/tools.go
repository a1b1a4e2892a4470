package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type tools struct {
	svc Identity
}

// launchOptions are the arguments every browser-backed tool accepts.
func launchOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("profileId",
			mcp.Description("Persistent profile to launch (default: \"default\")"),
		),
		mcp.WithObject("fingerprint",
			mcp.Description("Custom fingerprint; a random one is generated when omitted"),
		),
		mcp.WithObject("proxy",
			mcp.Description("Proxy as {host, port, username?, password?}"),
		),
		mcp.WithArray("extensionPaths",
			mcp.Description("Absolute paths of unpacked extensions to load"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	}
}

func withLaunch(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append(opts, launchOptions()...)...)
}

// fingerprintTool describes generate_fingerprint. Custom fingerprints are
// passed through without validation.
func fingerprintTool() mcp.Tool {
	return mcp.NewTool("generate_fingerprint",
		mcp.WithDescription("Generate a random browser fingerprint, or echo a custom one unchanged"),
		mcp.WithObject("fingerprint",
			mcp.Description("Custom fingerprint to return unchanged"),
		),
	)
}

func registerTools(s *server.MCPServer, t *tools) {
	// generate_fingerprint
	s.AddTool(fingerprintTool(), t.handleGenerateFingerprint)

	// query_ip
	ipTool := withLaunch("query_ip",
		mcp.WithDescription("Launch a browser wearing a fingerprint and report the exit IP it is seen from"),
	)
	s.AddTool(ipTool, t.handleQueryIP)

	// snapshot
	snapTool := withLaunch("snapshot",
		mcp.WithDescription("Open a URL under a fingerprint and return a base64 PNG screenshot"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page URL (http or https)"),
		),
		mcp.WithBoolean("cookies",
			mcp.Description("Include the cookie jar in the result"),
		),
	)
	s.AddTool(snapTool, t.handleSnapshot)

	// get_cookies
	cookiesTool := withLaunch("get_cookies",
		mcp.WithDescription("Open a URL under a fingerprint and return the cookies it set"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page URL (http or https)"),
		),
	)
	s.AddTool(cookiesTool, t.handleGetCookies)

	// run_bulk
	bulkTool := mcp.NewTool("run_bulk",
		mcp.WithDescription("Query the exit IP for several profiles, one browser at a time"),
		mcp.WithArray("profiles",
			mcp.Required(),
			mcp.Description("Launch specs: {profileId?, fingerprint?, proxy?, extensionPaths?}"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithString("policy",
			mcp.Description("Failure policy: abort (default) or collect"),
			mcp.Enum(string(models.BulkAbort), string(models.BulkCollect)),
		),
	)
	s.AddTool(bulkTool, t.handleRunBulk)
}

// bindArgs decodes the tool arguments into v through their JSON form.
func bindArgs(request mcp.CallToolRequest, v any) error {
	data, err := json.Marshal(request.GetArguments())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *tools) handleGenerateFingerprint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Fingerprint *models.Fingerprint `json:"fingerprint"`
	}
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	return jsonResult(t.svc.GenerateFingerprint(args.Fingerprint))
}

func (t *tools) handleQueryIP(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var spec models.LaunchSpec
	if err := bindArgs(request, &spec); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	res, err := t.svc.QueryIP(ctx, spec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query_ip error: %v", err)), nil
	}
	return jsonResult(res)
}

type targetArgs struct {
	models.LaunchSpec
	URL     string `json:"url"`
	Cookies bool   `json:"cookies"`
}

func (t *tools) handleSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args targetArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.URL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	res, err := t.svc.Snapshot(ctx, args.LaunchSpec, args.URL, args.Cookies)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot error: %v", err)), nil
	}
	return jsonResult(res)
}

func (t *tools) handleGetCookies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args targetArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.URL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	res, err := t.svc.Cookies(ctx, args.LaunchSpec, args.URL)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_cookies error: %v", err)), nil
	}
	return jsonResult(res)
}

func (t *tools) handleRunBulk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Profiles []models.LaunchSpec `json:"profiles"`
		Policy   string              `json:"policy"`
	}
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if len(args.Profiles) == 0 {
		return mcp.NewToolResultError("profiles is required"), nil
	}
	report, err := t.svc.RunBulk(ctx, args.Profiles, models.BulkPolicy(args.Policy))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run_bulk error: %v", err)), nil
	}
	return jsonResult(report)
}
