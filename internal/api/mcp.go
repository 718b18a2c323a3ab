package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/scoutly/prospector/internal/quota"
)

// MCPDeps holds dependencies for the MCP server. MCP callers share the same
// quota gate and pipeline as the HTTP API; the transport is the only
// difference.
type MCPDeps struct {
	Acquirer Acquirer
	Gate     QuotaGate
	Audit    AuditReader // optional; if nil, the recent resource is empty
}

// NewMCPServer creates an MCP server with the acquisition tools registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"prospector",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("prospector — fetch structured LinkedIn profile records by URL, subject to per-identifier quota."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("acquire_profile",
			mcp.WithDescription("Fetch a LinkedIn profile by URL and return a structured record (name, headline, experience, education, skills)."),
			mcp.WithString("url", mcp.Description("LinkedIn profile URL, e.g. https://www.linkedin.com/in/username"), mcp.Required()),
			mcp.WithString("identifier", mcp.Description("Quota identifier; defaults to \"mcp\"")),
			mcp.WithString("tier", mcp.Description("Account tier, \"free\" or \"paid\" (default free)")),
		),
		mcpAcquireProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("quota_status",
			mcp.WithDescription("Report remaining acquisition allowance for an identifier without consuming any."),
			mcp.WithString("identifier", mcp.Description("Quota identifier"), mcp.Required()),
			mcp.WithString("tier", mcp.Description("Account tier, \"free\" or \"paid\" (default free)")),
		),
		mcpQuotaStatus(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"prospector://recent",
			"Recent Acquisitions",
			mcp.WithResourceDescription("Last 10 acquisition attempts from the audit log"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAcquireProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawURL, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		identifier := req.GetString("identifier", "mcp")
		tier := quota.ParseTier(req.GetString("tier", ""))

		out := deps.Acquirer.Acquire(ctx, rawURL, identifier, tier)
		if !out.Result.OK() {
			f := out.Result.Failure
			return mcpError(fmt.Sprintf("%s: %s", f.Kind, f.Message)), nil
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpQuotaStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		identifier, err := req.RequireString("identifier")
		if err != nil {
			return mcpError("identifier is required"), nil
		}
		tier := quota.ParseTier(req.GetString("tier", ""))

		status, err := deps.Gate.Peek(ctx, identifier, tier)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read quota: %v", err)), nil
		}

		b, err := json.Marshal(status)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal status: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text := "[]"
		if deps.Audit != nil {
			entries, err := deps.Audit.ListAcquisitions(ctx, 10, 0)
			if err != nil {
				return nil, fmt.Errorf("failed to list acquisitions: %w", err)
			}
			if len(entries) > 0 {
				b, err := json.Marshal(entries)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal acquisitions: %w", err)
				}
				text = string(b)
			}
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
