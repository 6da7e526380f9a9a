package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/parentreply/internal/drafting"
	"github.com/kalambet/parentreply/internal/personality"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Drafter Drafter
	History History // optional; if nil, drafts://recent is not registered
}

// NewMCPServer creates an MCP server with the drafting tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"parentreply",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("parentreply drafts teacher replies to parent emails, tailored to the parent's communication style."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("draft_parent_reply",
			mcp.WithDescription("Draft a reply email to a parent, matched to their communication style."),
			mcp.WithString("parent_type",
				mcp.Description("Parent communication style"),
				mcp.Enum(personality.Names()...),
				mcp.Required(),
			),
			mcp.WithString("email_context", mcp.Description("The parent's email"), mcp.Required()),
			mcp.WithString("situation_context", mcp.Description("The teacher's account of the situation"), mcp.Required()),
		),
		mcpDraftReply(deps),
	)

	s.AddTool(
		mcp.NewTool("list_personalities",
			mcp.WithDescription("List the parent communication styles and their writing instructions."),
		),
		mcpListPersonalities,
	)

	s.AddResource(
		mcp.NewResource(
			"personality://profiles",
			"Personality Profiles",
			mcp.WithResourceDescription("Parent communication styles as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfiles,
	)

	if deps.History != nil {
		s.AddResource(
			mcp.NewResource(
				"drafts://recent",
				"Recent Drafts",
				mcp.WithResourceDescription("Last 10 recorded drafts"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecent(deps),
		)
	}

	return s
}

func mcpDraftReply(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Missing arguments fall through to the drafter so the tool reports
		// the same message as the HTTP endpoint.
		dr := drafting.Request{
			ParentType:       req.GetString("parent_type", ""),
			EmailContext:     req.GetString("email_context", ""),
			SituationContext: req.GetString("situation_context", ""),
		}

		d, err := deps.Drafter.Draft(ctx, dr)
		if err != nil {
			slog.Warn("mcp draft failed", "error", err)
			return mcpError(publicMessage(err)), nil
		}
		return mcpText(d.Email), nil
	}
}

func mcpListPersonalities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(personality.All())
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal profiles: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpResourceProfiles(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(personality.All())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profiles: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		drafts, err := deps.History.ListDrafts(ctx, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list drafts: %w", err)
		}

		type draftSummary struct {
			ID         string `json:"id"`
			CreatedAt  string `json:"created_at"`
			ParentType string `json:"parent_type"`
			Status     string `json:"status"`
			Email      string `json:"email,omitempty"`
		}

		summaries := make([]draftSummary, len(drafts))
		for i, d := range drafts {
			email := d.Email
			if utf8.RuneCountInString(email) > 200 {
				runes := []rune(email)
				email = string(runes[:200]) + "..."
			}
			summaries[i] = draftSummary{
				ID:         d.ID,
				CreatedAt:  d.CreatedAt.Format(time.RFC3339),
				ParentType: d.ParentType,
				Status:     d.Status,
				Email:      email,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal drafts: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
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
