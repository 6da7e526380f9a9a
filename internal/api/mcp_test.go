package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/parentreply/internal/drafting"
	"github.com/kalambet/parentreply/internal/storage"
)

// --- mocks ---

type mockDrafter struct {
	calls int
	last  drafting.Request
	email string
	err   error
}

func (m *mockDrafter) Draft(_ context.Context, req drafting.Request) (drafting.Draft, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return drafting.Draft{}, m.err
	}
	return drafting.Draft{ID: "d-1", Email: m.email}, nil
}

// --- helpers ---

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_DraftReply(t *testing.T) {
	d := &mockDrafter{email: "Dear Parent..."}
	handler := mcpDraftReply(MCPDeps{Drafter: d})

	result, err := handler(context.Background(), makeCallToolRequest("draft_parent_reply", map[string]interface{}{
		"parent_type":       "analytical",
		"email_context":     "What is the grading rubric?",
		"situation_context": "Rubric was posted last week.",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "Dear Parent..." {
		t.Errorf("text = %q", got)
	}
	want := drafting.Request{
		ParentType:       "analytical",
		EmailContext:     "What is the grading rubric?",
		SituationContext: "Rubric was posted last week.",
	}
	if d.last != want {
		t.Errorf("drafter got %+v, want %+v", d.last, want)
	}
}

func TestMCPTool_DraftReply_Errors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"missing", drafting.ErrMissingFields, "Missing required fields"},
		{"unknown", drafting.ErrUnknownParentType, "Unknown parent type"},
		{"provider", &drafting.ProviderError{StatusCode: 529}, "API request failed"},
		{"internal", drafting.ErrEmptyCompletion, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := mcpDraftReply(MCPDeps{Drafter: &mockDrafter{err: tc.err}})

			result, err := handler(context.Background(), makeCallToolRequest("draft_parent_reply", map[string]interface{}{}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected tool error")
			}
			if got := toolText(t, result); got != tc.want {
				t.Errorf("text = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMCPTool_DraftReply_RealValidation(t *testing.T) {
	handler := mcpDraftReply(MCPDeps{Drafter: drafting.New(nil, drafting.Options{})})

	result, _ := handler(context.Background(), makeCallToolRequest("draft_parent_reply", map[string]interface{}{
		"parent_type": "driver",
	}))
	if !result.IsError || toolText(t, result) != "Missing required fields" {
		t.Errorf("result = %+v", result)
	}
}

func TestMCPTool_ListPersonalities(t *testing.T) {
	result, err := mcpListPersonalities(context.Background(), makeCallToolRequest("list_personalities", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var profiles []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &profiles); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	var names []string
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "balanced,driver,analytical,expressive,amiable" {
		t.Errorf("names = %s", got)
	}
}

func TestMCPResource_Profiles(t *testing.T) {
	contents, err := mcpResourceProfiles(context.Background(), makeReadResourceRequest("personality://profiles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.MIMEType != "application/json" || tc.URI != "personality://profiles" {
		t.Errorf("contents = %+v", tc)
	}
	if !strings.Contains(tc.Text, `"expressive"`) {
		t.Errorf("text missing expressive profile: %s", tc.Text)
	}
}

func TestMCPResource_Recent(t *testing.T) {
	hist := &memHistory{drafts: []storage.Draft{
		{ID: "d-1", ParentType: "driver", Status: storage.StatusCompleted, Email: strings.Repeat("x", 300)},
	}}
	handler := mcpResourceRecent(MCPDeps{History: hist})

	contents, err := handler(context.Background(), makeReadResourceRequest("drafts://recent"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)

	var got []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &got); err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d-1" {
		t.Fatalf("drafts = %+v", got)
	}
	if len([]rune(got[0].Email)) != 203 {
		t.Errorf("email not truncated: %d runes", len([]rune(got[0].Email)))
	}
}

func TestNewMCPServer(t *testing.T) {
	s := NewMCPServer(MCPDeps{Drafter: &mockDrafter{}})
	if s == nil {
		t.Fatal("nil server")
	}
}
