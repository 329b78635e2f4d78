package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hireloop/hireloop/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	Evaluator CandidateEvaluator
}

// NewMCPServer creates an MCP server exposing hireloop's evaluation data to
// assistants.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"hireloop",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("hireloop — candidate evaluation engine for interview and resume scoring."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("list_job_postings",
			mcp.WithDescription("List all job postings with their identifiers and titles."),
		),
		mcpListJobPostings(deps),
	)

	s.AddTool(
		mcp.NewTool("evaluate_candidates",
			mcp.WithDescription("Score and rank all candidates with completed interview sessions for a job posting."),
			mcp.WithString("job_id", mcp.Description("Job posting identifier"), mcp.Required()),
		),
		mcpEvaluateCandidates(deps),
	)

	s.AddTool(
		mcp.NewTool("get_session_responses",
			mcp.WithDescription("List the recorded responses of an interview session, including raw and final scores."),
			mcp.WithString("session_id", mcp.Description("Interview session identifier"), mcp.Required()),
		),
		mcpGetSessionResponses(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"hireloop://jobs",
			"Job Postings",
			mcp.WithResourceDescription("All job postings as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceJobs(deps),
	)

	return s
}

func mcpListJobPostings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobs, err := deps.Store.ListJobPostings()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list job postings: %v", err)), nil
		}

		type jobSummary struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			CreatedAt string `json:"created_at"`
		}
		summaries := make([]jobSummary, len(jobs))
		for i, j := range jobs {
			summaries[i] = jobSummary{
				ID:        j.ID,
				Title:     j.Title,
				CreatedAt: j.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal job postings: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpEvaluateCandidates(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := req.RequireString("job_id")
		if err != nil {
			return mcpError("job_id is required"), nil
		}

		results, err := deps.Evaluator.EvaluateCandidates(ctx, jobID)
		if err != nil {
			return mcpError(fmt.Sprintf("evaluation failed: %v", err)), nil
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal evaluations: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetSessionResponses(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		responses, err := deps.Store.GetResponsesForSession(sessionID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list responses: %v", err)), nil
		}
		if len(responses) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(responses)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal responses: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceJobs(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jobs, err := deps.Store.ListJobPostings()
		if err != nil {
			return nil, fmt.Errorf("failed to list job postings: %w", err)
		}

		b, err := json.Marshal(jobs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal job postings: %w", err)
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
