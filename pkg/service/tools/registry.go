package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/oncp/resolution-mcp/pkg/infra/telemetry"
	"github.com/oncp/resolution-mcp/pkg/resolution"
)

// Tool names exposed to MCP clients.
const (
	ToolStartResolution        = "start_resolution"
	ToolCheckResolutionStatus  = "check_resolution_status"
	ToolGetResolutionReasoning = "get_resolution_reasoning"
)

// ToolCategory defines the type of tool
type ToolCategory string

const (
	CategoryJobControl ToolCategory = "job_control"
	CategoryInspection ToolCategory = "inspection"
)

// ToolConfig defines the configuration for a tool
type ToolConfig struct {
	Name        string
	Description string
	Category    ToolCategory

	RequiredParams []string

	// ReadOnly marks tools that only query job state.
	ReadOnly bool

	// Chain hint configuration
	NextTool    string
	ChainReason string // Can include %s placeholders for the job id

	Handler func(config ToolConfig, deps ToolDependencies) toolFunc
}

// ResolutionClient is the subset of the downstream client the tools call.
type ResolutionClient interface {
	LaunchResolution(ctx context.Context, req resolution.ResolutionRequest) (*resolution.JobHandle, error)
	GetJobStatus(ctx context.Context, jobID string) (*resolution.JobStatus, error)
	GetJobAnalysis(ctx context.Context, jobID string) (*resolution.JobAnalysis, error)
}

// ToolDependencies holds everything a tool handler needs
type ToolDependencies struct {
	Client  ResolutionClient
	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
	Tracing *telemetry.TracingManager
}

// ToolResult represents a tool execution result
type ToolResult struct {
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	ChainHint *ChainHint             `json:"chain_hint,omitempty"`
}

// ChainHint provides information about the next suggested tool
type ChainHint struct {
	NextTool string `json:"next_tool"`
	Reason   string `json:"reason"`
}

func createToolResult(data map[string]interface{}, chainHint *ChainHint) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: MarshalJSON(ToolResult{Success: true, Data: data, ChainHint: chainHint}),
			},
		},
	}
}

// createErrorResult reports a failed call as a tool result, never as a protocol error.
func createErrorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: MarshalJSON(ToolResult{Success: false, Error: err.Error()}),
			},
		},
		IsError: true,
	}
}

func createChainHint(nextTool, reason string) *ChainHint {
	if nextTool == "" {
		return nil
	}
	return &ChainHint{
		NextTool: nextTool,
		Reason:   reason,
	}
}

var toolConfigs = []ToolConfig{
	{
		Name: ToolStartResolution,
		Description: "Start an automated resolution job for an application issue. " +
			"Returns the job id used by the other resolution tools.",
		Category:       CategoryJobControl,
		RequiredParams: []string{"hostname", "error_code", "issue_description"},
		NextTool:       ToolCheckResolutionStatus,
		ChainReason:    "Resolution job %s queued. Poll its status until it completes",
		Handler:        createStartResolutionHandler,
	},
	{
		Name:           ToolCheckResolutionStatus,
		Description:    "Check the current status of a resolution job (QUEUED, RUNNING, COMPLETED or FAILED).",
		Category:       CategoryInspection,
		RequiredParams: []string{"job_id"},
		ReadOnly:       true,
		NextTool:       ToolGetResolutionReasoning,
		ChainReason:    "Job %s has finished. Fetch the agent's reasoning",
		Handler:        createCheckStatusHandler,
	},
	{
		Name:           ToolGetResolutionReasoning,
		Description:    "Get the agent's analysis and reasoning for a resolution job as Markdown.",
		Category:       CategoryInspection,
		RequiredParams: []string{"job_id"},
		ReadOnly:       true,
		Handler:        createReasoningHandler,
	},
}

// GetToolConfigs returns all tool configurations
func GetToolConfigs() []ToolConfig {
	return toolConfigs
}

// GetToolConfig returns a specific tool configuration by name
func GetToolConfig(name string) (*ToolConfig, error) {
	for _, config := range toolConfigs {
		if config.Name == name {
			return &config, nil
		}
	}
	return nil, errors.Errorf("tool %s not found", name)
}

// BuildToolSchema creates the MCP input schema for a tool
func BuildToolSchema(config ToolConfig) mcp.ToolInputSchema {
	properties := make(map[string]interface{}, len(config.RequiredParams))
	for _, param := range config.RequiredParams {
		properties[param] = map[string]interface{}{
			"type":        "string",
			"minLength":   1,
			"description": getParamDescription(param),
		}
	}

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   config.RequiredParams,
	}
}

// BuildTool creates the full MCP tool definition, including behaviour hints.
func BuildTool(config ToolConfig) mcp.Tool {
	readOnly := config.ReadOnly
	destructive := false
	idempotent := config.ReadOnly
	openWorld := true

	return mcp.Tool{
		Name:        config.Name,
		Description: config.Description,
		InputSchema: BuildToolSchema(config),
		Annotations: mcp.ToolAnnotation{
			ReadOnlyHint:    &readOnly,
			DestructiveHint: &destructive,
			IdempotentHint:  &idempotent,
			OpenWorldHint:   &openWorld,
		},
	}
}

func getParamDescription(param string) string {
	descriptions := map[string]string{
		"hostname":          "Hostname of the machine where the issue occurred",
		"error_code":        "Application error code or identifier",
		"issue_description": "Detailed description of the issue and observed symptoms",
		"job_id":            "Job ID returned by start_resolution",
	}

	if desc, exists := descriptions[param]; exists {
		return desc
	}
	return fmt.Sprintf("The %s parameter", param)
}
