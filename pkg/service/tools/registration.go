package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/oncp/resolution-mcp/pkg/infra/telemetry"
	"github.com/oncp/resolution-mcp/pkg/resolution"
)

// toolFunc runs a call whose required arguments are already validated and trimmed.
type toolFunc func(ctx context.Context, args map[string]string) (map[string]interface{}, *ChainHint, error)

// RegisterTools registers all tools based on their configurations
func RegisterTools(mcpServer *server.MCPServer, deps ToolDependencies) error {
	for _, config := range toolConfigs {
		if err := RegisterTool(mcpServer, config, deps); err != nil {
			return errors.Wrapf(err, "failed to register tool %s", config.Name)
		}
	}
	return nil
}

// RegisterTool registers a single tool based on its configuration
func RegisterTool(mcpServer *server.MCPServer, config ToolConfig, deps ToolDependencies) error {
	if err := validateDependencies(config, deps); err != nil {
		return errors.Wrapf(err, "invalid dependencies for tool %s", config.Name)
	}

	mcpServer.AddTool(BuildTool(config), NewToolHandler(config, deps))

	deps.Logger.Debug().
		Str("name", config.Name).
		Str("category", string(config.Category)).
		Msg("Registered tool")
	return nil
}

func validateDependencies(config ToolConfig, deps ToolDependencies) error {
	if config.Handler == nil {
		return errors.New("tool has no handler")
	}
	if deps.Client == nil {
		return errors.New("resolution client is required but not provided")
	}
	return nil
}

// NewToolHandler builds the MCP handler for config. Every failure, including
// argument validation, is returned as an error result rather than a protocol error.
func NewToolHandler(config ToolConfig, deps ToolDependencies) server.ToolHandlerFunc {
	run := config.Handler(config, deps)

	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		logger := deps.Logger.With().
			Str("tool", config.Name).
			Str("call_id", GenerateCallID()).
			Logger()

		args, err := ExtractStringParams(req.GetArguments(), config.RequiredParams...)
		if err != nil {
			logger.Warn().Err(err).Str("event", "validation_error").Msg("resolution_tool_event")
			deps.Metrics.ObserveToolCall(config.Name, telemetry.OutcomeValidationError, time.Since(start))
			return createErrorResult(err), nil
		}

		var (
			data map[string]interface{}
			hint *ChainHint
		)
		err = deps.Tracing.InstrumentToolExecution(logger.WithContext(ctx), config.Name, func(ctx context.Context) error {
			var runErr error
			data, hint, runErr = run(ctx, args)
			return runErr
		})

		outcome := resolution.Outcome(err)
		deps.Metrics.ObserveToolCall(config.Name, outcome, time.Since(start))

		if err != nil {
			event := logger.Error()
			if outcome == telemetry.OutcomeValidationError {
				event = logger.Warn()
			}
			event.Err(err).
				Str("event", "api_error").
				Str("outcome", outcome).
				Str("job_id", args["job_id"]).
				Msg("resolution_tool_event")
			return createErrorResult(err), nil
		}

		logEvent := logger.Info().Str("event", "success").Dur("duration", time.Since(start))
		if jobID, ok := data["job_id"].(string); ok {
			logEvent = logEvent.Str("job_id", jobID)
		}
		if status, ok := data["status"].(string); ok {
			logEvent = logEvent.Str("status", status)
		}
		logEvent.Msg("resolution_tool_event")

		return createToolResult(data, hint), nil
	}
}
