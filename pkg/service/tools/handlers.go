package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oncp/resolution-mcp/pkg/resolution"
)

const (
	queuedMessage = "Resolution job queued successfully."
	noAnalysis    = "No analysis was provided for this job."
)

func createStartResolutionHandler(config ToolConfig, deps ToolDependencies) toolFunc {
	return func(ctx context.Context, args map[string]string) (map[string]interface{}, *ChainHint, error) {
		handle, err := deps.Client.LaunchResolution(ctx, resolution.ResolutionRequest{
			Hostname:         args["hostname"],
			ErrorCode:        args["error_code"],
			IssueDescription: args["issue_description"],
		})
		if err != nil {
			return nil, nil, err
		}

		notifyClient(ctx, *zerolog.Ctx(ctx), fmt.Sprintf("Resolution job %s queued.", handle.JobID))

		data := map[string]interface{}{
			"job_id":  handle.JobID,
			"status":  statusOrUnknown(handle.Status),
			"message": queuedMessage,
		}
		return data, createChainHint(config.NextTool, fmt.Sprintf(config.ChainReason, handle.JobID)), nil
	}
}

func createCheckStatusHandler(config ToolConfig, deps ToolDependencies) toolFunc {
	return func(ctx context.Context, args map[string]string) (map[string]interface{}, *ChainHint, error) {
		status, err := deps.Client.GetJobStatus(ctx, args["job_id"])
		if err != nil {
			return nil, nil, err
		}

		jobID := firstNonEmpty(status.JobID, args["job_id"])
		state := statusOrUnknown(status.Status)

		var hint *ChainHint
		if isTerminal(state) {
			hint = createChainHint(config.NextTool, fmt.Sprintf(config.ChainReason, jobID))
		} else {
			hint = createChainHint(config.Name,
				fmt.Sprintf("Job %s is %s. Check again later", jobID, state))
		}

		data := map[string]interface{}{
			"job_id": jobID,
			"status": state,
		}
		return data, hint, nil
	}
}

func createReasoningHandler(config ToolConfig, deps ToolDependencies) toolFunc {
	return func(ctx context.Context, args map[string]string) (map[string]interface{}, *ChainHint, error) {
		analysis, err := deps.Client.GetJobAnalysis(ctx, args["job_id"])
		if err != nil {
			return nil, nil, err
		}

		thoughts := analysis.Thoughts
		if strings.TrimSpace(thoughts) == "" {
			thoughts = noAnalysis
		}

		data := map[string]interface{}{
			"job_id":   firstNonEmpty(analysis.JobID, args["job_id"]),
			"thoughts": thoughts,
		}
		return data, nil, nil
	}
}

func statusOrUnknown(status string) string {
	if status == "" {
		return resolution.StatusUnknown
	}
	return status
}

func isTerminal(status string) bool {
	return status == resolution.StatusCompleted || status == resolution.StatusFailed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
