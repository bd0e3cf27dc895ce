package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	derrors "github.com/oncp/resolution-mcp/pkg/domain/errors"
)

const domain = "tools"

// ExtractStringParam returns a required string argument with surrounding
// whitespace removed. Missing, non-string and blank values are rejected.
func ExtractStringParam(args map[string]interface{}, key string) (string, error) {
	value, exists := args[key]
	if !exists {
		return "", derrors.New(derrors.CodeMissingParameter, domain, "missing parameter: "+key, nil)
	}

	str, ok := value.(string)
	if !ok {
		return "", derrors.New(derrors.CodeInvalidParameter, domain, "parameter "+key+" must be a string", nil)
	}

	str = strings.TrimSpace(str)
	if str == "" {
		return "", derrors.Validation(domain, key, "must be a non-empty string")
	}

	return str, nil
}

// ExtractStringParams extracts every key in order and stops at the first failure.
func ExtractStringParams(args map[string]interface{}, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := ExtractStringParam(args, key)
		if err != nil {
			return nil, err
		}
		values[key] = v
	}
	return values, nil
}

// MarshalJSON marshals data to a JSON string, returning "{}" on failure.
func MarshalJSON(data interface{}) string {
	bytes, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(bytes)
}

// GenerateCallID returns an id that ties together the log lines of one tool call.
func GenerateCallID() string {
	return uuid.NewString()
}

// notifyClient sends an MCP log message to the session that issued the call.
// It is a no-op outside a server request context.
func notifyClient(ctx context.Context, logger zerolog.Logger, message string) {
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return
	}

	payload := map[string]interface{}{
		"level":  "info",
		"logger": "resolution",
		"data":   message,
	}
	if err := srv.SendNotificationToClient(ctx, "notifications/message", payload); err != nil {
		logger.Debug().Err(err).Msg("Failed to send log notification to client")
	}
}
