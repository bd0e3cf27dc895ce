package errors

// Code represents an error code
type Code string

const (
	CodeUnknown              Code = "UNKNOWN"               // Unknown error occurred
	CodeInternalError        Code = "INTERNAL_ERROR"        // Internal system error
	CodeValidationFailed     Code = "VALIDATION_FAILED"     // Input validation failed
	CodeMissingParameter     Code = "MISSING_PARAMETER"     // Required parameter missing
	CodeInvalidParameter     Code = "INVALID_PARAMETER"     // Parameter has the wrong type or shape
	CodeConfigurationInvalid Code = "CONFIGURATION_INVALID" // Configuration invalid
	CodeNetworkError         Code = "NETWORK_ERROR"         // Downstream could not be reached
	CodeTimeoutError         Code = "TIMEOUT_ERROR"         // Downstream call timed out
	CodeDownstreamError      Code = "DOWNSTREAM_ERROR"      // Downstream answered with an error
	CodeToolNotFound         Code = "TOOL_NOT_FOUND"        // Tool not found
	CodeToolExecutionFailed  Code = "TOOL_EXECUTION_FAILED" // Tool execution failed
)
