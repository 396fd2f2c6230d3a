package types

// ErrorResponse is the JSON error envelope returned by the gateway itself.
// Responses relayed from the upstream are passed through untouched.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error and selects the HTTP status.
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeNotFound indicates a resource was not found (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates the upstream could not be reached or
	// its response could not be read (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeServiceUnavailable indicates the status store is unavailable (503).
	ErrorTypeServiceUnavailable = "service_unavailable"
)

// Error code constants.
const (
	// CodeInvalidValue indicates a parameter has an invalid value.
	CodeInvalidValue = "invalid_value"

	// CodeRequestRead indicates the inbound request body could not be read.
	CodeRequestRead = "request_read_error"

	// CodeRequestTooLarge indicates the request body exceeds the limit.
	CodeRequestTooLarge = "request_too_large"

	// CodeUpstreamError indicates a failure talking to the upstream.
	CodeUpstreamError = "upstream_error"

	// CodeTaskNotFound indicates no status exists for the task id.
	CodeTaskNotFound = "task_not_found"

	// CodeStoreUnavailable indicates the status store could not be reached.
	CodeStoreUnavailable = "store_unavailable"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewNotFoundError creates an error response for missing resources (404).
func NewNotFoundError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, "", code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewBadGatewayError creates an error response for upstream failures (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeUpstreamError)
}

// NewServiceUnavailableError creates an error response for an unreachable
// status store (503).
func NewServiceUnavailableError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", CodeStoreUnavailable)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return 400
	case ErrorTypeNotFound:
		return 404
	case ErrorTypeServerError:
		return 500
	case ErrorTypeBadGateway:
		return 502
	case ErrorTypeServiceUnavailable:
		return 503
	default:
		return 500
	}
}
