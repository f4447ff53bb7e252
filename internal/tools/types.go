package tools

// Status classifies a tool outcome for the model.
type Status string

const (
	// StatusSuccess indicates the tool produced a usable result.
	StatusSuccess Status = "success"
	// StatusError indicates the tool failed; Error carries the cause.
	StatusError Status = "error"
)

// ErrorCode categorizes tool failures so the model can decide whether
// to retry, rephrase, or give up.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed or missing input.
	ErrCodeValidation ErrorCode = "ValidationError"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NotFound"
	// ErrCodeNetwork indicates an upstream API could not be reached.
	ErrCodeNetwork ErrorCode = "NetworkError"
	// ErrCodeExecution indicates the tool failed while processing.
	ErrCodeExecution ErrorCode = "ExecutionError"
)

// Result is the uniform payload every tool hands back to the model.
// Failures travel in-band (Status + Error) with a nil Go error, so the
// model can read the cause and correct its next call.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error is the structured failure detail inside a Result.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// errorResult builds an error Result.
func errorResult(code ErrorCode, message string) Result {
	return Result{
		Status: StatusError,
		Error:  &Error{Code: code, Message: message},
	}
}
