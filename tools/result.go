package tools

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of a tool invocation. On success Data holds the
// payload; on error Message explains the failure.
type Result struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`

	// Err is the handler failure behind an error result, if any. It is never
	// shown to the model.
	Err error `json:"-"`
}

// Success builds a success result.
func Success(data any) Result {
	return Result{Status: StatusSuccess, Data: data}
}

// Error builds an error result.
func Error(message string) Result {
	return Result{Status: StatusError, Message: message}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Map renders the result as the structured content returned to the model.
func (r Result) Map() map[string]any {
	m := map[string]any{"status": r.Status}
	if r.Status == StatusSuccess {
		m["data"] = r.Data
	} else {
		m["message"] = r.Message
	}
	return m
}
