package dto

// Envelope wraps every JSON response. Failures carry success=false, a
// human-readable error and a machine-readable code.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// OK wraps a successful payload.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Failure builds the error envelope.
func Failure(code, message string, details map[string]any) Envelope {
	return Envelope{Success: false, Error: message, Code: code, Details: details}
}
