package models

// Result is what a gated cart operation settles to. RequiresLogin is a normal
// outcome, not an error: the caller shows a login prompt with Message.
type Result struct {
	RequiresLogin bool   `json:"requires_login"`
	Message       string `json:"message,omitempty"`
}

// LoginRequired builds the sentinel result for an unauthenticated session.
func LoginRequired(message string) Result {
	return Result{RequiresLogin: true, Message: message}
}
