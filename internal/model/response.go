package model

// MessageResponse is the body of every non-list success and client error
// response.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is returned for infrastructure failures. Error carries the
// underlying message for debugging; stack traces are never included.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// AuthStatus is the body of GET /api/check-auth.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}
