package server

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Request is one command sent by a caller.
type Request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Response is the terminal answer to a Request. Status is "success",
// "error" or "notImplemented".
type Response struct {
	ID     json.RawMessage `json:"id"`
	Status string          `json:"status"`
	Result any             `json:"result"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody carries the code and message of an error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ErrorBody) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrNotImplemented is returned by Response.Err for unknown commands.
var ErrNotImplemented = errors.New("method not implemented")

// Err converts a non-success response into an error.
func (r *Response) Err() error {
	switch r.Status {
	case "success":
		return nil
	case "notImplemented":
		return ErrNotImplemented
	default:
		if r.Error != nil {
			return r.Error
		}
		return fmt.Errorf("unexpected response status %q", r.Status)
	}
}

// codeInvalidRequest answers envelopes that could not be decoded.
const codeInvalidRequest = "INVALID_REQUEST"
