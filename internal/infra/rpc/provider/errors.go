package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ErrThrottled is returned without contacting the endpoint while the
// provider is backing off after rate limiting.
var ErrThrottled = errors.New("provider throttled")

// Error is a JSON-RPC error object. Bundlers put the EntryPoint revert
// reason (e.g. "AA21 didn't pay prefund") in Message.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return fmt.Sprintf("rpc error %d: %s (data: %s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ErrorCode implements the go-ethereum rpc.Error interface.
func (e *Error) ErrorCode() int { return e.Code }

// ErrorData implements the go-ethereum rpc.DataError interface.
func (e *Error) ErrorData() any { return e.Data }

// HTTPError is a non-200 response that did not carry a JSON-RPC body.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter string
}

func (e *HTTPError) Error() string {
	switch e.StatusCode {
	case 429:
		return fmt.Sprintf("rate limited (429), retry after: %s", e.RetryAfter)
	case 403:
		return "ip blocked (403)"
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}
