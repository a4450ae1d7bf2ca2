package httpclient

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Result is a decoded API response body. Numbers are kept as json.Number.
type Result map[string]any

// ErrCode returns the errcode field, or 0 when it is absent.
func (r Result) ErrCode() int {
	switch v := r["errcode"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return -1
		}
		return int(n)
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return -1
		}
		return n
	default:
		return 0
	}
}

// ErrMsg returns the errmsg field.
func (r Result) ErrMsg() string {
	s, _ := r["errmsg"].(string)
	return s
}

// Err reports a non-zero errcode as an *APIError.
func (r Result) Err() error {
	if code := r.ErrCode(); code != 0 {
		return &APIError{Code: code, Msg: r.ErrMsg()}
	}
	return nil
}

// Strings returns the string elements of a list field, skipping anything else.
func (r Result) Strings(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

// NewStatusError keeps at most 512 bytes of the response body.
func NewStatusError(statusCode int, body []byte) *StatusError {
	return &StatusError{StatusCode: statusCode, Body: readBodySnippet(body)}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http response status %d: %s", e.StatusCode, e.Body)
}

// APIError is a remote business error carried in a successful HTTP response.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Msg)
}
