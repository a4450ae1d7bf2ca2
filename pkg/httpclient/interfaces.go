package httpclient

import "context"

// Params is the request parameter mapping built by API wrappers.
type Params map[string]any

// Client abstracts API calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, path string, query Params) (Result, error)
	PostJSON(ctx context.Context, path string, body Params) (Result, error)
}

// TokenSource supplies the access token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
