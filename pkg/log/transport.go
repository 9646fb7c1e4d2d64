package log

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cmsdeploy/uploader/pkg/requestid"
	"go.uber.org/zap"
)

type loggingTransport struct {
	next http.RoundTripper
	name string
}

// NewTransport logs every outgoing request sent through next with the global
// zap logger. Failed requests are logged as errors, client errors as warnings
// and everything else at debug level.
func NewTransport(next http.RoundTripper, name string) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next, name: name}
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	logger := zap.L().WithOptions(zap.AddCallerSkip(1)).Named(t.name)
	t1 := time.Now()

	resp, err := t.next.RoundTrip(r)

	fields := []zap.Field{
		zap.String("type", "http_request"),
		zap.String("request_id", r.Header.Get(requestid.Header)),
		zap.String("http_method", r.Method),
		zap.String("http_path", r.URL.Path),
		zap.Int64("request_bytes", r.ContentLength),
		zap.Duration("latency", time.Since(t1)),
	}
	msg := fmt.Sprintf("HTTP request completed: %s", r.URL.Path)

	if err != nil {
		logger.Error(msg, append(fields, zap.Error(err))...)
		return nil, err
	}

	fields = append(fields,
		zap.Int("http_status_code", resp.StatusCode),
		zap.String("http_status_text", statusLabel(resp.StatusCode)),
	)
	switch {
	case resp.StatusCode >= 500:
		logger.Error(msg, fields...)
	case resp.StatusCode >= 400:
		logger.Warn(msg, fields...)
	default:
		logger.Debug(msg, fields...)
	}
	return resp, nil
}

func statusLabel(status int) string {
	switch {
	case status >= 100 && status < 300:
		return fmt.Sprintf("%d OK", status)
	case status >= 300 && status < 400:
		return fmt.Sprintf("%d Redirect", status)
	case status >= 400 && status < 500:
		return fmt.Sprintf("%d Client Error", status)
	case status >= 500:
		return fmt.Sprintf("%d Server Error", status)
	default:
		return fmt.Sprintf("%d Unknown", status)
	}
}
