// internal/adapters/helpers.go
package adapters

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

func isTimeout(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline") ||
		strings.Contains(msg, "Client.Timeout")
}

// retryAfterOf parses the Retry-After header as seconds, zero when absent.
func retryAfterOf(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
