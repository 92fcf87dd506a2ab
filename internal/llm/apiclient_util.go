package llm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response is kept in a ProviderError.
const maxErrorBody = 2048

// serverSentEventScanner reads "data:" payloads from a Server-Sent Events stream.
type serverSentEventScanner struct {
	scanner *bufio.Scanner
	data    string
}

func newServerSentEventScanner(r io.Reader) *serverSentEventScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &serverSentEventScanner{scanner: sc}
}

// Scan advances to the next data payload, skipping comments, blank lines and
// other SSE fields.
func (s *serverSentEventScanner) Scan() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		s.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		return true
	}
	return false
}

// Data returns the payload of the last scanned event.
func (s *serverSentEventScanner) Data() string {
	return s.data
}

// providerErrorFrom builds a ProviderError from a non-2xx response.
func providerErrorFrom(provider string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ProviderError{Provider: provider, Code: resp.StatusCode, Message: msg}
}

// transportError wraps a network failure so failover treats it as retryable.
func transportError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &ProviderError{Provider: provider, Message: fmt.Sprintf("connection error: %v", err)}
}
