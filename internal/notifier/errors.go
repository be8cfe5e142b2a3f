package notifier

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid notifier configuration. It is returned at
// construction time, before any network activity, and is never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "notifier configuration: " + e.Reason
}

// TransportError reports a network-level failure while posting a message:
// connection refused, timeout, DNS failure, malformed response and the like.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("posting to %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError reports a non-2xx HTTP response from the destination service.
// Details carries human-readable messages extracted from the response body
// when the service provided them; it is empty otherwise.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
	Details    []string
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s returned %s: %s", e.URL, e.Status, strings.Join(e.Details, ", "))
	}
	return fmt.Sprintf("%s returned %s", e.URL, e.Status)
}
