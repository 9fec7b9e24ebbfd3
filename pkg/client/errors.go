package client

import (
	"fmt"
	"strings"

	"github.com/physickd/platform/pkg/ckd/feature"
)

// FormError lists every field that failed validation. No request was sent.
type FormError struct {
	Fields []feature.FieldError
}

func (e FormError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid form: " + strings.Join(msgs, "; ")
}

// NetworkError means the service could not be reached or did not answer in
// time. Timeout is set for deadline and network timeouts.
type NetworkError struct {
	Err     error
	Timeout bool
}

func (e NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("prediction service timed out: %v", e.Err)
	}
	return fmt.Sprintf("prediction service unreachable: %v", e.Err)
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response. Message is the server's error text.
type APIError struct {
	Status  int
	Field   string
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("prediction service returned %d: %s", e.Status, e.Message)
}
