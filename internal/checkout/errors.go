package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrCheckoutInProgress = errors.New("checkout already in progress")

type ValidationError struct {
	Fields ValidationErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid checkout form: " + strings.Join(names, ", ")
}

// GatewayError is a failed payment attempt. It is never retried.
type GatewayError struct {
	Reason string
	Err    error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
