// Package health aggregates dependency checks into the JSON document served on
// the /health endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// Check is a named health check. The func returns an HTTP status, a message
// and an optional error. A message that is itself a health document is nested
// under dependencies.
type Check struct {
	Name  string
	Check func(context.Context, bool) (int, string, error)
}

type result struct {
	Resource     string            `json:"resource"`
	Status       string            `json:"status"`
	Error        string            `json:"error"`
	Message      string            `json:"message,omitempty"`
	Dependencies []json.RawMessage `json:"dependencies,omitempty"`
}

type document struct {
	Status       string   `json:"status"`
	Dependencies []result `json:"dependencies"`
}

// CheckAll runs every check in order. The overall status is 200 only when all
// checks return 200 without an error, 503 otherwise.
func CheckAll(ctx context.Context, checkLiveness bool, checks []Check) (int, string, error) {
	overallStatus := http.StatusOK
	results := make([]result, 0, len(checks))

	for _, check := range checks {
		status, message, err := check.Check(ctx, checkLiveness)
		if err != nil || status != http.StatusOK {
			overallStatus = http.StatusServiceUnavailable
		}

		r := result{
			Resource: check.Name,
			Status:   strconv.Itoa(status),
			Error:    "<nil>",
		}

		if err != nil {
			r.Error = err.Error()
		}

		if isDocument(message) {
			r.Dependencies = []json.RawMessage{json.RawMessage(message)}
		} else {
			r.Message = message
		}

		results = append(results, r)
	}

	b, err := json.Marshal(document{
		Status:       strconv.Itoa(overallStatus),
		Dependencies: results,
	})
	if err != nil {
		return http.StatusInternalServerError, "", err
	}

	return overallStatus, string(b), nil
}

func isDocument(message string) bool {
	return len(message) > 1 && message[0] == '{' && message[len(message)-1] == '}' && json.Valid([]byte(message))
}
