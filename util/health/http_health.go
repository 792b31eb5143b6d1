package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/peercoin/warnd/errors"
)

const httpCheckTimeout = 2 * time.Second

// CheckHTTPServer returns a check that GETs healthPath on the server at
// address and passes on any 2xx response.
func CheckHTTPServer(address string, healthPath string) func(context.Context, bool) (int, string, error) {
	return func(ctx context.Context, _ bool) (int, string, error) {
		client := &http.Client{
			Timeout: httpCheckTimeout,
		}

		url := strings.TrimSuffix(address, "/") + "/" + strings.TrimPrefix(healthPath, "/")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return http.StatusServiceUnavailable, fmt.Sprintf("HTTP server at %s failed to create request", address),
				errors.NewInvalidArgumentError("invalid health url %s", url, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return http.StatusServiceUnavailable, fmt.Sprintf("HTTP server at %s not accepting connections", address),
				errors.NewNetworkError("health request to %s failed", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return http.StatusOK, fmt.Sprintf("HTTP server at %s is listening and accepting requests", address), nil
		}

		return http.StatusServiceUnavailable, fmt.Sprintf("HTTP server at %s returned status %d", address, resp.StatusCode), nil
	}
}
