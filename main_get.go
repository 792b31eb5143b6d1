package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/services/warnings"
	"github.com/peercoin/warnd/util/health"
	"github.com/urfave/cli/v2"
)

const (
	defaultAddress = "http://localhost:8099"
	clientTimeout  = 10 * time.Second
)

func addressFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "address",
		Usage:   "base URL of a running warnd",
		Value:   defaultAddress,
		EnvVars: []string{"WARND_ADDRESS"},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:  "get",
		Usage: "Print the current warnings of a running warnd",
		Flags: []cli.Flag{
			addressFlag(),
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print every active warning instead of the most important one",
			},
			&cli.BoolFlag{
				Name:  "status",
				Usage: "print the full status document as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			address := c.String("address")

			if c.Bool("status") {
				status, err := fetchStatus(c.Context, address)
				if err != nil {
					return err
				}

				b, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return errors.NewProcessingError("failed to encode status", err)
				}

				_, err = fmt.Fprintln(c.App.Writer, string(b))

				return err
			}

			text, err := fetchWarnings(c.Context, address, c.Bool("verbose"))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.App.Writer, text)

			return err
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that a running warnd is healthy",
		Flags: []cli.Flag{
			addressFlag(),
		},
		Action: func(c *cli.Context) error {
			status, msg, err := health.CheckHTTPServer(c.String("address"), "/health")(c.Context, false)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(c.App.Writer, msg)

			if status != http.StatusOK {
				return cli.Exit("", 1)
			}

			return nil
		},
	}
}

func fetchWarnings(ctx context.Context, address string, verbose bool) (string, error) {
	var resp warnings.WarningsResponse

	q := url.Values{"verbose": []string{strconv.FormatBool(verbose)}}
	if err := getJSON(ctx, address, "/api/v1/warnings?"+q.Encode(), &resp); err != nil {
		return "", err
	}

	return resp.Warnings, nil
}

func fetchStatus(ctx context.Context, address string) (*warnings.Status, error) {
	var status warnings.Status

	if err := getJSON(ctx, address, "/api/v1/warnings/status", &status); err != nil {
		return nil, err
	}

	return &status, nil
}

func getJSON(ctx context.Context, address, path string, out interface{}) error {
	return doJSON(ctx, http.MethodGet, address, path, nil, out)
}

// doJSON sends in, if not nil, as the JSON body and decodes the 200 response into out.
func doJSON(ctx context.Context, method, address, path string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, clientTimeout)
	defer cancel()

	target := strings.TrimSuffix(address, "/") + path

	var reqBody io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.NewProcessingError("failed to encode request", err)
		}

		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return errors.NewInvalidArgumentError("invalid address %s", address, err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.NewNetworkError("request to %s failed", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError("failed to read response from %s", target, err)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.NewServiceError("%s returned %d: %s", target, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err = json.Unmarshal(body, out); err != nil {
		return errors.NewProcessingError("invalid response from %s", target, err)
	}

	return nil
}
