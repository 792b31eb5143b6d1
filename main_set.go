package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/services/warnings"
	"github.com/urfave/cli/v2"
)

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set or clear the misc or mint warning of a running warnd",
		Flags: []cli.Flag{
			addressFlag(),
			&cli.StringFlag{
				Name:  "misc",
				Usage: "misc warning text, an empty value clears it",
			},
			&cli.StringFlag{
				Name:  "mint",
				Usage: "mint warning text, an empty value clears it",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.IsSet("misc") && !c.IsSet("mint") {
				return errors.NewInvalidArgumentError("one of --misc or --mint is required")
			}

			var (
				status *warnings.Status
				err    error
			)

			for _, kind := range []string{"misc", "mint"} {
				if !c.IsSet(kind) {
					continue
				}

				if status, err = putWarning(c.Context, c.String("address"), kind, c.String(kind)); err != nil {
					return err
				}
			}

			_, err = fmt.Fprintln(c.App.Writer, status.Concise)

			return err
		},
	}
}

// putWarning sets the misc or mint warning and returns the resulting status.
func putWarning(ctx context.Context, address, kind, message string) (*warnings.Status, error) {
	var status warnings.Status

	req := warnings.MessageRequest{Message: &message}
	if err := doJSON(ctx, http.MethodPut, address, "/api/v1/warnings/"+kind, req, &status); err != nil {
		return nil, err
	}

	return &status, nil
}
