package main

import (
	"fmt"
	"os"

	"github.com/ordishs/gocore"
	"github.com/urfave/cli/v2"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "warnd"

// Version & commit strings injected at build with -ldflags -X...
var version string
var commit string

func init() {
	gocore.SetInfo(progname, version, commit)
}

func main() {
	app := &cli.App{
		Name:    progname,
		Usage:   "Keeps the node's warning conditions and serves them to the UI and RPC layers",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Commands: []*cli.Command{
			serveCommand(),
			getCommand(),
			setCommand(),
			healthCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progname, err)
		os.Exit(1)
	}
}
