package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/flowc/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exit *cli.ExitError
		if !errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
