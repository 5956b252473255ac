// Command vecstore runs, validates and inspects store scripts.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/vecstore/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()

	// Commands report their own ExitErrors; usage and flag errors are not.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
