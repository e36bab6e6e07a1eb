// Command ambit runs multirun atomic-structure sweeps.
package main

import (
	"fmt"
	"os"

	"github.com/wanjj/AMBiT/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
