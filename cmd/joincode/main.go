// Command joincode runs the Minecraft Education join-code Discord bot and
// its operator tools.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/joincode/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
