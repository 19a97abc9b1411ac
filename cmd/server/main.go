// Command server runs the HTTP bot; it is "padi-bot serve" as its own binary.
package main

import (
	"fmt"
	"os"

	"github.com/RichardoC/padi-bot/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	cmd.SetArgs(append([]string{"serve"}, os.Args[1:]...))
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
