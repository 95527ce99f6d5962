// Command infergate runs the inference gateway.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "infergate",
		Short:   "Authenticated, caching gateway in front of model-serving providers",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newTokenCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
