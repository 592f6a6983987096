package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/arthur-debert/reposetup/cmd/reposetup"
)

func main() {
	rootCmd := reposetup.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// Pipeline failures are already rendered by the notifier.
		if !errors.Is(err, reposetup.ErrSetupFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
