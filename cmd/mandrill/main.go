package main

import (
	"os"

	"github.com/hyperengineering/mandrill"
)

func main() {
	// Initialize styled help after all commands are registered
	initHelp(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		outputError(os.Stderr, err)
		os.Exit(mandrill.ExitCode(err))
	}
}
