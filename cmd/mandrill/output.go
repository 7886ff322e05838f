package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperengineering/mandrill"
	"github.com/spf13/cobra"
)

// outputAsJSON writes any value as formatted JSON to the command's stdout.
func outputAsJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputText prints text to the command's stdout.
func outputText(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// outputError prints an error and its cause to w, ensuring no API keys are leaked.
func outputError(w io.Writer, err error) {
	printError(w, "%s", scrubSensitiveData(mandrill.Describe(err)))
}

// scrubSensitiveData removes the API key from messages. Response bodies are
// printed verbatim and may echo the request.
func scrubSensitiveData(msg string) string {
	for _, key := range []string{cfgAPIKey, resolvedKey} {
		if key != "" && strings.Contains(msg, key) {
			msg = strings.ReplaceAll(msg, key, "[REDACTED]")
		}
	}
	return msg
}
