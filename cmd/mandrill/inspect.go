package main

import (
	"github.com/hyperengineering/mandrill"
	"github.com/spf13/cobra"
)

var inspectText bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <template>",
	Short: "Print a template's stored code",
	Long: `Fetch a template and print its code exactly as stored.

Use --text to print the plain-text part instead, or --json for the full
template record.`,
	Example: `  mandrill inspect welcome-email
  mandrill inspect welcome-email --text
  MANDRILL_API_KEY=... mandrill inspect welcome-email --json`,
	Args: targetArg,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectText, "text", false, "Print the plain-text part instead of the code")
}

func runInspect(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := buildCommand(cmd, mandrill.OpInspect, args[0], nil)
	if err != nil {
		return err
	}

	info, err := s.client.Inspect(commandContext(cmd), c)
	if err != nil {
		return err
	}

	if outputJSON {
		return outputAsJSON(cmd, info)
	}

	if inspectText {
		if info.Text == nil {
			printWarning(cmd.ErrOrStderr(), "%s has no text part", c.Target)
			return nil
		}
		outputText(cmd, "%s\n", *info.Text)
		return nil
	}

	outputText(cmd, "%s\n", info.Code)
	return nil
}
