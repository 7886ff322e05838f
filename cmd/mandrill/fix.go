package main

import (
	"github.com/hyperengineering/mandrill"
	"github.com/spf13/cobra"
)

var fixDryRun bool

var fixCmd = &cobra.Command{
	Use:   "fix <template>",
	Short: "Strip merge-tag boilerplate and publish the template",
	Long: `Remove vendor boilerplate from a template and publish the result.

Two patterns are handled:
  *|MC_...|*          merge tags such as *|MC_PREVIEW_TEXT|* are deleted
  http://{{link}}     the http:// prefix is dropped, leaving {{link}}

Templates without either pattern are not updated and nothing is printed.
With --dry-run the cleaned template is reported but not sent.`,
	Example: `  mandrill fix welcome-email
  mandrill fix welcome-email --dry-run --json
  mandrill fix welcome-email --sanitize-policy merge-tag`,
	Args: targetArg,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Report what would change without updating")
}

// fixOutput is the JSON shape of a fix result.
type fixOutput struct {
	State string `json:"state"`
	*mandrill.FixResult
}

func runFix(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := buildCommand(cmd, mandrill.OpFix, args[0], nil)
	if err != nil {
		return err
	}

	fix := s.client.Fix
	if fixDryRun {
		fix = s.client.FixDryRun
	}
	result, err := fix(commandContext(cmd), c)
	if err != nil {
		return err
	}

	if outputJSON {
		return outputAsJSON(cmd, fixOutput{State: result.State.String(), FixResult: result})
	}

	switch result.State {
	case mandrill.FixDone:
		outputText(cmd, "updated %s\n", result.Target)
	case mandrill.FixPending:
		outputText(cmd, "would update %s\n", result.Target)
		if result.Detection.MergeTag {
			printInfo(cmd.ErrOrStderr(), "merge tags found")
		}
		if result.Detection.TrackedLink {
			printInfo(cmd.ErrOrStderr(), "http://{{link}} found")
		}
	}
	return nil
}
