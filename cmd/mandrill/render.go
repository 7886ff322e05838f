package main

import (
	"github.com/hyperengineering/mandrill"
	"github.com/spf13/cobra"
)

var renderVars []string

var renderCmd = &cobra.Command{
	Use:   "render <template>",
	Short: "Render a template with merge variables",
	Long: `Render a template through the API and print the resulting HTML.

Each --var takes name:content. The content may contain further colons.
Tokens without a colon or with an empty name are ignored.`,
	Example: `  mandrill render welcome-email
  mandrill render welcome-email --var first_name:Ada -r url:https://example.com/a`,
	Args: targetArg,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringArrayVarP(&renderVars, "var", "r", nil, "Merge variable as name:content (repeatable)")
}

func runRender(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	vars := mandrill.ParseVariables(renderVars)
	if dropped := len(renderVars) - len(vars); dropped > 0 {
		s.logger.Debug().Int("dropped", dropped).Msg("ignored malformed --var tokens")
	}

	c, err := buildCommand(cmd, mandrill.OpRender, args[0], vars)
	if err != nil {
		return err
	}

	rendered, err := s.client.Render(commandContext(cmd), c)
	if err != nil {
		return err
	}

	if outputJSON {
		return outputAsJSON(cmd, rendered)
	}
	outputText(cmd, "%s\n", rendered.HTML)
	return nil
}
