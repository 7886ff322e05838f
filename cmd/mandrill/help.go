package main

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	helpHeaderStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	helpCmdStyle    = lipgloss.NewStyle().Foreground(colorPrimaryLight)
)

// envVar is one environment setting listed under "Environment:".
type envVar struct {
	name string
	desc string
}

var (
	envKey = []envVar{
		{"MANDRILL_API_KEY", "API key (direct policy, after --key)"},
		{"MANDRILL_API_KEY_FILE", "file holding the API key (file policy)"},
		{"MANDRILL_KEY_POLICY", "direct | file"},
	}
	envTransport = []envVar{
		{"MANDRILL_BASE_URL", "API root (default https://mandrillapp.com/api/1.0)"},
		{"MANDRILL_TIMEOUT", "per-request timeout, e.g. 10s"},
		{"MANDRILL_DEBUG", "log requests; 0/false/no/off disable"},
		{"MANDRILL_DEBUG_LOG", "append debug logs to this file"},
	}
	envSanitize = []envVar{
		{"MANDRILL_SANITIZE_POLICY", "any | merge-tag"},
	}
)

// commandEnv lists the settings each command reads. The root lists all.
func commandEnv(cmd *cobra.Command) []envVar {
	switch cmd.Name() {
	case "mandrill":
		return concatEnv(envKey, envSanitize, envTransport)
	case "fix":
		return concatEnv(envKey, envSanitize, envTransport)
	case "inspect", "render", "mcp":
		return concatEnv(envKey, envTransport)
	default:
		return nil
	}
}

func concatEnv(groups ...[]envVar) []envVar {
	var out []envVar
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// environment renders the "Environment:" block for cmd, or "" if it reads none.
func environment(cmd *cobra.Command) string {
	vars := commandEnv(cmd)
	if len(vars) == 0 {
		return ""
	}
	width := 0
	for _, v := range vars {
		width = max(width, len(v.name))
	}
	var sb strings.Builder
	sb.WriteString(styleIf(helpHeaderStyle, "Environment:") + "\n")
	for _, v := range vars {
		fmt.Fprintf(&sb, "  %s %s\n", styleIf(helpCmdStyle, fmt.Sprintf("%-*s", width, v.name)), v.desc)
	}
	return sb.String()
}

// exitCodes is shown on the root command only.
const exitCodes = `  0  success (fix: also when nothing needed changing)
  1  missing API key, unknown command or invalid setting
  2  request failed, unreadable reply, or update rejected`

func styleIf(style lipgloss.Style, s string) string {
	if isTTY() {
		return style.Render(s)
	}
	return s
}

var helpTemplateFuncs = template.FuncMap{
	"header":      func(s string) string { return styleIf(helpHeaderStyle, s) },
	"cmd":         func(s string) string { return styleIf(helpCmdStyle, s) },
	"muted":       func(s string) string { return styleIf(mutedStyle, s) },
	"environment": environment,
	"exitCodes":   func() string { return exitCodes },
}

// helpTemplate adds Examples, Environment and (on the root) Exit codes to
// cobra's layout. Template output stays plain when stdout is not a terminal.
const helpTemplate = `{{with .Long}}{{. | trimTrailingWhitespaces}}

{{end}}{{header "Usage:"}}
  {{cmd .UseLine}}{{if .HasAvailableSubCommands}} {{muted "<command>"}}{{end}}

{{if .HasExample}}{{header "Examples:"}}
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}{{header "Commands:"}}
{{range .Commands}}{{if .IsAvailableCommand}}  {{cmd (rpad .Name .NamePadding)}} {{.Short}}
{{end}}{{end}}
{{end}}{{if .HasAvailableLocalFlags}}{{header "Flags:"}}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}{{header "Global Flags:"}}
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{with environment .}}{{.}}
{{end}}{{if not .HasParent}}{{header "Exit codes:"}}
{{exitCodes}}

{{muted "Run"}} {{cmd "mandrill <command> --help"}} {{muted "for command details."}}
{{end}}`

// initHelp installs the help template on cmd and every subcommand.
func initHelp(cmd *cobra.Command) {
	for name, fn := range helpTemplateFuncs {
		cobra.AddTemplateFunc(name, fn)
	}
	var apply func(*cobra.Command)
	apply = func(c *cobra.Command) {
		c.SetHelpTemplate(helpTemplate)
		for _, sub := range c.Commands() {
			apply(sub)
		}
	}
	apply(cmd)
}
