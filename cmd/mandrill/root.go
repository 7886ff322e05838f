package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperengineering/mandrill"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgAPIKey         string
	cfgFile           string
	cfgBaseURL        string
	cfgTimeout        time.Duration
	cfgKeyPolicy      string
	cfgSanitizePolicy string
	cfgDebug          bool
	cfgDebugLog       string
	outputJSON        bool

	// resolvedKey is scrubbed from any error printed to the terminal.
	resolvedKey string
)

var rootCmd = &cobra.Command{
	Use:   "mandrill",
	Short: "Inspect and correct Mandrill templates",
	Long: `mandrill inspects, renders and repairs templates stored in Mandrill.

The fix command removes merge tags such as *|MC_PREVIEW_TEXT|* and the
http:// prefix wrapped around {{link}} placeholders, then publishes the
cleaned template. Templates that are already clean are left untouched.

Credentials:
  --key-policy direct   --key flag, then MANDRILL_API_KEY (default)
  --key-policy file     contents of the file named by MANDRILL_API_KEY_FILE`,
	Args:              rootArgs,
	RunE:              runRoot,
	PersistentPreRunE: initConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgAPIKey, "key", "k", "", "The API key for your account (direct policy)")
	flags.StringVar(&cfgFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/mandrill/config.yaml)")
	flags.StringVar(&cfgBaseURL, "base-url", "", "Template API root (default: https://mandrillapp.com/api/1.0)")
	flags.DurationVar(&cfgTimeout, "timeout", 0, "Per-request timeout (default: 30s)")
	flags.StringVar(&cfgKeyPolicy, "key-policy", "", "Credential source: direct or file (default: direct)")
	flags.StringVar(&cfgSanitizePolicy, "sanitize-policy", "", "What makes fix publish: any or merge-tag (default: any)")
	flags.BoolVar(&cfgDebug, "debug", false, "Log API requests and responses to stderr")
	flags.StringVar(&cfgDebugLog, "debug-log", "", "Append debug logs to this file instead of stderr")
	flags.BoolVar(&outputJSON, "json", false, "Output in JSON format")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &mandrill.Error{Kind: mandrill.KindBadCommand, Operation: "command", Message: err.Error()}
	})

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(renderCmd)
}

// rootArgs rejects anything that is not a known subcommand.
func rootArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &mandrill.Error{
			Kind:      mandrill.KindBadCommand,
			Operation: "command",
			Message:   fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath()),
		}
	}
	return nil
}

// runRoot handles a bare invocation: no subcommand is a bad command.
func runRoot(cmd *cobra.Command, args []string) error {
	_ = cmd.Usage()
	_, err := mandrill.ParseOperation("")
	return err
}

// targetArg requires exactly one template name.
func targetArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return &mandrill.Error{
			Kind:      mandrill.KindBadCommand,
			Operation: "command",
			Message:   fmt.Sprintf("%s requires exactly one template name", cmd.Name()),
		}
	}
	return nil
}

// session is everything a subcommand needs for one invocation.
type session struct {
	client *mandrill.Client
	logger zerolog.Logger
	closer io.Closer
}

func (s *session) Close() {
	_ = s.closer.Close()
}

// newSession loads configuration and builds the client and debug logger.
func newSession() (*session, error) {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := mandrill.NewDebugLogger(cfg.Debug, cfg.DebugLogPath)
	if err != nil {
		return nil, err
	}

	client, err := mandrill.New(cfg, mandrill.WithLogger(logger))
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("initialize client: %w", err)
	}
	return &session{client: client, logger: logger, closer: closer}, nil
}

// buildCommand resolves the API key under the configured policy and
// assembles the Command for one operation.
func buildCommand(cmd *cobra.Command, op mandrill.Operation, target string, vars []mandrill.VariableReplacement) (mandrill.Command, error) {
	key, err := resolveKey(cmd.ErrOrStderr())
	if err != nil {
		return mandrill.Command{}, err
	}
	c := mandrill.Command{Operation: op, APIKey: key, Target: target, Vars: vars}
	return c, c.Validate()
}

// resolveKey applies the configured key policy. Advisory warnings go to w.
func resolveKey(w io.Writer) (string, error) {
	policy, err := mandrill.ParseKeyPolicy(v.GetString("key-policy"))
	if err != nil {
		return "", err
	}
	src := mandrill.NewCredentialSource(policy, cfgAPIKey, func(msg string) {
		printWarning(w, "%s", msg)
	})
	key, err := src.Resolve()
	if err != nil {
		return "", err
	}
	resolvedKey = key
	return key, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
