package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperengineering/mandrill"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// v holds the merged flag/env/file configuration for the current invocation.
var v = viper.New()

// boundFlags are the persistent flags that may also come from MANDRILL_*
// environment variables or the config file. The API key is deliberately
// absent: it only flows through the credential policy.
var boundFlags = []string{
	"base-url",
	"timeout",
	"key-policy",
	"sanitize-policy",
	"debug",
	"debug-log",
}

// initConfig binds flags, environment and config file into a fresh viper
// instance. Precedence: flag > env > config file > default.
func initConfig(cmd *cobra.Command, args []string) error {
	v = viper.New()
	v.SetEnvPrefix("MANDRILL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range boundFlags {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return &mandrill.ValidationError{Field: "config", Message: err.Error()}
		}
	}
	return nil
}

// configDir returns $XDG_CONFIG_HOME/mandrill (or the platform equivalent).
func configDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "mandrill")
}

// loadConfig builds the library configuration from the bound values. Timeout
// and debug go through the same parsers as mandrill.ConfigFromEnv.
func loadConfig() mandrill.Config {
	cfg := mandrill.Config{
		BaseURL:        v.GetString("base-url"),
		Timeout:        mandrill.ParseTimeout(v.GetString("timeout")),
		UserAgent:      userAgent(),
		KeyPolicy:      mandrill.KeyPolicy(strings.ToLower(v.GetString("key-policy"))),
		SanitizePolicy: mandrill.SanitizePolicy(strings.ToLower(v.GetString("sanitize-policy"))),
		Debug:          mandrill.ParseSwitch(v.GetString("debug")),
		DebugLogPath:   v.GetString("debug-log"),
	}
	return cfg.WithDefaults()
}
