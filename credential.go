package mandrill

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Environment variables consulted by the credential policies.
const (
	EnvAPIKey     = "MANDRILL_API_KEY"
	EnvAPIKeyFile = "MANDRILL_API_KEY_FILE"
)

// KeyPolicy selects where the API key comes from. One policy is chosen per
// deployment; see NewCredentialSource.
type KeyPolicy string

const (
	// KeyPolicyDirect reads the key from the --key flag, then MANDRILL_API_KEY.
	KeyPolicyDirect KeyPolicy = "direct"

	// KeyPolicyFile reads a file path from MANDRILL_API_KEY_FILE and uses the
	// file's contents as the key.
	KeyPolicyFile KeyPolicy = "file"
)

// ParseKeyPolicy validates a policy name.
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch p := KeyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case KeyPolicyDirect, KeyPolicyFile:
		return p, nil
	case "":
		return KeyPolicyDirect, nil
	default:
		return "", &ValidationError{Field: "KeyPolicy", Message: fmt.Sprintf("unknown policy %q (want direct or file)", s)}
	}
}

// CredentialSource produces the API key used by every request.
type CredentialSource interface {
	Resolve() (string, error)
}

// NewCredentialSource returns the source for policy. flagValue is only
// consulted by the direct policy; warn receives advisory messages from the
// file policy and may be nil.
func NewCredentialSource(policy KeyPolicy, flagValue string, warn func(string)) CredentialSource {
	if policy == KeyPolicyFile {
		return &KeyFile{EnvVar: EnvAPIKeyFile, Warn: warn}
	}
	return &DirectKey{Flag: flagValue, EnvVar: EnvAPIKey}
}

// DirectKey takes the key from an explicit value, falling back to an
// environment variable.
type DirectKey struct {
	Flag   string
	EnvVar string
}

func (d *DirectKey) Resolve() (string, error) {
	if d.Flag != "" {
		return d.Flag, nil
	}
	if v := os.Getenv(d.EnvVar); v != "" {
		return v, nil
	}
	return "", missingCredential(fmt.Sprintf("missing API key: pass --key or set %s", d.EnvVar))
}

// keyFileAdvice is emitted when the key file path could not be opened and the
// path string is used as the key instead.
const keyFileAdvice = "%s does not name a readable file; using its value as the API key. " +
	"Prefer process substitution, e.g. %s=<(pass show mandrill)"

// KeyFile reads the key from the file named by an environment variable.
type KeyFile struct {
	EnvVar string

	// Warn receives the advisory message when the path cannot be opened.
	// Nil writes the message to stderr.
	Warn func(string)
}

func (k *KeyFile) Resolve() (string, error) {
	path := os.Getenv(k.EnvVar)
	if path == "" {
		return "", missingCredential(fmt.Sprintf("missing API key: set %s to a file containing the key", k.EnvVar))
	}

	key, err := readKeyFile(path)
	if err != nil {
		k.warn(fmt.Sprintf(keyFileAdvice, k.EnvVar, k.EnvVar))
		return path, nil
	}
	return key, nil
}

func (k *KeyFile) warn(msg string) {
	if k.Warn != nil {
		k.Warn(msg)
		return
	}
	_, _ = fmt.Fprintln(os.Stderr, "warning: "+msg)
}

// readKeyFile reads the whole file and strips trailing whitespace only.
// The file is closed before returning.
func readKeyFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return strings.TrimRightFunc(string(data), unicode.IsSpace), nil
}
