package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperengineering/mandrill"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "cli-test-key"

// templateAPI is a fake template API that records request bodies by path.
type templateAPI struct {
	mu       sync.Mutex
	requests map[string][]map[string]any

	info       string
	updateCode int
}

func (a *templateAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)

	a.mu.Lock()
	a.requests[r.URL.Path] = append(a.requests[r.URL.Path], payload)
	a.mu.Unlock()

	switch r.URL.Path {
	case "/templates/info.json":
		_, _ = w.Write([]byte(a.info))
	case "/templates/render.json":
		_, _ = w.Write([]byte(`{"html":"<p>Hello Ada</p>"}`))
	case "/templates/update.json":
		w.WriteHeader(a.updateCode)
		_, _ = w.Write([]byte(`{"status":"error","message":"nope"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (a *templateAPI) calls(path string) []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[path]
}

// testEnv points the CLI at a fake API with a clean environment and
// returns the fake.
func testEnv(t *testing.T, info string) *templateAPI {
	t.Helper()

	api := &templateAPI{
		requests:   make(map[string][]map[string]any),
		info:       info,
		updateCode: http.StatusOK,
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MANDRILL_BASE_URL", srv.URL)
	t.Setenv("MANDRILL_API_KEY", testKey)
	for _, name := range []string{
		"MANDRILL_API_KEY_FILE", "MANDRILL_TIMEOUT", "MANDRILL_KEY_POLICY",
		"MANDRILL_SANITIZE_POLICY", "MANDRILL_DEBUG", "MANDRILL_DEBUG_LOG",
	} {
		t.Setenv(name, "")
	}

	resetFlags(rootCmd)
	resolvedKey = ""
	t.Cleanup(func() {
		resetFlags(rootCmd)
		resolvedKey = ""
	})
	return api
}

// resetFlags restores every flag to its default so Execute can be called
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLI_Help_ListsAllCommands(t *testing.T) {
	testEnv(t, `{"code":""}`)

	stdout, _, err := run(t, "--help")
	require.NoError(t, err)

	for _, name := range []string{"inspect", "fix", "render", "mcp", "version"} {
		assert.Contains(t, stdout, name)
	}
}

func TestCLI_Help_RootShowsSettingsAndExitCodes(t *testing.T) {
	testEnv(t, `{"code":""}`)
	initHelp(rootCmd)

	stdout, _, err := run(t, "--help")
	require.NoError(t, err)

	for _, want := range []string{
		"Environment:", "MANDRILL_API_KEY_FILE", "MANDRILL_KEY_POLICY", "direct | file",
		"MANDRILL_SANITIZE_POLICY", "any | merge-tag", "MANDRILL_DEBUG_LOG",
		"Exit codes:", "  1  missing API key",
	} {
		assert.Contains(t, stdout, want)
	}
}

func TestCLI_Help_SubcommandsListOnlyTheirSettings(t *testing.T) {
	testEnv(t, `{"code":""}`)
	initHelp(rootCmd)

	stdout, _, err := run(t, "render", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "name:content")
	assert.Contains(t, stdout, "MANDRILL_API_KEY")
	assert.NotContains(t, stdout, "MANDRILL_SANITIZE_POLICY")
	assert.NotContains(t, stdout, "Exit codes:")

	stdout, _, err = run(t, "fix", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "MANDRILL_SANITIZE_POLICY")

	stdout, _, err = run(t, "version", "--help")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Environment:")
}

func TestCLI_NoCommand(t *testing.T) {
	testEnv(t, `{"code":""}`)

	_, _, err := run(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, mandrill.ErrBadCommand)
	assert.Equal(t, mandrill.ExitUsage, mandrill.ExitCode(err))
}

func TestCLI_UnknownCommand(t *testing.T) {
	api := testEnv(t, `{"code":""}`)

	_, _, err := run(t, "frobnicate", "welcome")
	require.Error(t, err)
	assert.ErrorIs(t, err, mandrill.ErrBadCommand)
	assert.Equal(t, mandrill.ExitUsage, mandrill.ExitCode(err))
	assert.Empty(t, api.calls("/templates/info.json"))
}

func TestCLI_UnknownFlag(t *testing.T) {
	testEnv(t, `{"code":""}`)

	_, _, err := run(t, "inspect", "welcome", "--bogus")
	require.Error(t, err)
	assert.Equal(t, mandrill.ExitUsage, mandrill.ExitCode(err))
}

func TestCLI_Inspect_MissingTarget(t *testing.T) {
	testEnv(t, `{"code":""}`)

	_, _, err := run(t, "inspect")
	require.Error(t, err)
	assert.ErrorIs(t, err, mandrill.ErrBadCommand)
}

func TestCLI_Inspect_PrintsCode(t *testing.T) {
	api := testEnv(t, `{"code":"<p>Hello *|MC_PREVIEW_TEXT|*</p>","text":"Hello"}`)

	stdout, stderr, err := run(t, "inspect", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello *|MC_PREVIEW_TEXT|*</p>\n", stdout)
	assert.Empty(t, stderr)

	calls := api.calls("/templates/info.json")
	require.Len(t, calls, 1)
	assert.Equal(t, testKey, calls[0]["key"])
	assert.Equal(t, "welcome", calls[0]["name"])
}

func TestCLI_Inspect_FlagKeyOverridesEnv(t *testing.T) {
	api := testEnv(t, `{"code":"x"}`)

	_, _, err := run(t, "inspect", "welcome", "-k", "flag-key")
	require.NoError(t, err)

	calls := api.calls("/templates/info.json")
	require.Len(t, calls, 1)
	assert.Equal(t, "flag-key", calls[0]["key"])
}

func TestCLI_Inspect_Text(t *testing.T) {
	testEnv(t, `{"code":"<p>Hello</p>","text":"Hello"}`)

	stdout, _, err := run(t, "inspect", "welcome", "--text")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", stdout)
}

func TestCLI_Inspect_NoTextPart(t *testing.T) {
	testEnv(t, `{"code":"<p>Hello</p>","text":null}`)

	stdout, stderr, err := run(t, "inspect", "welcome", "--text")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "has no text part")
}

func TestCLI_Inspect_EmptyTextPart(t *testing.T) {
	testEnv(t, `{"code":"<p>Hello</p>","text":""}`)

	stdout, stderr, err := run(t, "inspect", "welcome", "--text")
	require.NoError(t, err)
	assert.Equal(t, "\n", stdout)
	assert.Empty(t, stderr)
}

func TestCLI_Inspect_JSON(t *testing.T) {
	testEnv(t, `{"code":"<p>Hello</p>","text":"Hello","slug":"welcome"}`)

	stdout, _, err := run(t, "inspect", "welcome", "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "<p>Hello</p>", got["code"])
	assert.Equal(t, "welcome", got["slug"])
}

func TestCLI_Inspect_MissingKey(t *testing.T) {
	api := testEnv(t, `{"code":""}`)
	t.Setenv("MANDRILL_API_KEY", "")

	_, _, err := run(t, "inspect", "welcome")
	require.Error(t, err)
	assert.ErrorIs(t, err, mandrill.ErrMissingCredential)
	assert.Equal(t, mandrill.ExitUsage, mandrill.ExitCode(err))
	assert.Empty(t, api.calls("/templates/info.json"))
}

func TestCLI_Inspect_MalformedResponse(t *testing.T) {
	testEnv(t, `<html>gateway</html>`)

	stdout, _, err := run(t, "inspect", "welcome")
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.ErrorIs(t, err, mandrill.ErrMalformedResponse)
	assert.Equal(t, mandrill.ExitOperational, mandrill.ExitCode(err))
	assert.Contains(t, err.Error(), "<html>gateway</html>")
}

func TestCLI_Inspect_TransportFailure(t *testing.T) {
	testEnv(t, `{"code":""}`)

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	t.Setenv("MANDRILL_BASE_URL", closed.URL)

	_, _, err := run(t, "inspect", "welcome")
	require.Error(t, err)
	assert.ErrorIs(t, err, mandrill.ErrTransportFailure)
	assert.NotNil(t, errors.Unwrap(err))
	assert.Equal(t, mandrill.ExitOperational, mandrill.ExitCode(err))
}

func TestCLI_Inspect_InvalidBaseURL(t *testing.T) {
	testEnv(t, `{"code":""}`)

	_, _, err := run(t, "inspect", "welcome", "--base-url", "ftp://example.com")
	require.Error(t, err)

	var ve *mandrill.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "BaseURL", ve.Field)
	assert.Equal(t, mandrill.ExitUsage, mandrill.ExitCode(err))
}

func TestCLI_Inspect_ConfigFile(t *testing.T) {
	api := testEnv(t, `{"code":"from file config"}`)

	// The env var would win over the file, so point it elsewhere first.
	base := os.Getenv("MANDRILL_BASE_URL")
	t.Setenv("MANDRILL_BASE_URL", "")

	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "mandrill")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("base-url: "+base+"\n"), 0o600))

	stdout, _, err := run(t, "inspect", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "from file config\n", stdout)
	assert.Len(t, api.calls("/templates/info.json"), 1)
}

func TestCLI_Inspect_ExplicitConfigMissing(t *testing.T) {
	testEnv(t, `{"code":""}`)

	_, _, err := run(t, "inspect", "welcome", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, mandrill.ExitUsage, mandrill.ExitCode(err))
}

func TestCLI_KeyFile_ReadsAndTrims(t *testing.T) {
	api := testEnv(t, `{"code":"x"}`)

	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("file-key\n  "), 0o600))
	t.Setenv("MANDRILL_KEY_POLICY", "file")
	t.Setenv("MANDRILL_API_KEY_FILE", path)

	_, stderr, err := run(t, "inspect", "welcome")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	calls := api.calls("/templates/info.json")
	require.Len(t, calls, 1)
	assert.Equal(t, "file-key", calls[0]["key"])
}

func TestCLI_KeyFile_UnreadablePathWarns(t *testing.T) {
	api := testEnv(t, `{"code":"x"}`)
	t.Setenv("MANDRILL_API_KEY_FILE", "literal-key-value")

	stdout, stderr, err := run(t, "inspect", "welcome", "--key-policy", "file")
	require.NoError(t, err)
	assert.Equal(t, "x\n", stdout)
	assert.Contains(t, stderr, "MANDRILL_API_KEY_FILE")
	assert.Contains(t, stderr, "process substitution")

	calls := api.calls("/templates/info.json")
	require.Len(t, calls, 1)
	assert.Equal(t, "literal-key-value", calls[0]["key"])
}

func TestCLI_KeyFile_Unset(t *testing.T) {
	testEnv(t, `{"code":"x"}`)

	_, _, err := run(t, "inspect", "welcome", "--key-policy", "file")
	require.Error(t, err)
	assert.ErrorIs(t, err, mandrill.ErrMissingCredential)
}

func TestCLI_Render_PrintsHTML(t *testing.T) {
	api := testEnv(t, `{"code":""}`)

	stdout, _, err := run(t, "render", "welcome", "--var", "name:Ada", "-r", "bogus", "-r", "url:https://x/y")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello Ada</p>\n", stdout)

	calls := api.calls("/templates/render.json")
	require.Len(t, calls, 1)
	assert.Equal(t, "welcome", calls[0]["template_name"])
	assert.Equal(t, "handlebars", calls[0]["merge_language"])
	assert.Equal(t, []any{}, calls[0]["template_content"])
	assert.Equal(t, []any{
		map[string]any{"name": "name", "content": "Ada"},
		map[string]any{"name": "url", "content": "https://x/y"},
	}, calls[0]["merge_vars"])
}

func TestCLI_Render_NoVars(t *testing.T) {
	api := testEnv(t, `{"code":""}`)

	_, _, err := run(t, "render", "welcome")
	require.NoError(t, err)

	calls := api.calls("/templates/render.json")
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0], "merge_vars")
}

func TestCLI_Fix_CleanTemplate(t *testing.T) {
	api := testEnv(t, `{"code":"<p>Hi</p>","text":"Hi"}`)

	stdout, _, err := run(t, "fix", "welcome")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Empty(t, api.calls("/templates/update.json"))
}

func TestCLI_Fix_Updates(t *testing.T) {
	api := testEnv(t, `{"code":"<p>Hi *|MC_PREVIEW_TEXT|*</p>","text":"Go to http://{{link}}"}`)

	stdout, _, err := run(t, "fix", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "updated welcome\n", stdout)

	calls := api.calls("/templates/update.json")
	require.Len(t, calls, 1)
	assert.Equal(t, "<p>Hi </p>", calls[0]["code"])
	assert.Equal(t, "Go to {{link}}", calls[0]["text"])
	assert.Equal(t, true, calls[0]["publish"])
	assert.Equal(t, testKey, calls[0]["key"])
}

func TestCLI_Fix_DryRun(t *testing.T) {
	api := testEnv(t, `{"code":"*|MC_X|*<p>Hi</p>"}`)

	stdout, _, err := run(t, "fix", "welcome", "--dry-run", "--json")
	require.NoError(t, err)
	assert.Empty(t, api.calls("/templates/update.json"))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "pending", got["state"])
	assert.Equal(t, "<p>Hi</p>", got["code"])
	assert.Equal(t, map[string]any{"merge_tag": true, "tracked_link": false}, got["detection"])
}

func TestCLI_Fix_MergeTagPolicySkipsLinkOnly(t *testing.T) {
	api := testEnv(t, `{"code":"<a href=\"http://{{link}}\">x</a>"}`)
	t.Setenv("MANDRILL_SANITIZE_POLICY", "merge-tag")

	stdout, _, err := run(t, "fix", "welcome")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Empty(t, api.calls("/templates/update.json"))
}

func TestCLI_Fix_UpdateFailed(t *testing.T) {
	api := testEnv(t, `{"code":"*|MC_X|*"}`)
	api.updateCode = http.StatusInternalServerError

	stdout, _, err := run(t, "fix", "welcome")
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.ErrorIs(t, err, mandrill.ErrRemoteUpdateFailed)
	assert.Equal(t, mandrill.ExitOperational, mandrill.ExitCode(err))
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), `"message":"nope"`)
}

func TestCLI_InvalidSanitizePolicy(t *testing.T) {
	testEnv(t, `{"code":""}`)

	_, _, err := run(t, "fix", "welcome", "--sanitize-policy", "everything")
	require.Error(t, err)
	assert.Equal(t, mandrill.ExitUsage, mandrill.ExitCode(err))
}

func TestCLI_DebugLogFile(t *testing.T) {
	testEnv(t, `{"code":"x"}`)
	logPath := filepath.Join(t.TempDir(), "debug.log")

	_, _, err := run(t, "inspect", "welcome", "--debug", "--debug-log", logPath)
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id")
	assert.Contains(t, string(data), "/templates/info.json")
	assert.NotContains(t, string(data), testKey)
}

func TestCLI_InvalidTimeoutEnv(t *testing.T) {
	api := testEnv(t, `{"code":"x"}`)
	t.Setenv("MANDRILL_TIMEOUT", "soon")

	_, _, err := run(t, "inspect", "welcome")
	require.Error(t, err)

	var ve *mandrill.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Timeout", ve.Field)
	assert.Equal(t, mandrill.ExitUsage, mandrill.ExitCode(err))
	assert.Empty(t, api.calls("/templates/info.json"))
}

func TestCLI_DebugEnvMatchesLibrary(t *testing.T) {
	tests := []struct {
		value   string
		enabled bool
	}{
		{"yes", true},
		{"1", true},
		{"off", false},
		{"false", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			testEnv(t, `{"code":"x"}`)
			logPath := filepath.Join(t.TempDir(), "debug.log")
			t.Setenv("MANDRILL_DEBUG", tt.value)
			t.Setenv("MANDRILL_DEBUG_LOG", logPath)

			_, _, err := run(t, "inspect", "welcome")
			require.NoError(t, err)

			assert.Equal(t, tt.enabled, mandrill.ConfigFromEnv().Debug)
			_, statErr := os.Stat(logPath)
			assert.Equal(t, tt.enabled, statErr == nil, "debug log written")
		})
	}
}

func TestOutputError_ScrubsKey(t *testing.T) {
	testEnv(t, `{"code":""}`)
	restore := setMockTTY(false)
	defer restore()
	resolvedKey = "sekrit-key"

	var buf bytes.Buffer
	outputError(&buf, &mandrill.Error{
		Kind:       mandrill.KindRemoteUpdateFailed,
		StatusCode: 400,
		Body:       `{"key":"sekrit-key"}`,
	})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "error: "), "got %q", out)
	assert.NotContains(t, out, "sekrit-key")
	assert.Contains(t, out, "[REDACTED]")
}

func TestOutputError_IncludesCause(t *testing.T) {
	restore := setMockTTY(false)
	defer restore()

	var buf bytes.Buffer
	outputError(&buf, &mandrill.Error{
		Kind:      mandrill.KindTransportFailure,
		Operation: "inspect",
		Err:       errors.New("connection refused"),
	})

	assert.Equal(t, "error: inspect request failed\nCause: connection refused\n", buf.String())
}
