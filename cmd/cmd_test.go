package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/illarion/microkv/internal/password"
	"github.com/illarion/microkv/pkg/microkv"
)

func TestMain(m *testing.M) {
	gokeyring.MockInit()
	os.Exit(m.Run())
}

// runCLI executes the root command with args and returns its output.
// Flags are reset first since cobra keeps them between runs.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func setupCLI(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(password.EnvVar, "test-password")
	t.Setenv("MICROKV_KDF_ITERATIONS", "1000")
	return filepath.Join(t.TempDir(), "cli.kv")
}

func TestCLIPutGet(t *testing.T) {
	path := setupCLI(t)

	_, err := runCLI(t, "--path", path, "init")
	require.NoError(t, err)

	_, err = runCLI(t, "--path", path, "put", "-k", "host", "-v", "localhost")
	require.NoError(t, err)
	_, err = runCLI(t, "--path", path, "-n", "billing", "put", "-k", "limits", "-v", `{"max":10}`, "--json")
	require.NoError(t, err)

	out, err := runCLI(t, "--path", path, "get", "-k", "host")
	require.NoError(t, err)
	assert.Equal(t, "localhost\n", out)

	out, err = runCLI(t, "--path", path, "get", "-k", "host", "--raw")
	require.NoError(t, err)
	assert.Equal(t, "\"localhost\"\n", out)

	out, err = runCLI(t, "--path", path, "-n", "billing", "get", "-k", "limits")
	require.NoError(t, err)
	assert.Equal(t, "{\"max\":10}\n", out)

	out, err = runCLI(t, "--path", path, "namespaces")
	require.NoError(t, err)
	assert.Equal(t, "(default)\nbilling\n", out)

	// the file is readable by the library with the same password
	db, err := microkv.Open(path, microkv.WithPassword([]byte("test-password")), microkv.WithIterations(1000))
	require.NoError(t, err)
	defer db.Close()
	host, err := microkv.Get[string](db, "host")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
}

func TestCLIListAndRemove(t *testing.T) {
	path := setupCLI(t)

	for _, kv := range [][2]string{{"b", "2"}, {"a", "1"}, {"c", "3"}} {
		_, err := runCLI(t, "--path", path, "put", "-k", kv[0], "-v", kv[1])
		require.NoError(t, err)
	}

	out, err := runCLI(t, "--path", path, "list")
	require.NoError(t, err)
	assert.Equal(t, "b\na\nc\n", out)

	out, err = runCLI(t, "--path", path, "list", "--sorted", "--values")
	require.NoError(t, err)
	assert.Equal(t, "a = 1\nb = 2\nc = 3\n", out)

	_, err = runCLI(t, "--path", path, "rm", "-k", "a")
	require.NoError(t, err)

	out, err = runCLI(t, "--path", path, "rm", "-k", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "warning: a not found")

	_, err = runCLI(t, "--path", path, "get", "-k", "a")
	assert.ErrorIs(t, err, microkv.ErrNotFound)

	_, err = runCLI(t, "--path", path, "clear", "--force")
	require.NoError(t, err)
	out, err = runCLI(t, "--path", path, "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCLIWrongPassword(t *testing.T) {
	path := setupCLI(t)
	_, err := runCLI(t, "--path", path, "put", "-k", "k", "-v", "v")
	require.NoError(t, err)

	t.Setenv(password.EnvVar, "other-password")
	_, err = runCLI(t, "--path", path, "put", "-k", "k2", "-v", "v2")
	assert.ErrorIs(t, err, microkv.ErrAuthentication)
}

func TestCLIInitTwice(t *testing.T) {
	path := setupCLI(t)
	_, err := runCLI(t, "--path", path, "init")
	require.NoError(t, err)
	_, err = runCLI(t, "--path", path, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCLIStatus(t *testing.T) {
	path := setupCLI(t)

	out, err := runCLI(t, "--path", path, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No store at")

	_, err = runCLI(t, "--path", path, "put", "-k", "k", "-v", "secret-value")
	require.NoError(t, err)

	// status needs no password
	t.Setenv(password.EnvVar, "")
	out, err = runCLI(t, "--path", path, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Encrypted: yes")
	assert.Contains(t, out, "(default): 1")
	assert.NotContains(t, out, "secret-value")
}

func TestCLIDiff(t *testing.T) {
	path := setupCLI(t)
	other := filepath.Join(filepath.Dir(path), "other.kv")

	_, err := runCLI(t, "--path", path, "put", "-k", "same", "-v", "1")
	require.NoError(t, err)
	_, err = runCLI(t, "--path", path, "put", "-k", "changed", "-v", "old")
	require.NoError(t, err)
	_, err = runCLI(t, "--path", other, "put", "-k", "same", "-v", "1")
	require.NoError(t, err)
	_, err = runCLI(t, "--path", other, "put", "-k", "changed", "-v", "new")
	require.NoError(t, err)

	out, err := runCLI(t, "--path", path, "diff", other)
	require.NoError(t, err)
	assert.Contains(t, out, "(changed)")
	assert.NotContains(t, out, "old")
	assert.NotContains(t, out, "new")

	out, err = runCLI(t, "--path", path, "diff", path)
	require.NoError(t, err)
	assert.Equal(t, "No differences\n", out)
}

func TestCLIPasswd(t *testing.T) {
	path := setupCLI(t)
	_, err := runCLI(t, "--path", path, "put", "-k", "k", "-v", "v")
	require.NoError(t, err)

	// ReadConfirm needs a terminal
	_, err = runCLI(t, "--path", path, "passwd")
	require.Error(t, err)

	out, err := runCLI(t, "--path", path, "get", "-k", "k")
	require.NoError(t, err)
	assert.Equal(t, "v\n", out)
}

func TestCLIKeyringStatus(t *testing.T) {
	path := setupCLI(t)
	_, err := runCLI(t, "--path", path, "put", "-k", "k", "-v", "v")
	require.NoError(t, err)

	out, err := runCLI(t, "--path", path, "keyring", "status")
	require.NoError(t, err)
	assert.Equal(t, "Password: not stored\n", out)
}

func TestCLIDestroy(t *testing.T) {
	path := setupCLI(t)
	_, err := runCLI(t, "--path", path, "put", "-k", "k", "-v", "v")
	require.NoError(t, err)

	_, err = runCLI(t, "--path", path, "destroy", "--force")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCLICompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		out, err := runCLI(t, "completion", shell)
		require.NoError(t, err, shell)
		assert.Contains(t, out, "microkv", shell)
	}

	_, err := runCLI(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestEncodeValue(t *testing.T) {
	v, err := encodeValue("hello", false)
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, string(v))

	v, err = encodeValue(`{"a":1}`, true)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(v))

	_, err = encodeValue(`{"a":`, true)
	assert.Error(t, err)
}

func TestPrintValue(t *testing.T) {
	assert.Equal(t, "hello", printValue(json.RawMessage(`"hello"`), false))
	assert.Equal(t, `"hello"`, printValue(json.RawMessage(`"hello"`), true))
	assert.Equal(t, `[1,2]`, printValue(json.RawMessage(`[1,2]`), false))
	assert.True(t, strings.HasPrefix(printValue(json.RawMessage(`{"a":1}`), false), "{"))
}
