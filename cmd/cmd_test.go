package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/conneroisu/pressify/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the root command with args against project dir and returns
// its standard output.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	configFormat, configStrict, configForce = "yaml", false, false
	configOutput = ".pressify.yml"
	versionFormat, versionDetailed = "text", false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"-C", dir, "--quiet"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out, err := execute(t, t.TempDir(), "version")
		require.NoError(t, err)
		assert.Contains(t, out, "pressify ")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, t.TempDir(), "version", "--format", "json")
		require.NoError(t, err)

		var info map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Contains(t, info, "version")
		assert.Contains(t, info, "go_version")
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := execute(t, t.TempDir(), "version", "--format", "xml")
		assert.ErrorContains(t, err, "supported: json, text")
	})
}

func TestTasksCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "tasks")
	require.NoError(t, err)

	assert.Contains(t, out, "env:rebuild [series]\n  teardown (fatal)\n  provision (fatal)\n  rebuild (fatal)\n")
	assert.Contains(t, out, "dev [series]")
	assert.Contains(t, out, "  assets [parallel]\n    styles (stream)")
	assert.Contains(t, out, "prod [series]")

	single, err := execute(t, dir, "tasks", "backup")
	require.NoError(t, err)
	assert.Equal(t, "backup (fatal)\n", single)

	_, err = execute(t, dir, "tasks", "deploy")
	assert.ErrorContains(t, err, "unknown task")
}

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROXY_PORT", "4010")

	out, err := execute(t, dir, "config", "show", "--format", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 4010, cfg.Server.ProxyPort)
	assert.Equal(t, "wordpressify", cfg.Project.Theme)
	assert.Len(t, cfg.Environment.Templates, 3)

	out, err = execute(t, dir, "config", "show")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "environment")
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "pressify.yml")

	out, err := execute(t, dir, "config", "init", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved to")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "compose_command")

	_, err = execute(t, dir, "config", "init", "--output", target)
	assert.ErrorContains(t, err, "already exists")

	out, err = execute(t, dir, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestEnvRestartServiceFlag(t *testing.T) {
	flag := envRestartCmd.Flags().Lookup("service")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
	assert.Equal(t, "s", flag.Shorthand)
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"env:start", "env:build", "env:rebuild", "env:restart", "env:stop", "dev", "prod", "backup", "tasks", "config", "version"} {
		t.Run(name, func(t *testing.T) {
			found, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, found.Name())
		})
	}
}

func TestBackupWithoutBuildFails(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "backup")

	require.Error(t, err)
	assert.ErrorContains(t, err, "build the project first")
}
