package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/solodevflow/solodev/internal/config"
	ctxloader "github.com/solodevflow/solodev/internal/context"
)

// useProject points the global flags at a fresh project directory and
// restores them when the test ends.
func useProject(t *testing.T, format string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	for _, env := range []string{
		config.EnvConfig, config.EnvOutput, config.EnvBaseDir, config.EnvDocsDir, config.EnvVerbose,
		config.EnvActor, config.EnvCacheTTL, config.EnvSizeWarningKB, config.EnvSizeLimitKB, config.EnvLockTimeout,
	} {
		t.Setenv(env, "")
	}

	oldVerbose, oldOutput, oldCfg, oldDir := verbose, output, cfgFile, projectDir
	t.Cleanup(func() {
		verbose, output, cfgFile, projectDir = oldVerbose, oldOutput, oldCfg, oldDir
	})
	verbose, output, cfgFile, projectDir = false, format, "", dir
	return dir
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &out
}

func slash(t *testing.T, args ...string) (resultOutput, error) {
	t.Helper()
	cmd, out := newTestCmd()
	err := runSlash(cmd, args)
	var res resultOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res), "output: %s", out.String())
	return res, err
}

// executeRoot runs the real root command with args.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootDispatch(t *testing.T) {
	dir := useProject(t, "")
	projectDir = ""

	out, err := executeRoot(t, "--dir", dir, "-o", "json", "init", "demo", "a demo project")
	require.NoError(t, err, out)
	var res resultOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, "init", res.Command)
	assert.True(t, res.Success)
	assert.FileExists(t, filepath.Join(dir, ".solodev", "state.json"))

	out, err = executeRoot(t, "/status", "-o", "json", "--dir", dir)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, "status", res.Command)

	out, err = executeRoot(t, "modules", "--dir", dir, "-o", "json")
	require.NoError(t, err, out)
	assert.JSONEq(t, "[]", out)

	out, err = executeRoot(t, "--dir", dir, "-o", "table", "rollback", "architecture", "bug", "found")
	assert.ErrorIs(t, err, errCommandFailed)
	assert.Contains(t, out, "/rollback failed")
	assert.Equal(t, 1, strings.Count(out, "unexpected arguments for /rollback: found"), out)
}

func TestSlashInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"adds slash", []string{"status"}, "/status"},
		{"keeps slash", []string{"/approve", "auth"}, "/approve auth"},
		{"quotes whitespace", []string{"rollback", "architecture", "schema misses fields"}, `/rollback architecture "schema misses fields"`},
		{"quotes empty", []string{"init", ""}, `/init ""`},
		{"single quotes around double quotes", []string{"complete-iteration", `ship "v2"`}, `/complete-iteration 'ship "v2"'`},
		{"flags untouched", []string{"add-module", "api", "--depends-on", "auth,db"}, "/add-module api --depends-on auth,db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slashInput(tt.args))
		})
	}
}

func TestSplitGlobalFlags(t *testing.T) {
	useProject(t, "")

	rest, err := splitGlobalFlags([]string{"-o", "json", "add-module", "api", "--dir=/tmp/x", "--priority", "P0", "-v"})
	require.NoError(t, err)
	assert.Equal(t, []string{"add-module", "api", "--priority", "P0"}, rest)
	assert.Equal(t, "json", output)
	assert.Equal(t, "/tmp/x", projectDir)
	assert.True(t, verbose)

	rest, err = splitGlobalFlags([]string{"status", "--config", "custom.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"status"}, rest)
	assert.Equal(t, "custom.yaml", cfgFile)

	_, err = splitGlobalFlags([]string{"status", "--output"})
	assert.EqualError(t, err, "flag needs an argument: --output")
}

func TestSlash_Lifecycle(t *testing.T) {
	dir := useProject(t, "json")

	res, err := slash(t, "status")
	assert.ErrorIs(t, err, errCommandFailed)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "run /init first")

	res, err = slash(t, "init", "demo", "a demo project")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "init", res.Command)
	assert.FileExists(t, filepath.Join(dir, ".solodev", "state.json"))

	_, err = slash(t, "/start-requirements")
	require.NoError(t, err)
	_, err = slash(t, "add-module", "auth", "--priority", "P0", "--foundation")
	require.NoError(t, err)
	_, err = slash(t, "add-module", "api", "--depends-on", "auth")
	require.NoError(t, err)

	res, err = slash(t, "start-architecture")
	assert.ErrorIs(t, err, errCommandFailed)
	assert.False(t, res.Success)

	res, err = slash(t, "bogus")
	assert.ErrorIs(t, err, errCommandFailed)
	assert.False(t, res.Success)
}

func TestSlash_TableOutput(t *testing.T) {
	useProject(t, "table")
	cmd, out := newTestCmd()
	require.NoError(t, runSlash(cmd, []string{"init", "demo"}))
	assert.Contains(t, out.String(), "/init succeeded")
	assert.Contains(t, out.String(), "/start-requirements")
}

func TestValidateState(t *testing.T) {
	useProject(t, "json")
	_, err := slash(t, "init", "demo")
	require.NoError(t, err)

	cmd, out := newTestCmd()
	require.NoError(t, runValidate(cmd, []string{"state"}))
	var report validateReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.NotNil(t, report.State)
	assert.True(t, report.State.Valid)
	assert.Empty(t, report.State.Errors)
	assert.Nil(t, report.Refs)
}

func TestValidateState_Corrupt(t *testing.T) {
	dir := useProject(t, "json")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".solodev"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".solodev", "state.json"), []byte("{\n  \"project\": \n"), 0o644))

	cmd, out := newTestCmd()
	err := runValidate(cmd, []string{"state"})
	assert.ErrorIs(t, err, errCommandFailed)
	var report validateReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.State.Valid)
	assert.NotEmpty(t, report.State.Errors)
}

func TestValidate_UnknownTarget(t *testing.T) {
	useProject(t, "json")
	cmd, _ := newTestCmd()
	assert.EqualError(t, runValidate(cmd, []string{"everything"}), `unknown validation target "everything" (want state, refs or all)`)
}

func TestContextPhase(t *testing.T) {
	useProject(t, "yaml")
	_, err := slash(t, "init", "demo", "-o", "json")
	require.NoError(t, err)
	output = "yaml"

	cmd, out := newTestCmd()
	require.NoError(t, runContext(cmd, func(l *ctxloader.Loader) *ctxloader.Result {
		return l.ForPhase(phaseArg("req"))
	}))
	var res ctxloader.Result
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Contains(t, res.Files, ".solodev/state.json")
	require.NotNil(t, res.Budget)
	assert.Equal(t, ctxloader.StatusOptimal, res.Budget.Status)

	cmd, _ = newTestCmd()
	err = runContext(cmd, func(l *ctxloader.Loader) *ctxloader.Result {
		return l.ForPhase(phaseArg("nonsense"))
	})
	assert.ErrorIs(t, err, errCommandFailed)
	assert.Contains(t, err.Error(), "invalid phase: nonsense")
}

func TestModules(t *testing.T) {
	useProject(t, "json")
	for _, args := range [][]string{
		{"init", "demo"},
		{"start-requirements"},
		{"add-module", "auth", "--priority", "P0", "--foundation"},
		{"add-module", "api", "--depends-on", "auth"},
	} {
		_, err := slash(t, args...)
		require.NoError(t, err, args)
	}

	cmd, out := newTestCmd()
	require.NoError(t, runModules(cmd, nil))
	var rows []moduleRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "api", rows[0].Name)
	assert.Equal(t, []string{"auth"}, rows[0].DependsOn)
	assert.Equal(t, "auth", rows[1].Name)
	assert.True(t, rows[1].Foundation)
	assert.EqualValues(t, "P0", rows[1].Priority)

	output = "table"
	cmd, out = newTestCmd()
	require.NoError(t, runModules(cmd, nil))
	assert.Contains(t, out.String(), "MODULE")
	assert.Contains(t, out.String(), "auth*")
}

func TestHistory_Empty(t *testing.T) {
	useProject(t, "table")
	_, err := slash(t, "init", "demo", "-o", "json")
	require.NoError(t, err)
	output = "table"

	cmd, out := newTestCmd()
	require.NoError(t, runHistory(cmd, nil))
	assert.Contains(t, out.String(), "no archived iterations yet")

	cmd, _ = newTestCmd()
	assert.Error(t, runHistory(cmd, []string{"iteration-9"}))
}

func TestIterationFormatter(t *testing.T) {
	f, err := iterationFormatter("")
	require.NoError(t, err)
	assert.Equal(t, ".md", f.Extension())

	f, err = iterationFormatter("jsonl")
	require.NoError(t, err)
	assert.Equal(t, ".jsonl", f.Extension())

	_, err = iterationFormatter("csv")
	assert.Error(t, err)
}

func TestDay(t *testing.T) {
	assert.Equal(t, "2026-03-01", day("2026-03-01T09:30:00.000Z"))
	assert.Equal(t, "-", day(""))
	assert.Equal(t, "soon", day("soon"))
}

func TestConfigShow(t *testing.T) {
	dir := useProject(t, "json")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".solodev"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".solodev", "config.yaml"), []byte("docs_dir: documentation\n"), 0o644))

	old := configShow
	configShow = true
	t.Cleanup(func() { configShow = old })

	cmd, out := newTestCmd()
	require.NoError(t, runConfig(cmd, nil))
	var resolved map[string]struct {
		Value  any    `json:"value"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resolved))
	assert.Equal(t, "documentation", resolved["docs_dir"].Value)
	assert.Equal(t, ".solodev/config.yaml", resolved["docs_dir"].Source)
	assert.Equal(t, "json", resolved["output"].Value)
	assert.Equal(t, "flag", resolved["output"].Source)
	assert.Equal(t, "default", resolved["base_dir"].Source)
}
