package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidRules(t *testing.T) {
	output, err := runValidateCmd(t, "text", filepath.Join("testdata", "rules", "pizza"))
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Rule set valid (2 rule(s), 0 template(s), 0 fact(s))")
}

func TestValidateMergesDirectories(t *testing.T) {
	output, err := runValidateCmd(t, "text",
		filepath.Join("testdata", "rules", "pizza"),
		filepath.Join("testdata", "rules", "intents"))
	require.NoError(t, err)
	assert.Contains(t, output, "3 rule(s)")
}

func TestValidateValidRulesJSON(t *testing.T) {
	output, err := runValidateCmd(t, "json", filepath.Join("testdata", "rules", "pizza"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Rules)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	output, err := runValidateCmd(t, "text", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, output, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	output, err := runValidateCmd(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, output, "no CUE files found")
}

func TestValidateUnknownFunction(t *testing.T) {
	output, err := runValidateCmd(t, "text", filepath.Join("testdata", "rules", "broken"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E122")
	assert.Contains(t, output, `function "nosuch" is not defined`)
}

func TestValidateUnknownFunctionJSON(t *testing.T) {
	output, err := runValidateCmd(t, "json", filepath.Join("testdata", "rules", "broken"))
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E122", resp.Error.Code)
}

func TestValidateUnknownNamespace(t *testing.T) {
	output, err := runValidateCmd(t, "text", "--functions", "nosuch", filepath.Join("testdata", "rules", "pizza"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, ErrCodeFunctions)
}

func TestValidateCUESyntaxError(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "bad.cue"), []byte("package bad\n\nrule: {\n"), 0o644))

	output, err := runValidateCmd(t, "text", tmpDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [")
}

func TestValidateMissingArgs(t *testing.T) {
	_, err := runValidateCmd(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeBuildFailed},
		{"program", ErrCodeProgram},
		{"template.order", ErrCodeTemplate},
		{"facts[0]", ErrCodeFacts},
		{"rule.upsize.when[0]", ErrCodeInvalidWhen},
		{"rule.upsize.then[1]", ErrCodeInvalidThen},
		{"rule.upsize.salience", ErrCodeRule},
		{"unknown", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestFindCUEFilesTopLevelOnly(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.cue"), []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "sub", "b.cue"), []byte("package b\n"), 0o644))

	files, err := FindCUEFiles(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tmpDir, "a.cue")}, files)
}
