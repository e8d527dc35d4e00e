package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/quoteedit"
	"github.com/roach88/quotedesk/internal/reconcile"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(map[string]string{"mode": "committed"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]interface{}{"mode": "committed"}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Error("INCOMPLETE_SELECTION", "commit blocked", map[string]string{"missing": "I2"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INCOMPLETE_SELECTION", resp.Error.Code)
	assert.Equal(t, "commit blocked", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("Imported 2 vendor(s)"))
	assert.Equal(t, "Imported 2 vendor(s)\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("SAVE_BLOCKED", "quotes not saved", map[string]string{"rows": "Q1"}))
	assert.Contains(t, buf.String(), "Error [SAVE_BLOCKED]: quotes not saved")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("SAVE_BLOCKED", "quotes not saved", map[string]string{"rows": "Q1"}))
	assert.Contains(t, buf.String(), "  rows=Q1\n")
}

func TestOutputFormatter_TextFailShowsDomainDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	cause := reconcile.NewIncompleteSelectionError("SB-1", []ledger.ItemID{"I2", "I3"})
	err := formatter.Fail(ExitFailure, "commit", cause, cause.Details)

	require.Error(t, err)
	assert.Contains(t, buf.String(), "Error [INCOMPLETE_SELECTION]: commit: ")
	assert.Contains(t, buf.String(), "  missing=I2,I3\n")
}

func TestOutputFormatter_CommandErrorCode(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(ExitCommandError, "failed to import fixture", errors.New("no such file"), nil)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "COMMAND_ERROR", resp.Error.Code)
	assert.Equal(t, ExitCommandError, resp.Error.Exit)
}

func TestDetailLines(t *testing.T) {
	assert.Equal(t, []string{"a=1", "b=x"}, detailLines(map[string]any{"b": "x", "a": 1}))
	assert.Equal(t, []string{"rows=Q1"}, detailLines(map[string]string{"rows": "Q1"}))
	assert.Equal(t, []string{"[Q1 Q2]"}, detailLines([]string{"Q1", "Q2"}))
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := reconcile.NewIncompleteSelectionError("SB-1", []ledger.ItemID{"I2"})
	err := formatter.Fail(ExitFailure, "commit", cause, cause.Details)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, reconcile.IsIncompleteSelection(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INCOMPLETE_SELECTION", resp.Error.Code)
	assert.Equal(t, ExitFailure, resp.Error.Exit)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: tt.verbose}

			formatter.VerboseLog("opened %s", "SB-1")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "opened SB-1\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "ok", ErrorCode(nil))
	assert.Equal(t, "SAVE_BLOCKED", ErrorCode(fmt.Errorf("submit: %w", quoteedit.ErrSaveBlocked)))
	assert.Equal(t, "ERROR", ErrorCode(errors.New("boom")))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad args")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitFailure, "x", errors.New("y")))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	err := WrapExitError(ExitCommandError, "open store", errors.New("disk"))
	assert.Equal(t, "open store: disk", err.Error())
}
