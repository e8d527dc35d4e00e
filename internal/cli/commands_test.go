package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// seededDB imports the seed package's site fixture into a temp database.
func seededDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "site.db")
	out, err := execute(t, "--db", db, "seed", "../seed/testdata/site.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 vendor(s), 1 request(s), 3 quotation(s), 2 order(s), 2 payment(s)")
	return db
}

func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}

func TestSeed_MissingFixture(t *testing.T) {
	_, err := execute(t, "--db", filepath.Join(t.TempDir(), "x.db"), "seed", "absent.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRFQ_CompareAndCommit(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "--db", db, "rfq", "vendors", "add", "SB-1", "V1", "V2")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2 vendor(s) to SB-1")

	for _, q := range [][]string{{"I1", "V1", "100"}, {"I1", "V2", "90"}, {"I2", "V1", "50"}} {
		_, err := execute(t, append([]string{"--db", db, "rfq", "quote", "SB-1"}, q...)...)
		require.NoError(t, err, q)
	}
	out, err = execute(t, "--db", db, "rfq", "make", "SB-1", "I1", "V2", "Polycab")
	require.NoError(t, err)
	assert.Contains(t, out, "I1/V2: priced-with-make")

	out, err = execute(t, "--db", db, "--format", "json", "rfq", "show", "SB-1")
	require.NoError(t, err)
	var view RFQView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "edit", view.Mode)
	assert.Equal(t, []string{"I1", "I2"}, view.Missing)
	require.Len(t, view.Rows, 4)
	assert.Equal(t, "90.00", view.Rows[1].Quote)
	assert.True(t, view.Rows[1].Lowest)

	out, err = execute(t, "--db", db, "--format", "json", "rfq", "review", "SB-1", "I1=V2", "--commit")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp = decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INCOMPLETE_SELECTION", resp.Error.Code)

	out, err = execute(t, "--db", db, "--format", "json", "rfq", "review", "SB-1", "I1=V2", "I2=V1", "--commit")
	require.NoError(t, err)
	view = RFQView{}
	decodeResponse(t, out, &view)
	assert.Equal(t, "committed", view.Mode)
	assert.Equal(t, "Vendor Selected", view.State)
	assert.True(t, view.Complete)

	// A committed request reopens read-only with its winners.
	_, err = execute(t, "--db", db, "rfq", "quote", "SB-1", "I1", "V1", "80")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = execute(t, "--db", db, "rfq", "show", "SB-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Vendor Selected")
	assert.Contains(t, out, "winner")
	assert.Contains(t, out, "Every item has a winner.")
}

func TestRFQ_RemoveVendor(t *testing.T) {
	db := seededDB(t)

	_, err := execute(t, "--db", db, "rfq", "vendors", "add", "SB-1", "V1", "V2")
	require.NoError(t, err)
	_, err = execute(t, "--db", db, "rfq", "quote", "SB-1", "I1", "V2", "90")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "rfq", "vendors", "remove", "SB-1", "V2")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 vendor(s) from SB-1")

	out, err = execute(t, "--db", db, "--format", "json", "rfq", "show", "SB-1")
	require.NoError(t, err)
	var view RFQView
	decodeResponse(t, out, &view)
	for _, r := range view.Rows {
		assert.Equal(t, "V1", r.Vendor)
	}
}

func TestRFQ_Errors(t *testing.T) {
	db := seededDB(t)

	_, err := execute(t, "--db", db, "rfq", "show", "SB-404")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "--db", db, "rfq", "vendors", "add", "SB-1", "V9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "--db", db, "rfq", "quote", "SB-1", "I1", "V1", "ten")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "--db", db, "rfq", "review", "SB-1", "I1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want item=vendor")
}

func TestParseAwards(t *testing.T) {
	awards, err := parseAwards([]string{"I2=V1", "I1=V3", "I1=V2"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"I1", "V2"}, {"I2", "V1"}}, awards)

	_, err = parseAwards([]string{"I1="})
	assert.Error(t, err)
}

func TestQuotesSubmit_MandatoryMake(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "--db", db, "--format", "json",
		"quotes", "submit", "SB-1", "V1", "--price", "Q1=250", "--lead-time", "7")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SAVE_BLOCKED", resp.Error.Code)

	out, err = execute(t, "--db", db, "--format", "json",
		"quotes", "submit", "SB-1", "V1", "--price", "Q1=250", "--make", "Q1=Polycab", "--lead-time", "7")
	require.NoError(t, err)
	var result SubmitResult
	decodeResponse(t, out, &result)
	assert.Equal(t, []string{"Q1", "Q2"}, result.Updated)
	assert.Equal(t, 1, result.Batches)
	assert.Equal(t, "updated 2 quotation(s)", result.Summary)

	_, err = execute(t, "--db", db, "quotes", "submit", "SB-1", "V1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "nothing pending")
}

func TestQuotesSubmit_BadFlag(t *testing.T) {
	db := seededDB(t)
	_, err := execute(t, "--db", db, "quotes", "submit", "SB-1", "V1", "--price", "Q1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPaymentsCheck(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "--db", db, "payments", "check", "PO-D", "700")
	require.NoError(t, err)
	assert.Contains(t, out, "outstanding    ₹600.00")
	assert.Contains(t, out, "Entered amount exceeds the total remaining amount including GST: ₹600.00")

	out, err = execute(t, "--db", db, "--format", "json", "payments", "check", "PO-D", "500")
	require.NoError(t, err)
	var check struct {
		Outstanding string `json:"outstanding"`
		Warning     string `json:"warning"`
	}
	decodeResponse(t, out, &check)
	assert.Equal(t, "600", check.Outstanding)
	assert.Empty(t, check.Warning)

	_, err = execute(t, "--db", db, "payments", "check", "PO-404", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "--db", db, "payments", "check", "PO-D", "lots")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExport(t *testing.T) {
	db := seededDB(t)
	_, err := execute(t, "--db", db, "rfq", "vendors", "add", "SB-1", "V1")
	require.NoError(t, err)
	_, err = execute(t, "--db", db, "rfq", "quote", "SB-1", "I1", "V1", "100")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "export", "SB-1", "--csv", "-")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "item,name,category"))
	assert.Contains(t, lines[1], "I1,Copper cable,Cables,10,m,V1,Acme Traders,100.00")

	path := filepath.Join(t.TempDir(), "rfq.xlsx")
	_, err = execute(t, "--db", db, "export", "SB-1", "--xlsx", path)
	require.NoError(t, err)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("RFQ", "A2")
	require.NoError(t, err)
	assert.Equal(t, "I1", v)

	_, err = execute(t, "--db", db, "export", "SB-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_Scenario(t *testing.T) {
	scenario := "../harness/testdata/scenarios/rfq_single_winner.yaml"
	golden := "../harness/testdata/golden/rfq_single_winner.golden"

	out, err := execute(t, "run", scenario, "--golden", golden)
	require.NoError(t, err)
	assert.Contains(t, out, "007 rfq.commit => INCOMPLETE_SELECTION missing=I2")
	assert.Contains(t, out, "✓ rfq_single_winner")

	stale := filepath.Join(t.TempDir(), "stale.golden")
	require.NoError(t, os.WriteFile(stale, []byte("scenario: rfq_single_winner\n"), 0644))
	out, err = execute(t, "--format", "json", "run", scenario, "--golden", stale)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var result ScenarioResult
	decodeResponse(t, out, &result)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "trace differs")

	_, err = execute(t, "run", "absent.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
