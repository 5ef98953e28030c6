package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/gradepulse/pkg/config"
	"github.com/mchmarny/gradepulse/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	testGradebook = `PID,Section,lab01,lab01 - Max Points,lab02,lab02 - Max Points,project01,project01 - Max Points,Midterm,Midterm - Max Points,Final,Final - Max Points,Notes
S1,A01,10,10,9,10,45,50,40,100,88,100,ok
S2,A01,7,10,8,10,30,50,85,100,70,100,
S3,A02,9,10,10,10,50,50,60,100,95,100,
S4,A02,5,10,6,10,20,50,,100,50,100,
S5,A03,10,10,10,10,48,50,95,100,91,100,
`
	testBreakdown = `PID,Q1,Q2,Q3
S1,9,10,2
S2,3,4,5
S3,8,9,1
S4,6,7,0
S5,1,2,10
`
)

type testEnv struct {
	dir       string
	db        string
	config    string
	gradebook string
	breakdown string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	e := &testEnv{
		dir:       dir,
		db:        filepath.Join(dir, "data", "test.db"),
		config:    filepath.Join(dir, "config.yaml"),
		gradebook: filepath.Join(dir, "grades.csv"),
		breakdown: filepath.Join(dir, "final.csv"),
	}
	require.NoError(t, os.WriteFile(e.gradebook, []byte(testGradebook), 0o600))
	require.NoError(t, os.WriteFile(e.breakdown, []byte(testBreakdown), 0o600))
	return e
}

func (e *testEnv) run(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = in

	full := append([]string{config.AppName, "--db", e.db, "--config", e.config}, args...)
	err := app.Run(context.Background(), full)
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, nil, args...)
	require.NoError(t, err)
	return out
}

func TestClassifyCommand(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun(t, "classify", "--gradebook", e.gradebook)

	var got classification
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, e.gradebook, got.Source)
	assert.Equal(t, 5, got.Students)
	assert.Equal(t, []string{"Notes"}, got.Unclassified)
	assert.NotEmpty(t, got.Columns)
	assert.NotNil(t, got.Catalog)
}

func TestClassifyCommand_MissingFile(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, nil, "classify", "-g", filepath.Join(e.dir, "missing.csv"))
	assert.Error(t, err)

	_, err = e.run(t, nil, "classify")
	assert.Error(t, err, "gradebook flag is required")
}

func TestReportCommand_WithoutRedemption(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun(t, "report", "-g", e.gradebook, "--students")

	var got reportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Summary)
	assert.Empty(t, got.Run)
	assert.Equal(t, 5, got.Summary.Students)
	assert.Equal(t, 0.0, got.Summary.ProportionImproved)
	require.Len(t, got.Students, 5)
	for _, s := range got.Students {
		assert.Equal(t, s.PreTotal, s.PostTotal, s.ID)
		assert.False(t, s.Replaced, s.ID)
	}
}

func TestReportCommand_WithRedemption(t *testing.T) {
	e := newTestEnv(t)
	xlsx := filepath.Join(e.dir, "report.xlsx")
	out := e.mustRun(t, "report", "-g", e.gradebook, "-b", e.breakdown,
		"-q", "1", "-q", "2", "--threshold", "0.5", "--min-count", "1",
		"--xlsx", xlsx, "--save", "--students")

	var got reportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Summary)
	assert.NotEmpty(t, got.Run)
	assert.Equal(t, 0.5, got.Summary.Threshold)
	assert.Equal(t, 1, got.Summary.MinCount)

	var replaced int
	for _, s := range got.Students {
		assert.GreaterOrEqual(t, s.PostTotal+1e-12, s.PreTotal, s.ID)
		if s.Replaced {
			replaced++
		}
	}
	assert.Positive(t, replaced)

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Students")

	show := e.mustRun(t, "history", "show", "--id", got.Run)
	var run data.Run
	require.NoError(t, json.Unmarshal([]byte(show), &run))
	assert.Equal(t, got.Run, run.ID)
	assert.Len(t, run.Records, 5)
}

func TestReportCommand_BreakdownNeedsQuestions(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, nil, "report", "-g", e.gradebook, "-b", e.breakdown)
	assert.ErrorIs(t, err, errNoQuestions)

	_, err = e.run(t, nil, "report", "-g", e.gradebook, "-b", e.breakdown, "-q", "9")
	assert.Error(t, err)
}

func TestReportCommand_YAML(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun(t, "--format", "yaml", "report", "-g", e.gradebook)
	assert.Contains(t, out, "summary:")
	assert.Contains(t, out, "proportionImproved:")
}

func TestHistoryCommands(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "report", "-g", e.gradebook, "-b", e.breakdown, "-q", "3", "--save")
	e.mustRun(t, "report", "-g", e.gradebook, "--save")

	var list []*data.Run
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "history", "list")), &list))
	require.Len(t, list, 2)

	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "history", "list", "--limit", "1")), &list))
	assert.Len(t, list, 1)

	var records []*data.StudentRecord
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "history", "student", "--pid", "S2")), &records))
	assert.Len(t, records, 2)

	var state map[string]int64
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "history", "state")), &state))
	assert.Equal(t, int64(2), state["runs"])
	assert.Equal(t, int64(10), state["records"])

	e.mustRun(t, "history", "delete", "--id", list[0].ID)
	_, err := e.run(t, nil, "history", "show", "--id", list[0].ID)
	assert.ErrorIs(t, err, data.ErrRunNotFound)
}

func TestConfigCommands(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "config", "init")
	assert.FileExists(t, e.config)

	_, err := e.run(t, nil, "config", "init")
	assert.Error(t, err, "existing config is not overwritten")
	e.mustRun(t, "config", "init", "--force")

	var got config.Config
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "config", "show")), &got))
	assert.Equal(t, config.Default().Columns, got.Columns)
	assert.Equal(t, config.Default().Policy.Weights, got.Policy.Weights)
}

func TestConfigFileDrivesReport(t *testing.T) {
	e := newTestEnv(t)
	c := config.Default()
	c.Redemption.Questions = []int{1, 2}
	c.Redemption.MinCount = 1
	require.NoError(t, config.Save(e.config, c))

	var got reportOutput
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "report", "-g", e.gradebook, "-b", e.breakdown)), &got))
	assert.Equal(t, 1, got.Summary.MinCount)
	assert.Equal(t, config.Default().Redemption.Threshold, got.Summary.Threshold)
}

func TestResetCommand(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "report", "-g", e.gradebook, "--save")

	out, err := e.run(t, strings.NewReader("n\n"), "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")

	var state map[string]int64
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "history", "state")), &state))
	assert.Equal(t, int64(1), state["runs"])

	out, err = e.run(t, strings.NewReader("y\n"), "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset complete.")

	out = e.mustRun(t, "reset", "--yes")
	assert.Contains(t, out, "Reset complete.")

	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "history", "state")), &state))
	assert.Equal(t, int64(0), state["runs"])
}

func TestLoadTables(t *testing.T) {
	e := newTestEnv(t)

	tables, err := loadTables(context.Background(), "", e.gradebook, "", e.breakdown)
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.NotNil(t, tables[0])
	assert.Nil(t, tables[1])
	assert.Equal(t, []string{"PID", "Q1", "Q2", "Q3"}, tables[2].Header)

	_, err = loadTables(context.Background(), "", e.gradebook, filepath.Join(e.dir, "nope.csv"))
	assert.Error(t, err)
}

func TestReportCommand_FromURL(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(http.FileServer(http.Dir(e.dir)))
	t.Cleanup(srv.Close)

	out := e.mustRun(t, "report", "-g", srv.URL+"/grades.csv", "-b", srv.URL+"/final.csv", "-q", "1")
	var got reportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 5, got.Summary.Students)

	_, err := e.run(t, nil, "classify", "-g", srv.URL+"/missing.csv")
	assert.Error(t, err)
}
