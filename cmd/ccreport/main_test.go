package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccreport/internal/api"
	"ccreport/internal/config"
	"ccreport/internal/controller"
	"ccreport/internal/failover"
	"ccreport/internal/notify"
)

var creds = api.Credentials{Username: "admin", Password: "secret"}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	t.Log(errOut.String())
	return out.String(), err
}

func emulate(t *testing.T, role controller.Role, objects []controller.Object) string {
	t.Helper()
	ts := httptest.NewServer(controller.NewServer(role, creds, objects).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// writeConfig saves a config pointing at the given controllers and returns
// its path.
func writeConfig(t *testing.T, primary, secondary, password string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Controller.PrimaryURL = primary
	cfg.Controller.SecondaryURL = secondary
	cfg.Controller.Password = password
	cfg.Report.OutputDir = t.TempDir()
	path := filepath.Join(t.TempDir(), "ccreport.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func TestConfigInit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ccreport.yaml")
	out, err := execute(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.NoError(t, config.Validate(cfg))

	_, err = execute(t, "", "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "", "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestMissingConfig(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "none.yaml"), "probe")
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "config init")
}

func TestProbe_ReportsEachAttempt(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, emulate(t, controller.RoleBackup, nil), emulate(t, controller.RoleActive, nil), creds.Password)
	out, err := execute(t, "", "--config", path, "probe")
	require.NoError(t, err)
	assert.Contains(t, out, "primary")
	assert.Contains(t, out, "backup")
	assert.Contains(t, out, "503")
	assert.Contains(t, out, "active: secondary")
}

func TestProbe_NoActiveController(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, emulate(t, controller.RoleBroken, nil), emulate(t, controller.RoleBackup, nil), creds.Password)
	out, err := execute(t, "", "--config", path, "probe")
	require.ErrorIs(t, err, failover.ErrNoActiveEndpoint)
	assert.Contains(t, out, "error")
	assert.NotContains(t, out, "active:")
}

func TestProbe_PromptsForPassword(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, emulate(t, controller.RoleActive, nil), "", "")
	out, err := execute(t, "secret\n", "--config", path, "probe")
	require.NoError(t, err)
	assert.Contains(t, out, "active: primary")

	_, err = execute(t, "", "--config", path, "probe")
	assert.ErrorContains(t, err, "password is required")
}

func TestCollect_CSVToFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, emulate(t, controller.RoleActive, controller.SampleFixture().Objects), "", creds.Password)
	csvPath := filepath.Join(t.TempDir(), "rows.csv")
	out, err := execute(t, "", "--config", path, "collect", "--format", "csv", "--out", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 rows")

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Protected Object", records[0][0])
	assert.Equal(t, "dns-resolvers", records[2][0])
	assert.Equal(t, "20", records[2][1])
	assert.Equal(t, "40", records[2][9])
}

func TestCollect_Table(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, emulate(t, controller.RoleActive, controller.SampleFixture().Objects), "", creds.Password)
	out, err := execute(t, "", "--config", path, "collect")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "web-frontend")
	assert.Contains(t, lines[1], "no")
	assert.Contains(t, lines[2], "dns-resolvers")
	assert.Contains(t, lines[2], "TCP Mbps 20<40")

	_, err = execute(t, "", "--config", path, "collect", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRun_WritesWorkbook(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, emulate(t, controller.RoleActive, controller.SampleFixture().Objects), "", creds.Password)
	dir := t.TempDir()
	out, err := execute(t, "", "--config", path, "--log-level", "debug", "run", "--no-email", "--output-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "objects=3 highlighted=1 unconfigured=1 controller=primary")

	matches, err := filepath.Glob(filepath.Join(dir, "po_flow_detector_thresholds_*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRun_NoDataExitsCleanly(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, emulate(t, controller.RoleActive, nil), "", creds.Password)
	dir := t.TempDir()
	out, err := execute(t, "", "--config", path, "run", "--output-dir", dir)
	require.NoError(t, err)
	assert.Empty(t, out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "--log-level", "chatty", "config", "init", "--config", filepath.Join(t.TempDir(), "x.yaml"))
	assert.ErrorContains(t, err, "log level")
}

func TestEmailTest_Disabled(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "https://cc-primary.example.net", "", "")
	_, err := execute(t, "", "--config", path, "email", "test")
	assert.ErrorIs(t, err, notify.ErrDisabled)
}

func TestSimulate_InitFixtureAndRole(t *testing.T) {
	t.Parallel()

	fixture := filepath.Join(t.TempDir(), "fixture.yaml")
	out, err := execute(t, "", "simulate", "--init-fixture", "--fixture", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+fixture)

	fx, err := controller.LoadFixture(fixture)
	require.NoError(t, err)
	assert.Len(t, fx.Objects, 3)

	_, err = execute(t, "", "simulate", "--role", "leader")
	assert.ErrorContains(t, err, "unknown role")
}

func TestPromptPassword_FromReader(t *testing.T) {
	t.Parallel()

	var prompt bytes.Buffer
	pw, err := promptPassword(strings.NewReader("  hunter2 \n"), &prompt, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
	assert.Equal(t, "Password: ", prompt.String())

	pw, err = promptPassword(strings.NewReader("no-newline"), &prompt, "")
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)
}

func TestCollect_OutFailureIsReported(t *testing.T) {
	t.Parallel()

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	path := writeConfig(t, emulate(t, controller.RoleActive, controller.SampleFixture().Objects), "", creds.Password)
	out, err := execute(t, "", "--config", path, "collect", "--format", "csv", "--out", "/dev/full")
	require.Error(t, err)
	assert.NotContains(t, out, "wrote")
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "rows\n")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "rows\n", string(data))

	boom := errors.New("disk full")
	err = writeFile(path, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = writeFile(filepath.Join(t.TempDir(), "missing", "out.txt"), func(io.Writer) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}
