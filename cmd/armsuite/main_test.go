package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/robotarm/armsuite/internal/config"
	"github.com/robotarm/armsuite/internal/examples"
	"github.com/robotarm/armsuite/internal/metrics"
	"github.com/robotarm/armsuite/internal/repository"
	"github.com/robotarm/armsuite/internal/services"
	"github.com/robotarm/armsuite/internal/suite"
	"github.com/robotarm/armsuite/pkg/logger"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HISTORY_BACKEND", "memory")
	t.Setenv("HISTORY_CACHE", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SUITE_FILTER", "")
	t.Setenv("REPORT_FORMAT", "text")
	t.Setenv("LOG_FILE", "")
	t.Setenv("ARMSUITE_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestList(t *testing.T) {
	out, _, err := runCLI(t, "list")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"MathTest/AdditionWorks",
		"LogicTest/StringCheck",
		"RobotArmTest/JointAngleConfig",
	}, strings.Split(strings.TrimSpace(out), "\n"))
}

func TestRun_Text(t *testing.T) {
	out, _, err := runCLI(t, "run")
	require.NoError(t, err)

	assert.Contains(t, out, "--- PASS: MathTest/AdditionWorks")
	assert.Contains(t, out, "--- PASS: LogicTest/StringCheck")
	assert.Contains(t, out, "--- PASS: RobotArmTest/JointAngleConfig")
	assert.Contains(t, out, "PASS: 3 cases, 3 passed, 0 failed, 0 skipped")
}

func TestRun_JSONParallel(t *testing.T) {
	out, _, err := runCLI(t, "run", "--format", "json", "--parallel", "3")
	require.NoError(t, err)

	var report suite.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, libraryName, report.Library)
	assert.True(t, report.Passed())
	assert.Len(t, report.Results, 3)
}

func TestRun_YAMLFiltered(t *testing.T) {
	out, _, err := runCLI(t, "run", "--format", "yaml", "--filter", "^RobotArm")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	results, ok := doc["results"].([]interface{})
	require.True(t, ok)
	assert.Len(t, results, 1)
}

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		err  error
	}{
		{name: "bad format", args: []string{"run", "--format", "xml"}, err: suite.ErrUnknownFormat},
		{name: "bad filter", args: []string{"run", "--filter", "("}, err: suite.ErrInvalidFilter},
		{name: "negative parallel", args: []string{"run", "--parallel=-1"}, err: services.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			assert.ErrorIs(t, err, tt.err)

			var exit *exitError
			assert.False(t, errors.As(err, &exit))
		})
	}
}

func TestRun_MetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.prom")

	_, _, err := runCLI(t, "run", "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `armsuite_cases_total{outcome="passed"} 3`)
	// The memory backend would drop the report on exit, so nothing is written.
	assert.NotContains(t, string(data), "armsuite_history_writes_total{")
}

func TestRun_NoHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.prom")

	_, _, err := runCLI(t, "run", "--no-history", "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "armsuite_history_writes_total{")
}

func TestOpenHistory_InProcessCache(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "memory")
	t.Setenv("HISTORY_CACHE", "true")
	t.Setenv("REDIS_HOST", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	a := &app{cfg: cfg, log: logger.Nop(), metrics: metrics.New(), registry: suite.NewRegistry()}
	require.NoError(t, examples.Register(a.registry, examples.DefaultDeps()))
	ctx := context.Background()
	repo, closeRepo, err := a.openHistory(ctx)
	require.NoError(t, err)
	defer closeRepo()

	require.IsType(t, &repository.CachedReportRepository{}, repo)

	report, err := a.newRunService(repo).Run(ctx, services.RunRequest{})
	require.NoError(t, err)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ID, latest.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.HistoryWrites.WithLabelValues("memory", "ok")))
}

func TestRun_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armsuite.log")
	t.Setenv("HISTORY_BACKEND", "memory")
	t.Setenv("HISTORY_CACHE", "false")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FILE", path)
	t.Setenv("ARMSUITE_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"run"}, &stdout, &stderr))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "suite run started")
	assert.Contains(t, stderr.String(), "suite run started")
}

func TestRun_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "suite.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SUITE_FILTER=^LogicTest/\n"), 0o600))

	t.Setenv("HISTORY_BACKEND", "memory")
	t.Setenv("HISTORY_CACHE", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FILE", "")
	t.Setenv("REPORT_FORMAT", "text")
	t.Setenv("ARMSUITE_ENV_FILE", envFile)
	// Setenv restores the original value on cleanup; the file only fills
	// variables that are unset.
	t.Setenv("SUITE_FILTER", "")
	require.NoError(t, os.Unsetenv("SUITE_FILTER"))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"run"}, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "--- PASS: LogicTest/StringCheck")
	assert.NotContains(t, stdout.String(), "MathTest/AdditionWorks")
}

func TestRun_TimeoutSkipsAndFails(t *testing.T) {
	out, _, err := runCLI(t, "run", "--timeout", "1ns")

	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 1, exit.code)
	assert.Contains(t, out, "--- SKIP: MathTest/AdditionWorks")
	assert.Contains(t, out, "FAIL: 3 cases, 0 passed, 0 failed, 3 skipped")
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("SUITE_PARALLELISM", "-1")

	var stdout, stderr bytes.Buffer
	err := run([]string{"run"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUITE_PARALLELISM")
}

func TestHistory_MemoryBackendRejected(t *testing.T) {
	out, _, err := runCLI(t, "history")
	require.Error(t, err)
	assert.ErrorIs(t, err, errHistoryNotPersistent)
	assert.Contains(t, err.Error(), "HISTORY_BACKEND=postgres")
	assert.Empty(t, out)

	var exit *exitError
	assert.False(t, errors.As(err, &exit), "usage errors exit 2 through main")
}

func TestServe_InvalidPort(t *testing.T) {
	_, _, err := runCLI(t, "serve", "--host", "127.0.0.1", "--port", "-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listener")
}

func TestExitError(t *testing.T) {
	err := &exitError{code: 1}
	assert.Equal(t, "exit status 1", err.Error())
}
