package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/services/healthmonitor"
	"github.com/peercoin/warnd/services/warnings"
	"github.com/peercoin/warnd/settings"
	"github.com/peercoin/warnd/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type fullDisk struct{}

func (fullDisk) FreeBytes(string) (uint64, error) {
	return 0, nil
}

func testDaemonSettings() *settings.Settings {
	return &settings.Settings{
		ClientName: "Peercoin",
		Language:   "en",
		Version:    "v0.15.0",
		Warnings: settings.WarningsSettings{
			HTTPListenAddress: "127.0.0.1:0",
		},
		HealthMonitor: settings.HealthMonitorSettings{
			Enabled:        true,
			Interval:       time.Hour,
			DataDir:        "/data",
			MinFreeDiskMB:  1,
			MaxClockOffset: time.Hour,
		},
	}
}

func newTestDaemon(t *testing.T, tSettings *settings.Settings) (*daemon, *httptest.Server) {
	t.Helper()

	d, err := newDaemon(ulogger.TestLogger{}, tSettings, healthmonitor.WithDiskSpaceChecker(fullDisk{}))
	require.NoError(t, err)
	require.NoError(t, d.server.Init(context.Background()))
	require.NoError(t, d.monitor.Init(context.Background()))

	srv := httptest.NewServer(d.server.Handler())
	t.Cleanup(srv.Close)

	return d, srv
}

func TestDaemonEndToEnd(t *testing.T) {
	d, srv := newTestDaemon(t, testDaemonSettings())

	text, err := fetchWarnings(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "", text, "release builds start without warnings")

	d.monitor.Check(context.Background())

	text, err = fetchWarnings(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "Disk space is too low!", text)

	d.registry.SetLargeWorkForkFound(true)

	text, err = fetchWarnings(context.Background(), srv.URL, true)
	require.NoError(t, err)
	assert.Equal(t,
		"Disk space is too low!"+warnings.WarningSeparator+"Warning: The network does not appear to fully agree! Some miners appear to be experiencing issues.",
		text)

	status, err := fetchStatus(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, status.LargeWorkForkFound)
	assert.Len(t, status.Active, 2)
}

func TestDaemonPreRelease(t *testing.T) {
	tSettings := testDaemonSettings()
	tSettings.Version = "v0.15.0-rc1"

	d, _ := newTestDaemon(t, tSettings)

	assert.True(t, d.registry.Snapshot().PreRelease)
}

func TestDaemonTranslations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"de": {"Warning: The network does not appear to fully agree! Some miners appear to be experiencing issues.": "Warnung: Das Netzwerk scheint sich nicht ganz einig zu sein!"}}`), 0o600))

	tSettings := testDaemonSettings()
	tSettings.Language = "de"
	tSettings.Warnings.TranslationsFile = path

	d, srv := newTestDaemon(t, tSettings)
	d.registry.SetLargeWorkForkFound(true)

	text, err := fetchWarnings(context.Background(), srv.URL, true)
	require.NoError(t, err)
	assert.Equal(t, "Warnung: Das Netzwerk scheint sich nicht ganz einig zu sein!", text)

	text, err = fetchWarnings(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "Warning: The network does not appear to fully agree! Some miners appear to be experiencing issues.", text)
}

func TestDaemonMissingTranslationsFile(t *testing.T) {
	tSettings := testDaemonSettings()
	tSettings.Warnings.TranslationsFile = filepath.Join(t.TempDir(), "missing.json")

	_, err := newDaemon(ulogger.TestLogger{}, tSettings)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestFetchWarningsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fetchWarnings(context.Background(), srv.URL, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceError))
	assert.Contains(t, err.Error(), "boom")
}

func runApp(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	app := &cli.App{
		Name:     progname,
		Writer:   &out,
		Commands: []*cli.Command{getCommand(), setCommand(), healthCommand()},
	}

	require.NoError(t, app.Run(append([]string{progname}, args...)))

	return out.String()
}

func TestGetCommand(t *testing.T) {
	d, srv := newTestDaemon(t, testDaemonSettings())
	d.registry.SetMintWarning("Minting is disabled")

	assert.Equal(t, "Minting is disabled\n", runApp(t, "get", "--address", srv.URL, "--verbose"))
	assert.Contains(t, runApp(t, "get", "--address", srv.URL, "--status"), `"mintWarning": "Minting is disabled"`)
}

func TestHealthCommand(t *testing.T) {
	d, srv := newTestDaemon(t, testDaemonSettings())
	d.monitor.Check(context.Background())

	assert.Contains(t, runApp(t, "health", "--address", srv.URL), "is listening and accepting requests")
}

func TestDaemonAcceptsReportedState(t *testing.T) {
	d, srv := newTestDaemon(t, testDaemonSettings())

	_, err := putWarning(context.Background(), srv.URL, "mint", "Minting is disabled")
	require.NoError(t, err)

	fs := warnings.ForkState{
		TipWork:         uint256.NewInt(1000),
		TipBlockProof:   uint256.NewInt(10),
		BestInvalidWork: uint256.NewInt(1061),
	}

	var resp warnings.ForkStateResponse
	require.NoError(t, doJSON(context.Background(), http.MethodPost, srv.URL, "/api/v1/forkstate", fs, &resp))

	assert.Equal(t, warnings.ForkConditionLargeWorkInvalidChain, resp.Condition)
	assert.True(t, d.registry.GetLargeWorkInvalidChainFound())

	text, err := fetchWarnings(context.Background(), srv.URL, true)
	require.NoError(t, err)
	assert.Equal(t,
		"Minting is disabled"+warnings.WarningSeparator+"Warning: We do not appear to fully agree with our peers! You may need to upgrade, or other nodes may need to upgrade.",
		text)
}

func TestDaemonRejectsBadForkState(t *testing.T) {
	_, srv := newTestDaemon(t, testDaemonSettings())

	err := doJSON(context.Background(), http.MethodPost, srv.URL, "/api/v1/forkstate", json.RawMessage(`{"tipWork": "-1"}`), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceError))
	assert.Contains(t, err.Error(), "400")
}

func TestSetCommand(t *testing.T) {
	d, srv := newTestDaemon(t, testDaemonSettings())

	assert.Equal(t, "Minting is disabled\n", runApp(t, "set", "--address", srv.URL, "--mint", "Minting is disabled"))
	assert.Equal(t, "Disk space is too low!\n", runApp(t, "set", "--address", srv.URL, "--misc", "Disk space is too low!"))
	assert.Equal(t, "Minting is disabled\n", runApp(t, "set", "--address", srv.URL, "--misc", ""))

	assert.Equal(t, "Minting is disabled", d.registry.Snapshot().MintWarning)
}
