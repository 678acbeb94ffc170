package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/debug"
	"github.com/threatflux/dockerComposePortsDump/internal/output"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

func TestFlags_Resolve(t *testing.T) {
	testCases := []struct {
		name     string
		flags    Flags
		expected Command
		err      error
	}{
		{"no flags", Flags{}, CommandTable, nil},
		{"debug", Flags{Debug: true}, CommandDebug, nil},
		{"external", Flags{SortExternal: true}, CommandSortExternal, nil},
		{"name", Flags{SortName: true}, CommandSortName, nil},
		{"examples", Flags{ShowExamples: true}, CommandShowExamples, nil},
		{"version", Flags{Version: true}, CommandVersion, nil},
		{"help", Flags{Help: true}, CommandHelp, nil},
		{"html", Flags{OutputHTML: true}, CommandOutputHTML, nil},
		{"html verbose", Flags{OutputHTML: true, Verbose: true}, CommandOutputHTML, nil},
		{"verbose alone", Flags{Verbose: true}, CommandTable, ErrVerboseWithoutHTML},
		{"verbose with debug", Flags{Debug: true, Verbose: true}, CommandTable, ErrVerboseWithoutHTML},
		{"two sorts", Flags{SortExternal: true, SortName: true}, CommandTable, ErrConflictingFlags},
		{"debug and html", Flags{Debug: true, OutputHTML: true, Verbose: true}, CommandTable, ErrConflictingFlags},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := tc.flags.Resolve()
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, cmd)
		})
	}
}

func TestFlags_ResolveNamesConflicts(t *testing.T) {
	_, err := Flags{SortExternal: true, SortName: true}.Resolve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-e -n")
}

func TestCommand_NeedsRun(t *testing.T) {
	assert.True(t, CommandTable.NeedsRun())
	assert.True(t, CommandDebug.NeedsRun())
	assert.True(t, CommandOutputHTML.NeedsRun())
	assert.False(t, CommandVersion.NeedsRun())
	assert.False(t, CommandShowExamples.NeedsRun())
	assert.False(t, CommandHelp.NeedsRun())
	assert.Equal(t, "sort-by-external-port", CommandSortExternal.String())
	assert.Equal(t, "command(42)", Command(42).String())
}

func TestExamplesText(t *testing.T) {
	text := ExamplesText("")
	assert.Contains(t, text, "network_mode: service:your_vpn_container_name")
	assert.Contains(t, text, "- port.mapping2=1196")
	assert.Contains(t, text, "- host.mapping=8080")
	assert.NotContains(t, text, "{{vpn}}")

	text = ExamplesText("gluetun")
	assert.Contains(t, text, "network_mode: service:gluetun")
	assert.Contains(t, text, "  gluetun:\n    ports:")
	assert.NotContains(t, text, DefaultVPNName)
}

type fakeRunner struct {
	snap  *pipeline.Snapshot
	err   error
	calls int
}

func (f *fakeRunner) Run(context.Context) (*pipeline.Snapshot, error) {
	f.calls++
	return f.snap, f.err
}

func testSnapshot() *pipeline.Snapshot {
	result := ports.Result{
		Records: []ports.Record{
			{ServiceName: "alpha", ExternalPort: 9000, InternalPort: 9000, Source: ports.SourceDirect},
			{ServiceName: "zulu", ExternalPort: 80, InternalPort: 8080, Source: ports.SourceDirect, MappedApp: "HTTP"},
		},
		HostNetwork: []ports.Record{{ServiceName: "plex", Source: ports.SourceHostNetwork}},
	}
	return &pipeline.Snapshot{
		Generated: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Result:    result,
		Records:   result.Records,
		Counters:  output.Stats{TotalPortMappings: 2, TotalHostNetworking: 1},
		Errors:    map[string]string{},
	}
}

func newTestApp(t *testing.T, runner Runner) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Version = "v1.0.0"
	cfg.Output.DataDir = t.TempDir()
	cfg.Output.LogSeparatorLength = 10

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var stdout bytes.Buffer
	app := NewApp(cfg, logger, runner, nil)
	app.Stdout = &stdout
	app.Stdin = strings.NewReader("")
	return app, &stdout
}

func TestApp_VersionAndHelp(t *testing.T) {
	runner := &fakeRunner{}
	app, stdout := newTestApp(t, runner)

	require.NoError(t, app.Execute(context.Background(), CommandVersion))
	assert.Equal(t, "Docker Compose Ports Dump Version: v1.0.0\n", stdout.String())

	stdout.Reset()
	require.NoError(t, app.Execute(context.Background(), CommandHelp))
	assert.Contains(t, stdout.String(), "-e, --sort-by-external-port")
	assert.Equal(t, 0, runner.calls)
}

func TestApp_ShowExamplesPaged(t *testing.T) {
	app, stdout := newTestApp(t, &fakeRunner{})
	app.Config.Compose.VPNContainerName = "gluetun"
	app.Config.Output.LinesPerPage = 3
	app.Stdin = strings.NewReader("q\n")

	require.NoError(t, app.Execute(context.Background(), CommandShowExamples))
	assert.Equal(t, "\nport.mapping examples for docker-compose.yml:\n\n"+output.MorePrompt+"\n", stdout.String())
}

func TestApp_Table(t *testing.T) {
	testCases := []struct {
		cmd   Command
		first string
	}{
		{CommandSortExternal, "zulu"},
		{CommandSortName, "alpha"},
		{CommandTable, "alpha"},
	}

	for _, tc := range testCases {
		t.Run(tc.cmd.String(), func(t *testing.T) {
			app, stdout := newTestApp(t, &fakeRunner{snap: testSnapshot()})
			require.NoError(t, app.Execute(context.Background(), tc.cmd))

			out := stdout.String()
			other := "alpha"
			if tc.first == "alpha" {
				other = "zulu"
			}
			assert.Less(t, strings.Index(out, "| "+tc.first), strings.Index(out, "| "+other))
			assert.Contains(t, out, "Services using host networking:")
			assert.Contains(t, out, "| plex")
		})
	}
}

func TestApp_RunError(t *testing.T) {
	app, _ := newTestApp(t, &fakeRunner{err: config.ErrNoComposeFiles})
	err := app.Execute(context.Background(), CommandTable)
	assert.ErrorIs(t, err, config.ErrNoComposeFiles)
}

func TestApp_OutputHTMLVerbose(t *testing.T) {
	app, stdout := newTestApp(t, &fakeRunner{snap: testSnapshot()})
	app.Verbose = true

	require.NoError(t, app.Execute(context.Background(), CommandOutputHTML))
	out := stdout.String()
	assert.Contains(t, out, "Starting the Docker Compose Ports Dump utility.")
	assert.Contains(t, out, "Dashboard data written to "+app.Config.Output.DataDir)
	assert.Contains(t, out, filepath.Join(app.Config.Output.DataDir, pipeline.FilePortsCSV))
	assert.Contains(t, out, "Operation took")
}

func TestApp_Debug(t *testing.T) {
	app, stdout := newTestApp(t, &fakeRunner{snap: testSnapshot()})

	require.NoError(t, app.Execute(context.Background(), CommandDebug))
	assert.True(t, strings.HasPrefix(stdout.String(), "Debug Report:"))

	report, err := os.ReadFile(app.Config.DataFile(debug.FileName))
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(report))

	_, err = os.Stat(app.Config.DataFile(debug.ExportBaseName))
	assert.NoError(t, err)
}

func TestApp_DebugWithoutSnapshot(t *testing.T) {
	runErr := errors.New("compose file missing")
	app, stdout := newTestApp(t, &fakeRunner{err: runErr})

	err := app.Execute(context.Background(), CommandDebug)
	assert.ErrorIs(t, err, runErr)
	assert.Contains(t, stdout.String(), "no snapshot available")

	_, statErr := os.Stat(app.Config.DataFile(debug.FileName))
	assert.NoError(t, statErr)
}
