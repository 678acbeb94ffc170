// Package debug builds the troubleshooting report and the redacted data export
package debug

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	rtdebug "runtime/debug"
	"sort"
	"strconv"
	"strings"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/output"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// FileName is the report written to the data directory
const FileName = "dcpd_debug.txt"

const defaultSeparatorLength = 55

// TableCounter reports the row count of each snapshot table
type TableCounter interface {
	Counts(ctx context.Context) (map[string]int64, error)
}

// Report gathers what the report prints
type Report struct {
	Config   *config.Config
	Snapshot *pipeline.Snapshot
	// Tables is optional
	Tables TableCounter

	Getenv    func(string) string
	BuildInfo func() (*rtdebug.BuildInfo, bool)
}

// NewReport returns a report reading the process environment and build info
func NewReport(cfg *config.Config, snap *pipeline.Snapshot, tables TableCounter) *Report {
	return &Report{
		Config:    cfg,
		Snapshot:  snap,
		Tables:    tables,
		Getenv:    os.Getenv,
		BuildInfo: rtdebug.ReadBuildInfo,
	}
}

type reportWriter struct {
	w         io.Writer
	separator string
	err       error
}

func (rw *reportWriter) printf(format string, args ...interface{}) {
	if rw.err != nil {
		return
	}
	_, rw.err = fmt.Fprintf(rw.w, format, args...)
}

func (rw *reportWriter) section(title string) {
	rw.printf("\n%s\n%s\n%s\n", rw.separator, title, rw.separator)
}

func (rw *reportWriter) grid(headers []string, rows [][]string) {
	if rw.err != nil {
		return
	}
	rw.err = output.WriteGrid(rw.w, headers, rows)
}

// Write renders the report
func (r *Report) Write(ctx context.Context, w io.Writer) error {
	cfg := r.Config
	length := cfg.Output.LogSeparatorLength
	if length <= 0 {
		length = defaultSeparatorLength
	}
	rw := &reportWriter{w: w, separator: strings.Repeat("-", length)}

	rw.printf("Debug Report:\n\nDocker Compose Ports Dump Version: %s\n", cfg.App.Version)

	rw.section("Environment Data:")
	for _, key := range []string{"PATH", "HOME", "PWD"} {
		value := ""
		if r.Getenv != nil {
			value = r.Getenv(key)
		}
		if value == "" {
			value = "Not Set"
		}
		rw.printf("%s: %s\n", key, value)
	}
	rw.printf("os: %s\narch: %s\ncpus: %d\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())

	rw.section("Configuration:")
	for _, line := range cfg.Summary() {
		rw.printf("%s\n", line)
	}

	rw.section("Dependency Versions:")
	rw.printf("go: %s\n", runtime.Version())
	for _, line := range r.dependencies() {
		rw.printf("%s\n", line)
	}

	snap := r.Snapshot
	if snap == nil {
		rw.section("Snapshot:")
		rw.printf("no snapshot available\n")
		return rw.err
	}

	rw.section("Docker Compose Files:")
	if snap.Project != nil {
		for _, f := range snap.Project.Files {
			rw.printf("%s: %d lines\n", f.Path, f.Lines)
		}
		rw.printf("total: %d lines\n", snap.Project.TotalLines())
	}

	rw.section("Statistics:")
	for _, kv := range snap.Counters.Pairs() {
		rw.printf("%s: %s\n", kv[0], kv[1])
	}
	rw.printf("generated: %s\n", snap.Generated.Format(output.LastUpdatedFormat))

	if len(snap.Result.Warnings) > 0 {
		rw.section("Warnings:")
		for _, warning := range snap.Result.Warnings {
			rw.printf("%s\n", warning)
		}
	}
	if len(snap.Errors) > 0 {
		rw.section("Collector Errors:")
		keys := make([]string, 0, len(snap.Errors))
		for k := range snap.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rw.printf("%s: %s\n", k, snap.Errors[k])
		}
	}

	rw.section("Port Mappings Table:")
	rw.grid([]string{"ID", "External Port", "Mapping Values"}, portMappingRows(snap.Result))

	rw.section("Ports Data Table:")
	rw.grid([]string{"ID", "service_name", "external_port", "internal_port", "has_port_mapping", "mapped_app"}, portsDataRows(snap.Result.Records))

	if r.Tables != nil {
		rw.section("Database Tables:")
		counts, err := r.Tables.Counts(ctx)
		if err != nil {
			rw.printf("error: %v\n", err)
		} else {
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				rw.printf("%s: %d rows\n", name, counts[name])
			}
		}
	}

	return rw.err
}

func (r *Report) dependencies() []string {
	if r.BuildInfo == nil {
		return []string{"build info not available"}
	}
	info, ok := r.BuildInfo()
	if !ok || info == nil {
		return []string{"build info not available"}
	}
	lines := make([]string, 0, len(info.Deps))
	for _, dep := range info.Deps {
		lines = append(lines, fmt.Sprintf("%s: %s", dep.Path, dep.Version))
	}
	sort.Strings(lines)
	return lines
}

// portMappingRows lists the VPN mappings ordered by their services
func portMappingRows(result ports.Result) [][]string {
	mappings := result.VPNMappings()
	rows := make([][]string, len(mappings))
	for i, m := range mappings {
		rows[i] = []string{"", m.ExternalPort.String(), strings.Join(m.Services, ",")}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i][2] < rows[j][2] })
	for i := range rows {
		rows[i][0] = strconv.Itoa(i + 1)
	}
	return rows
}

func portsDataRows(records []ports.Record) [][]string {
	sorted := ports.Sort(records, ports.SortServiceName)
	rows := make([][]string, len(sorted))
	for i, rec := range sorted {
		ext, in := output.NotAvailable, output.NotAvailable
		if !rec.ExternalPort.IsEmpty() {
			ext = rec.ExternalPort.String()
		}
		if !rec.InternalPort.IsEmpty() {
			in = rec.InternalPort.String()
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			rec.ServiceName,
			ext,
			in,
			strconv.FormatBool(rec.Source == ports.SourceVPNShared),
			rec.MappedApp,
		}
	}
	return rows
}
