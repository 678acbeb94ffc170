package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/debug"
	"github.com/threatflux/dockerComposePortsDump/internal/output"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// Runner regenerates the port report
type Runner interface {
	Run(ctx context.Context) (*pipeline.Snapshot, error)
}

// App executes a resolved command
type App struct {
	Config *config.Config
	Logger *logrus.Logger
	Runner Runner
	// Tables is optional; the debug report lists the snapshot table sizes through it
	Tables  debug.TableCounter
	Stdout  io.Writer
	Stdin   io.Reader
	Verbose bool
}

// NewApp creates an app writing to the process stdout and paging on stdin
func NewApp(cfg *config.Config, logger *logrus.Logger, runner Runner, tables debug.TableCounter) *App {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &App{
		Config: cfg,
		Logger: logger,
		Runner: runner,
		Tables: tables,
		Stdout: os.Stdout,
		Stdin:  os.Stdin,
	}
}

// Execute runs cmd
func (a *App) Execute(ctx context.Context, cmd Command) error {
	log := a.Logger.WithField("command", cmd.String())
	log.Debug("Executing command")

	switch cmd {
	case CommandVersion:
		_, err := fmt.Fprintf(a.Stdout, "Docker Compose Ports Dump Version: %s\n", a.Config.App.Version)
		return err
	case CommandHelp:
		_, err := io.WriteString(a.Stdout, HelpText)
		return err
	case CommandShowExamples:
		return a.page(ExamplesText(a.Config.Compose.VPNContainerName))
	}

	a.progress("Starting the Docker Compose Ports Dump utility.")
	started := time.Now()
	snap, err := a.Runner.Run(ctx)
	if err != nil && cmd != CommandDebug {
		return err
	}
	if err != nil {
		log.WithError(err).Error("Regeneration failed, writing the debug report without a snapshot")
	}

	var cmdErr error
	switch cmd {
	case CommandTable:
		cmdErr = a.printTable(snap, snap.SortMode)
	case CommandSortExternal:
		cmdErr = a.printTable(snap, ports.SortExternalPort)
	case CommandSortName:
		cmdErr = a.printTable(snap, ports.SortServiceName)
	case CommandOutputHTML:
		cmdErr = a.outputHTML(snap)
	case CommandDebug:
		cmdErr = a.debug(ctx, snap)
		if cmdErr == nil {
			cmdErr = err
		}
	default:
		cmdErr = fmt.Errorf("unsupported command: %s", cmd)
	}

	a.progress(fmt.Sprintf("Operation took %.2f seconds.", time.Since(started).Seconds()))
	return cmdErr
}

func (a *App) progress(msg string) {
	a.Logger.Info(msg)
	if a.Verbose {
		fmt.Fprintln(a.Stdout, msg)
	}
}

func (a *App) page(text string) error {
	return output.Page(a.Stdout, a.Stdin, text, a.Config.Output.LinesPerPage)
}

// TableText renders the port table sorted by mode, followed by the host networking
// services when there are any
func TableText(snap *pipeline.Snapshot, mode ports.SortMode) (string, error) {
	var buf bytes.Buffer
	if err := output.WriteTable(&buf, ports.Sort(snap.Result.Records, mode)); err != nil {
		return "", err
	}
	if len(snap.Result.HostNetwork) > 0 {
		buf.WriteString("\nServices using host networking:\n")
		if err := output.WriteHostTable(&buf, snap.Result.HostNetwork); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (a *App) printTable(snap *pipeline.Snapshot, mode ports.SortMode) error {
	text, err := TableText(snap, mode)
	if err != nil {
		return err
	}
	return a.page(text)
}

func (a *App) outputHTML(snap *pipeline.Snapshot) error {
	a.progress(fmt.Sprintf("Dashboard data written to %s.", a.Config.Output.DataDir))
	if a.Verbose {
		for _, name := range pipeline.Artifacts {
			fmt.Fprintf(a.Stdout, "  %s\n", a.Config.DataFile(name))
		}
		if len(snap.Errors) > 0 {
			fmt.Fprintf(a.Stdout, "Collector errors: %d\n", len(snap.Errors))
		}
	}
	return nil
}

// debug writes the report and the export into the data directory, then shows the report
func (a *App) debug(ctx context.Context, snap *pipeline.Snapshot) error {
	var report bytes.Buffer
	if err := debug.NewReport(a.Config, snap, a.Tables).Write(ctx, &report); err != nil {
		return fmt.Errorf("failed to build debug report: %w", err)
	}

	if err := config.MakeDirectory(a.Config.Output.DataDir); err != nil {
		return err
	}
	reportPath := a.Config.DataFile(debug.FileName)
	if err := output.WriteFileAtomic(reportPath, func(w io.Writer) error {
		_, err := w.Write(report.Bytes())
		return err
	}); err != nil {
		return fmt.Errorf("failed to write debug report: %w", err)
	}

	exportPath := a.Config.DataFile(debug.ExportFileName(a.Config))
	if err := output.WriteFileAtomic(exportPath, func(w io.Writer) error {
		return debug.Export(w, a.Config)
	}); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	a.Logger.WithFields(logrus.Fields{"report": reportPath, "export": exportPath}).Info("Debug files written")

	text := report.String()
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return a.page(text)
}
