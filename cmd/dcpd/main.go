// Command dcpd prints the port mappings of a set of Docker Compose files and
// regenerates the data files behind the web dashboard.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/threatflux/dockerComposePortsDump/internal/api"
	"github.com/threatflux/dockerComposePortsDump/internal/cli"
	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/database"
	"github.com/threatflux/dockerComposePortsDump/internal/database/repositories"
	"github.com/threatflux/dockerComposePortsDump/internal/docker"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/utils"
	"github.com/threatflux/dockerComposePortsDump/pkg/client"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var commandFlags = []string{
	"debug", "sort-by-external-port", "sort-by-service-name", "show-examples",
	"version", "output-html", "help",
}

type options struct {
	flags      cli.Flags
	files      []string
	configFile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "dcpd",
		Short:         "Dump the port mappings of Docker Compose services",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetHelpFunc(func(*cobra.Command, []string) {
		_, _ = io.WriteString(stdout, cli.HelpText)
	})

	f := cmd.Flags()
	f.SortFlags = false
	f.BoolVarP(&opts.flags.SortExternal, "sort-by-external-port", "e", false, "sort the table by external port")
	f.BoolVarP(&opts.flags.SortName, "sort-by-service-name", "n", false, "sort the table by service name")
	f.BoolVarP(&opts.flags.Debug, "debug", "d", false, "write and show the debug report and the data export")
	f.BoolVarP(&opts.flags.ShowExamples, "show-examples", "s", false, "show port.mapping and host.mapping examples")
	f.BoolVarP(&opts.flags.OutputHTML, "output-html", "o", false, "regenerate the web dashboard data")
	f.BoolVarP(&opts.flags.Version, "version", "V", false, "print the version")
	f.BoolVarP(&opts.flags.Help, "help", "h", false, "show this help")
	f.BoolVarP(&opts.flags.Verbose, "verbose", "v", false, "report progress; only with -o")
	f.StringArrayVarP(&opts.files, "file", "f", nil, "compose file to read (repeatable)")
	f.StringVar(&opts.configFile, "config", "", "configuration file")
	cmd.MarkFlagsMutuallyExclusive(commandFlags...)

	return cmd
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	command, err := opts.flags.Resolve()
	if err != nil {
		return err
	}

	logger := utils.NewLogger(stderr)
	cfg, err := config.LoadConfig(
		config.WithConfigFile(opts.configFile),
		config.WithComposeFiles(opts.files),
		config.WithLogger(logger),
	)
	if err != nil {
		logger.WithError(err).Error("Failed to load configuration")
		return err
	}

	logFile, err := utils.ConfigureLogger(logger, logOptions(cfg))
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger.WithFields(logrus.Fields{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
		"command":    command.String(),
	}).Debug("Starting dcpd")

	var (
		runner *pipeline.Runner
		tables *repositories.SnapshotRepository
	)
	if command.NeedsRun() {
		var cleanup func()
		runner, tables, cleanup = buildRunner(cfg, logger)
		defer cleanup()
	}

	app := cli.NewApp(cfg, logger, nil, nil)
	if runner != nil {
		app.Runner = runner
	}
	if tables != nil {
		app.Tables = tables
	}
	app.Stdout = stdout
	app.Verbose = opts.flags.Verbose
	return app.Execute(ctx, command)
}

func logOptions(cfg *config.Config) utils.LogOptions {
	return utils.LogOptions{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	}
}

// buildRunner wires the pipeline. The snapshot database and the Docker engine are
// optional: when one cannot be set up the run goes on without it.
func buildRunner(cfg *config.Config, logger *logrus.Logger) (*pipeline.Runner, *repositories.SnapshotRepository, func()) {
	var (
		opts     []pipeline.Option
		tables   *repositories.SnapshotRepository
		closers  []func() error
		versions pipeline.VersionSource
	)

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Snapshot database unavailable, tables will not be written")
	} else {
		tables = repositories.NewSnapshotRepository(db.DB())
		opts = append(opts, pipeline.WithStore(tables))
		closers = append(closers, db.Close)
	}

	manager, err := docker.NewManagerFromConfig(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Docker client unavailable, container views will be empty")
	} else {
		collector := docker.NewCollector(manager, logger, docker.WithStatsConcurrency(cfg.Docker.StatsConcurrency))
		opts = append(opts, pipeline.WithCollector(collector))
		closers = append(closers, manager.Close)
	}

	if cfg.Server.URL != "" {
		c, err := client.NewClient(client.WithBaseURL(cfg.Server.URL), client.WithAPIKey(cfg.Server.APIKey))
		if err != nil {
			logger.WithError(err).Warn("Invalid server.url, looking up the latest version directly")
		} else {
			versions = c
		}
	}
	if versions == nil {
		versions = api.NewVersionChecker(cfg.App.GitHubRepoURL, api.WithVersionLogger(logger))
	}
	opts = append(opts, pipeline.WithVersionSource(versions))

	cleanup := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.WithError(err).Debug("Close failed")
			}
		}
	}
	return pipeline.NewRunner(cfg, logger, opts...), tables, cleanup
}
