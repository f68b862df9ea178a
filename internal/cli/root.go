// Package cli wires configuration, the Guacamole directory and the import
// service into the guacimport command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bcnelson/guacamole-csv-importer/internal/config"
	"github.com/bcnelson/guacamole-csv-importer/internal/guacamole"
	"github.com/bcnelson/guacamole-csv-importer/internal/importer"
	"github.com/bcnelson/guacamole-csv-importer/internal/observability"
	"github.com/bcnelson/guacamole-csv-importer/internal/service"
	"github.com/bcnelson/guacamole-csv-importer/internal/storage"
	sqlstore "github.com/bcnelson/guacamole-csv-importer/internal/storage/sql"
	"github.com/bcnelson/guacamole-csv-importer/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const appName = "guacimport"

// app carries state shared by every subcommand.
type app struct {
	version    string
	configFile string
	verbose    bool

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCommand builds the guacimport command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   appName,
		Short: "Import connections into Apache Guacamole from a CSV file",
		Long: `guacimport reads connection definitions from a CSV file and creates the
matching connection groups and connections in Apache Guacamole.

Groups are addressed by slash-separated site paths such as "Lab/RackA".
Only missing groups and connections are created, so re-running an import
is safe.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "run config file (.toml, .yaml or .yml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newImportCommand(a),
		newTreeCommand(a),
		newHistoryCommand(a),
		newVersionCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.logger = observability.InitLogger(appName, cmd.ErrOrStderr(), a.verbose)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.configFile != "" {
		if err := config.LoadFile(a.configFile, cfg); err != nil {
			return err
		}
	}
	a.cfg = cfg
	return nil
}

// directory returns the file shim or a real API client.
func (a *app) directory() guacamole.Directory {
	if a.cfg.UseFileShim() {
		a.logger.Info().Str("path", a.cfg.Guacamole.FileShim).Msg("using file shim instead of the Guacamole API")
		return guacamole.NewFileShim(a.cfg.Guacamole.FileShim, a.logger)
	}
	return guacamole.New(guacamole.Options{
		URL:        a.cfg.Guacamole.URL,
		Username:   a.cfg.Guacamole.Username,
		Password:   a.cfg.Guacamole.Password,
		DataSource: a.cfg.Guacamole.DataSource,
		Timeout:    a.cfg.Guacamole.Timeout,
		Retries:    a.cfg.Guacamole.Retries,
		Logger:     a.logger,
	})
}

// openStore opens the run-history store. A nil store means history is off.
func (a *app) openStore() (storage.Storage, error) {
	if !a.cfg.HistoryEnabled() {
		return nil, nil
	}
	store, err := sqlstore.New(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	return store, nil
}

func (a *app) settings() importer.Settings {
	return importer.Settings{
		GuacdHost:       a.cfg.Guacd.Host,
		GuacdPort:       a.cfg.Guacd.Port,
		GuacdEncryption: a.cfg.Guacd.Encryption,
	}
}

// newService builds the import service. The returned close func releases
// the store.
func (a *app) newService(withHistory bool) (*service.ImportService, func(), error) {
	var store storage.Storage
	closeFn := func() {}
	if withHistory {
		s, err := a.openStore()
		if err != nil {
			return nil, nil, err
		}
		if s != nil {
			store = s
			closeFn = func() {
				if err := s.Close(); err != nil {
					a.logger.Warn().Err(err).Msg("closing run history")
				}
			}
		}
	}
	return service.NewImportService(a.directory(), store, a.settings(), a.logger), closeFn, nil
}

// reportedError marks an error the command already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error { return &reportedError{err: err} }

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var re *reportedError
		if !errors.As(err, &re) {
			fmt.Fprint(stderr, ui.FormatError(err.Error(), "", hintFor(err)))
		}
		return 1
	}
	return 0
}
