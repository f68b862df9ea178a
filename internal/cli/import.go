package cli

import (
	"errors"
	"fmt"

	"github.com/bcnelson/guacamole-csv-importer/internal/csvinput"
	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/service"
	"github.com/bcnelson/guacamole-csv-importer/internal/ui"
	"github.com/bcnelson/guacamole-csv-importer/internal/validation"
	"github.com/spf13/cobra"
)

// ErrNothingImported is returned when no entry of a nonempty input was created.
var ErrNothingImported = errors.New("no connections were imported")

type importFlags struct {
	url             string
	username        string
	password        string
	guacdHost       string
	guacdPort       int
	guacdEncryption string
	dryRun          bool
	printTree       bool
}

func newImportCommand(a *app) *cobra.Command {
	f := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import <csv_file>",
		Short: "Create the connections listed in a CSV file",
		Long: `Reads a CSV file with the columns
  site, device_name, hostname, protocol, port, username, password
(in any order) and creates every missing connection group along each site
path and every missing connection.

Exits non-zero when no connection could be imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, a, f, args[0])
		},
	}

	cmd.Flags().StringVar(&f.url, "url", "", "Guacamole API base URL, e.g. http://localhost:8080/guacamole/api (env GUACAMOLE_URL)")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "Guacamole admin username (env GUACAMOLE_USERNAME)")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Guacamole admin password (env GUACAMOLE_PASSWORD)")
	cmd.Flags().StringVar(&f.guacdHost, "guacd-host", "", "guacd hostname stamped on new connections (env GUACD_HOST)")
	cmd.Flags().IntVar(&f.guacdPort, "guacd-port", 0, "guacd port stamped on new connections (env GUACD_PORT)")
	cmd.Flags().StringVar(&f.guacdEncryption, "guacd-encryption", "", "guacd encryption, none or ssl (env GUACD_ENCRYPTION)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "show what would be created without changing Guacamole")
	cmd.Flags().BoolVar(&f.printTree, "print-tree", false, "print the connection tree after the import")

	return cmd
}

// apply overrides configuration with the flags that were set.
func (f *importFlags) apply(cmd *cobra.Command, a *app) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		a.cfg.Guacamole.URL = f.url
	}
	if flags.Changed("username") {
		a.cfg.Guacamole.Username = f.username
	}
	if flags.Changed("password") {
		a.cfg.Guacamole.Password = f.password
	}
	if flags.Changed("guacd-host") {
		a.cfg.Guacd.Host = f.guacdHost
	}
	if flags.Changed("guacd-port") {
		a.cfg.Guacd.Port = f.guacdPort
	}
	if flags.Changed("guacd-encryption") {
		a.cfg.Guacd.Encryption = f.guacdEncryption
	}
}

func runImport(cmd *cobra.Command, a *app, f *importFlags, path string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	f.apply(cmd, a)
	if err := a.cfg.Validate(); err != nil {
		fmt.Fprint(errOut, ui.FormatError("Invalid configuration", err.Error(), "set the value with a flag, an environment variable or --config"))
		return reported(err)
	}

	entries, err := csvinput.ReadFile(path)
	if err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprint(errOut, ui.FormatError(fmt.Sprintf("%s has %d invalid entries", path, len(verrs)), "", "fix the rows below and run the import again"))
			for _, ve := range verrs {
				fmt.Fprintf(errOut, "  %s\n", ve.Error())
			}
			return reported(err)
		}
		fmt.Fprint(errOut, ui.FormatError("Could not read "+path, err.Error(), ""))
		return reported(err)
	}
	a.logger.Info().Str("file", path).Int("entries", len(entries)).Msg("import file parsed")

	svc, closeStore, err := a.newService(true)
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := svc.Import(cmd.Context(), entries, service.ImportOptions{Source: path, DryRun: f.dryRun})
	if err != nil {
		fmt.Fprint(errOut, ui.FormatError("Import failed", err.Error(), hintFor(err)))
		return reported(err)
	}

	if f.dryRun {
		ui.Warn(out, "dry run, nothing was created in Guacamole")
	}
	r := report.Result
	ui.Summary(out, report.Run.Status, r.Successful, r.Skipped, r.Failed, r.Total)
	ui.Outcomes(out, r.Outcomes)
	if f.printTree {
		fmt.Fprintln(out)
		if err := ui.Tree(out, report.Tree); err != nil {
			return err
		}
	}

	if report.Run.Status == domain.RunStatusFailed {
		return reported(ErrNothingImported)
	}
	return nil
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "check GUACAMOLE_USERNAME and GUACAMOLE_PASSWORD"
	case errors.Is(err, domain.ErrMalformedHierarchy):
		return "the connection groups in Guacamole reference missing parents"
	default:
		return ""
	}
}
