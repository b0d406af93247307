// Package cli implements the facilityops operator command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"facilityops/internal/app"
	"facilityops/internal/config"
	"facilityops/internal/datastore"
	"facilityops/internal/logging"
	"facilityops/internal/store"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the facilityops command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "facilityops",
		Short: "Provision and manage facility-maintenance customers",
		Long: `facilityops provisions facility-maintenance customers: a customer record,
an optional floor plan, service subscriptions, a login identity and a
password-setup email.

Configuration is read from a YAML file (--config) and overridden by
DB_CONN_STRING, FACILITYOPS_DB_DRIVER, FACILITYOPS_STORAGE_BACKEND,
SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY, RESEND_API_KEY,
FACILITYOPS_LOG_LEVEL and PORT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "facilityops.yaml", "Path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		serveCommand(opts),
		initConfigCommand(opts),
		initDBCommand(opts),
		provisionCommand(opts),
		listCustomersCommand(opts),
		showCustomerCommand(opts),
		resendCredentialsCommand(opts),
		deleteCustomerCommand(opts),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (o *rootOptions) database() (datastore.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return datastore.Config{}, err
	}
	driver, err := cfg.Database.DriverName()
	if err != nil {
		return datastore.Config{}, err
	}
	return datastore.Config{
		Type:             datastore.Type(driver),
		ConnectionString: cfg.Database.ConnString,
	}, nil
}

// openStore connects only to the database, for commands that need nothing else.
func (o *rootOptions) openStore(ctx context.Context) (*store.Store, error) {
	dbCfg, err := o.database()
	if err != nil {
		return nil, err
	}
	return datastore.Open(ctx, dbCfg)
}

// openApp connects every collaborator.
func (o *rootOptions) openApp(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}
