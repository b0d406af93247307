package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"facilityops/internal/datastore"
)

func initDBCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema",
		Long: `Create the customers, service_records, filter_details and
customer_authorizations tables. Safe to run repeatedly.

Examples:
  # Initialize the configured database
  facilityops init-db

  # Initialize a local SQLite file
  FACILITYOPS_DB_DRIVER=sqlite DB_CONN_STRING=facilityops.db facilityops init-db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, err := opts.database()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initializing %s database at %s\n", dbCfg.Type, maskConnectionString(dbCfg.ConnectionString))

			s, err := datastore.Open(cmd.Context(), dbCfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.InitDB(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			fmt.Fprintln(out, "Database initialized successfully.")
			return nil
		},
	}
}
