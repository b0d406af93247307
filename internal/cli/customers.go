package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func listCustomersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-customers",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			customers, err := s.ListCustomers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(customers) == 0 {
				fmt.Fprintln(out, "No customers found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tNOTIFICATION PHONES")
			for _, c := range customers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, strings.Join(c.NotificationPhones, ","))
			}
			return w.Flush()
		},
	}
}

func showCustomerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show-customer <customer-id>",
		Short: "Show a customer with its services and filter details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			detail, err := s.GetCustomerDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(detail)
		},
	}
}

func resendCredentialsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resend-credentials <customer-id>",
		Short: "Email a customer a new password-setup link",
		Long: `Email a customer a new password-setup link. Use this after a provisioning
run reported that credentials were not sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			if err := a.ResendCredentials(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials sent to customer %s.\n", args[0])
			return nil
		},
	}
}

func deleteCustomerCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-customer <customer-id>",
		Short: "Delete a customer, its login identity and everything attached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete customer %s without --yes", args[0])
			}
			a, logger, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			if err := a.DeleteCustomer(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted customer %s.\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
