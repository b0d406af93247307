package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"facilityops/internal/intake"
	"facilityops/internal/provision"
)

func provisionCommand(opts *rootOptions) *cobra.Command {
	var (
		requestPath   string
		floorPlanPath string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a customer from a JSON request file",
		Long: `Provision a customer exactly as POST /api/customers would, reading the
submission from a JSON file and an optional floor-plan file.

Examples:
  # Provision from a request file
  facilityops provision --request acme.json

  # Attach a floor plan
  facilityops provision --request acme.json --floor-plan plan.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(requestPath, floorPlanPath)
			if err != nil {
				return err
			}

			a, logger, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer a.Close()

			res, err := a.Provision(cmd.Context(), req)
			var nerr *provision.NotificationError
			if err != nil && !(errors.As(err, &nerr) && res != nil) {
				return err
			}
			if nerr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", nerr)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "", "Path to the JSON submission")
	cmd.Flags().StringVar(&floorPlanPath, "floor-plan", "", "Path to a floor-plan file to attach")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func loadRequest(requestPath, floorPlanPath string) (*intake.Request, error) {
	f, err := os.Open(requestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open request: %w", err)
	}
	defer f.Close()

	body, err := intake.DecodeJSON(f)
	if err != nil {
		return nil, err
	}
	req, err := intake.Normalize(body)
	if err != nil {
		return nil, err
	}

	if floorPlanPath != "" {
		data, err := os.ReadFile(floorPlanPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read floor plan: %w", err)
		}
		req.FloorPlan = &intake.Attachment{
			Filename:    filepath.Base(floorPlanPath),
			ContentType: mime.TypeByExtension(filepath.Ext(floorPlanPath)),
			Data:        data,
		}
	}
	return req, nil
}
