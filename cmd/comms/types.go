package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/freightline/comms/internal/config"
	"github.com/freightline/comms/internal/db"
	"github.com/freightline/comms/internal/models"
	"github.com/freightline/comms/internal/proposal"
	"github.com/spf13/cobra"
)

func newTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Manage proposal type configurations",
	}

	cmd.AddCommand(newTypesListCmd())
	cmd.AddCommand(newTypesSetCmd())
	return cmd
}

func newTypesListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured proposal types",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := db.Connect(cfg.DB)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
			}

			rows, err := proposal.NewRegistry(gormDB).List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tROLE\tRESPONSE\tTIMEOUT(MIN)\tDESCRIPTION")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					r.Type, r.RequiredRole, r.ResponseActionType, r.DefaultTimeoutMinutes, r.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func newTypesSetCmd() *cobra.Command {
	var (
		configPath     string
		role           string
		creationAction string
		responseAction string
		description    string
		timeoutMin     int
	)

	cmd := &cobra.Command{
		Use:   "set <type>",
		Short: "Create or update a proposal type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			gormDB, err := db.Connect(cfg.DB)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
			}

			err = proposal.NewRegistry(gormDB).Put(models.ProposalTypeConfig{
				Type:                  args[0],
				RequiredRole:          role,
				CreationActionType:    creationAction,
				ResponseActionType:    responseAction,
				Description:           description,
				DefaultTimeoutMinutes: timeoutMin,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Proposal type %q saved\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().StringVar(&role, "role", "", "role required to create proposals of this type")
	cmd.Flags().StringVar(&creationAction, "creation-action", "", "action type shown at creation")
	cmd.Flags().StringVar(&responseAction, "response-action", proposal.ActionAcceptDecline, "expected response shape")
	cmd.Flags().StringVar(&description, "description", "", "human-readable description")
	cmd.Flags().IntVar(&timeoutMin, "timeout", 0, "default timeout in minutes (0 = never expires)")
	return cmd
}
